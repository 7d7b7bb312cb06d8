package pubsub

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"prediction-service/internal/config"
	"prediction-service/internal/core/domain"
	"prediction-service/internal/testutil"
)

func TestParseRef(t *testing.T) {
	tests := []struct {
		payload string
		want    string
	}{
		{payload: "", want: ""},
		{payload: "  /models/crop.json\n", want: "/models/crop.json"},
		{payload: "configmap://prod/crop/model.json", want: "configmap://prod/crop/model.json"},
		{payload: `{"ref": "https://models.local/crop.json"}`, want: "https://models.local/crop.json"},
		{payload: `{}`, want: ""},
		{payload: `{not json`, want: "{not json"},
	}

	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			assert.Equal(t, tt.want, parseRef(tt.payload))
		})
	}
}

func TestSubscriber_Handle(t *testing.T) {
	reloader := new(testutil.MockReloader)
	reloader.On("Reload", mock.Anything, "").
		Return(&domain.ReloadResult{Status: domain.ReloadStatusUnchanged, Version: 3}, nil).Once()
	reloader.On("Reload", mock.Anything, "/models/bad.json").
		Return(nil, &domain.LoadError{Ref: "/models/bad.json", Err: errors.New("corrupt")}).Once()

	s := NewSubscriber(nil, "artifact:reload", reloader)
	s.handle(context.Background(), "")
	s.handle(context.Background(), `{"ref": "/models/bad.json"}`)

	reloader.AssertExpectations(t)
}

func TestSubscriber_StartUnreachable(t *testing.T) {
	client := NewClient(config.RedisConfig{Addr: "127.0.0.1:1"})
	defer client.Close()

	s := NewSubscriber(client, "artifact:reload", new(testutil.MockReloader))
	assert.Error(t, s.Start(context.Background()))
	assert.NoError(t, s.Close())
}
