package httpblob

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPSource_Supports(t *testing.T) {
	src := NewHTTPSource(0)

	assert.True(t, src.Supports("http://models.local/crop.json"))
	assert.True(t, src.Supports("https://models.local/crop.json"))
	assert.False(t, src.Supports("/models/crop.json"))
	assert.False(t, src.Supports("configmap://ns/name/key"))
}

func TestHTTPSource_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/crop.json", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"version": 2}`))
	}))
	defer server.Close()

	blob, err := NewHTTPSource(time.Second).Fetch(context.Background(), server.URL+"/crop.json")
	require.NoError(t, err)
	assert.Equal(t, `{"version": 2}`, string(blob.Data))
	assert.Equal(t, server.URL+"/crop.json", blob.Ref)
}

func TestHTTPSource_FetchNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := NewHTTPSource(time.Second).Fetch(context.Background(), server.URL+"/missing.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 404")
}

func TestHTTPSource_FetchTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	_, err := NewHTTPSource(20*time.Millisecond).Fetch(context.Background(), server.URL+"/slow.json")
	assert.Error(t, err)
}
