package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"prediction-service/internal/config"
	"prediction-service/internal/core/domain"
)

// Reloader activates the artifact at ref; an empty ref means the configured one.
type Reloader interface {
	Reload(ctx context.Context, ref string) (*domain.ReloadResult, error)
}

// reloadMessage is the JSON payload form. A plain-text payload is taken as
// the ref itself.
type reloadMessage struct {
	Ref string `json:"ref"`
}

// Subscriber triggers artifact reloads from a Redis channel.
type Subscriber struct {
	client   *redis.Client
	channel  string
	reloader Reloader

	sub    *redis.PubSub
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func NewSubscriber(client *redis.Client, channel string, reloader Reloader) *Subscriber {
	return &Subscriber{client: client, channel: channel, reloader: reloader}
}

func (s *Subscriber) Start(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}

	sub := s.client.Subscribe(ctx, s.channel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return fmt.Errorf("subscribe %s: %w", s.channel, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.sub = sub
	s.cancel = cancel
	s.wg.Add(1)
	go s.run(runCtx, sub.Channel())

	log.WithField("channel", s.channel).Info("listening for artifact reload requests")
	return nil
}

func (s *Subscriber) Close() error {
	if s.sub == nil {
		return nil
	}
	s.cancel()
	err := s.sub.Close()
	s.wg.Wait()
	return err
}

func (s *Subscriber) run(ctx context.Context, messages <-chan *redis.Message) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			s.handle(ctx, msg.Payload)
		}
	}
}

func (s *Subscriber) handle(ctx context.Context, payload string) {
	ref := parseRef(payload)
	entry := log.WithFields(log.Fields{"channel": s.channel, "ref": ref})

	result, err := s.reloader.Reload(ctx, ref)
	if err != nil {
		entry.WithError(err).Warn("reload request failed")
		return
	}
	entry.WithFields(log.Fields{
		"status":  result.Status,
		"version": result.Version,
	}).Info("reload request applied")
}

func parseRef(payload string) string {
	payload = strings.TrimSpace(payload)
	if strings.HasPrefix(payload, "{") {
		var msg reloadMessage
		if err := json.Unmarshal([]byte(payload), &msg); err == nil {
			return strings.TrimSpace(msg.Ref)
		}
	}
	return payload
}
