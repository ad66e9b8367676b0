package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisBroker relays events through Redis pub/sub so that every server
// instance sees inserts made by any other
type RedisBroker struct {
	client *redis.Client
	prefix string
	logger *logrus.Logger

	mu     sync.Mutex
	closed bool
	subs   map[*redisSubscription]struct{}
}

func NewRedisBroker(redisURL string, logger *logrus.Logger) (*RedisBroker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	if logger == nil {
		logger = logrus.New()
	}
	return &RedisBroker{
		client: client,
		prefix: "realtime:",
		logger: logger,
		subs:   make(map[*redisSubscription]struct{}),
	}, nil
}

func (b *RedisBroker) channel(topic string) string {
	return b.prefix + topic
}

func (b *RedisBroker) Publish(ctx context.Context, evt Event) error {
	if b.isClosed() {
		return ErrBrokerClosed
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel(evt.Topic), data).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Subscribe returns once Redis has confirmed the subscription, so events
// published afterwards are guaranteed to reach handler
func (b *RedisBroker) Subscribe(topic string, handler Handler) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBrokerClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pubsub := b.client.Subscribe(ctx, b.channel(topic))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	sub := &redisSubscription{broker: b, pubsub: pubsub, done: make(chan struct{})}
	b.subs[sub] = struct{}{}

	go sub.listen(handler, b.logger.WithField("topic", topic))
	return sub, nil
}

func (b *RedisBroker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := make([]*redisSubscription, 0, len(b.subs))
	for s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		s.Close()
	}
	return b.client.Close()
}

func (b *RedisBroker) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *RedisBroker) forget(s *redisSubscription) {
	b.mu.Lock()
	delete(b.subs, s)
	b.mu.Unlock()
}

type redisSubscription struct {
	broker *RedisBroker
	pubsub *redis.PubSub
	done   chan struct{}
	once   sync.Once
}

func (s *redisSubscription) listen(handler Handler, log *logrus.Entry) {
	defer close(s.done)
	for msg := range s.pubsub.Channel() {
		var evt Event
		if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
			log.WithError(err).Warn("Dropping malformed event")
			continue
		}
		handler(evt)
	}
}

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		s.broker.forget(s)
		err = s.pubsub.Close()
		<-s.done
	})
	return err
}
