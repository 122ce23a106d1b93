package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// event topics
const (
	TopicRosterChanged   = "shiftswap.roster.changed"
	TopicJournalChanged  = "shiftswap.journal.changed"
	TopicAgenciesChanged = "shiftswap.agencies.changed"

	// TopicAll matches every topic, locally and on NATS.
	TopicAll = "shiftswap.>"
)

// event actions
const (
	ActionCreated  = "created"
	ActionUpdated  = "updated"
	ActionDeleted  = "deleted"
	ActionReplaced = "replaced"
)

// Event is emitted after a store write has been committed.
type Event struct {
	ID       string    `json:"id"`
	Topic    string    `json:"topic"`
	Action   string    `json:"action"`
	RecordID string    `json:"record_id,omitempty"`
	Time     time.Time `json:"time"`
}

// Publisher forwards events outside the process.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// NoopPublisher is used when NATS is not configured.
type NoopPublisher struct{}

func (n *NoopPublisher) Publish(ctx context.Context, topic string, event any) error {
	return nil
}

func (n *NoopPublisher) Close() error {
	return nil
}

// NATSPublisher publishes JSON-encoded events to NATS subjects.
type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("shiftswap"))
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSPublisher{conn: nc}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, topic string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	if err := p.conn.Publish(topic, data); err != nil {
		return err
	}
	// the CLI exits right after a write, so push the message out now
	return p.conn.FlushTimeout(2 * time.Second)
}

func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}

// NATSSubscriber receives events published by other shiftswap processes.
type NATSSubscriber struct {
	conn *nats.Conn
}

func NewNATSSubscriber(url string, opts ...nats.Option) (*NATSSubscriber, error) {
	defaults := []nats.Option{
		nats.Name("shiftswap-watch"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSSubscriber{conn: nc}, nil
}

// Subscribe delivers decoded events for topic (NATS wildcards allowed) until
// cancel is called.
func (s *NATSSubscriber) Subscribe(topic string) (<-chan Event, func(), error) {
	ch := make(chan Event, 64)

	var (
		mu     sync.Mutex
		closed bool
		once   sync.Once
	)

	sub, err := s.conn.Subscribe(topic, func(msg *nats.Msg) {
		var ev Event
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- ev:
		default:
		}
	})
	if err != nil {
		close(ch)
		return nil, nil, fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	if err := s.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		close(ch)
		return nil, nil, fmt.Errorf("flushing subscription: %w", err)
	}

	cancel := func() {
		once.Do(func() {
			_ = sub.Unsubscribe()
			mu.Lock()
			closed = true
			close(ch)
			mu.Unlock()
		})
	}

	return ch, cancel, nil
}

func (s *NATSSubscriber) Close() error {
	s.conn.Close()
	return nil
}

// Bus fans store events out to in-process observers and to the remote
// publisher. Observers use it to invalidate cached lists instead of polling.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]subscription
	nextID int

	remote Publisher
	logger *slog.Logger
}

type subscription struct {
	topic string
	ch    chan Event
}

func NewBus(remote Publisher, logger *slog.Logger) *Bus {
	if remote == nil {
		remote = &NoopPublisher{}
	}
	return &Bus{
		subs:   make(map[int]subscription),
		remote: remote,
		logger: logger,
	}
}

// Subscribe returns a channel receiving events whose topic matches topic.
// TopicAll matches everything. Slow receivers drop events.
func (b *Bus) Subscribe(topic string) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, 16)
	b.subs[id] = subscription{topic: topic, ch: ch}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(ch)
			}
		})
	}
	return ch, cancel
}

// Publish notifies observers. Remote failures are logged only: the write the
// event describes has already been committed.
func (b *Bus) Publish(ctx context.Context, topic, action, recordID string) {
	ev := Event{
		ID:       uuid.NewString(),
		Topic:    topic,
		Action:   action,
		RecordID: recordID,
		Time:     time.Now().UTC(),
	}

	b.mu.Lock()
	for _, sub := range b.subs {
		if !topicMatches(sub.topic, topic) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			b.logger.Debug("dropping event for slow subscriber", "topic", topic)
		}
	}
	b.mu.Unlock()

	if err := b.remote.Publish(ctx, topic, ev); err != nil {
		b.logger.Warn("event publish failed", "topic", topic, "err", err)
	}
}

func (b *Bus) Close() error {
	b.mu.Lock()
	for id, sub := range b.subs {
		close(sub.ch)
		delete(b.subs, id)
	}
	b.mu.Unlock()
	return b.remote.Close()
}

func topicMatches(pattern, topic string) bool {
	if pattern == topic {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, ">"); ok {
		return strings.HasPrefix(topic, prefix)
	}
	return false
}
