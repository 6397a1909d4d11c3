package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lab-eval-api/internal/dto"
	"github.com/noah-isme/lab-eval-api/internal/models"
	"github.com/noah-isme/lab-eval-api/internal/observability"
)

// Evaluation event types.
const (
	EvaluationCreated = "evaluation.created"
	EvaluationUpdated = "evaluation.updated"
	EvaluationDeleted = "evaluation.deleted"
)

const feedBroadcastKey = "all"

// EvaluationEvent is published after an evaluation write commits.
type EvaluationEvent struct {
	Type       string                 `json:"type"`
	Source     string                 `json:"source"`
	ActorID    uint                   `json:"actor_id"`
	ActorRole  string                 `json:"actor_role"`
	Evaluation dto.EvaluationResponse `json:"evaluation"`
	SentAt     time.Time              `json:"sent_at"`
}

// EvaluationPublisher delivers evaluation events to downstream consumers.
type EvaluationPublisher interface {
	Publish(ctx context.Context, event EvaluationEvent) error
}

// EvaluationSubscriber opens live evaluation feeds.
type EvaluationSubscriber interface {
	Subscribe(actor Actor) (<-chan EvaluationEvent, func(), error)
}

// EvaluationBroadcaster publishes evaluation events on NATS for downstream notifiers and fans
// them out to live subscribers. Events from other API nodes arrive through the same subject
// once Start is called. A nil connection keeps delivery local to this node.
type EvaluationBroadcaster struct {
	conn    *nats.Conn
	subject string
	nodeID  string
	hub     *evaluationHub
	logger  zerolog.Logger
}

// NewEvaluationBroadcaster constructs the broadcaster.
func NewEvaluationBroadcaster(conn *nats.Conn, subject string, logger zerolog.Logger) *EvaluationBroadcaster {
	log := logger.With().Str("component", "evaluation_broadcaster").Logger()
	return &EvaluationBroadcaster{
		conn:    conn,
		subject: subject,
		nodeID:  uuid.NewString(),
		hub: &evaluationHub{
			subscribers: make(map[string]map[chan EvaluationEvent]struct{}),
			buffer:      16,
			logger:      log,
		},
		logger: log,
	}
}

// Publish delivers the event to local subscribers and then to the broker.
func (b *EvaluationBroadcaster) Publish(_ context.Context, event EvaluationEvent) error {
	event.Source = b.nodeID
	if event.SentAt.IsZero() {
		event.SentAt = time.Now().UTC()
	}

	b.hub.deliver(event)

	if b.conn == nil || b.subject == "" {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return b.conn.Publish(b.subject, payload)
}

// Start relays events published by other nodes to local subscribers until ctx ends.
func (b *EvaluationBroadcaster) Start(ctx context.Context) error {
	if b.conn == nil || b.subject == "" {
		return nil
	}

	sub, err := b.conn.Subscribe(b.subject, func(msg *nats.Msg) {
		b.relay(msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", b.subject, err)
	}

	go func() {
		<-ctx.Done()
		_ = sub.Unsubscribe()
	}()

	return nil
}

func (b *EvaluationBroadcaster) relay(data []byte) {
	var event EvaluationEvent
	if err := json.Unmarshal(data, &event); err != nil {
		b.logger.Warn().Err(err).Msg("discarding malformed evaluation event")
		return
	}
	if event.Source == b.nodeID {
		return
	}
	b.hub.deliver(event)
}

// Subscribe opens a live feed for actor. Students follow their own evaluations, TAs the ones
// they authored and admins every evaluation. The returned cancel func releases the feed.
func (b *EvaluationBroadcaster) Subscribe(actor Actor) (<-chan EvaluationEvent, func(), error) {
	var key string
	switch actor.Role {
	case models.RoleStudent:
		key = studentFeedKey(actor.ID)
	case models.RoleTA:
		key = taFeedKey(actor.ID)
	case models.RoleAdmin:
		key = feedBroadcastKey
	default:
		return nil, nil, ErrForbidden
	}

	ch, cancel := b.hub.subscribe(key)
	return ch, cancel, nil
}

// Subscribers reports the number of open feeds.
func (b *EvaluationBroadcaster) Subscribers() int {
	return b.hub.size()
}

type evaluationHub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan EvaluationEvent]struct{}
	buffer      int
	logger      zerolog.Logger
}

func (h *evaluationHub) subscribe(key string) (chan EvaluationEvent, func()) {
	ch := make(chan EvaluationEvent, h.buffer)

	h.mu.Lock()
	if h.subscribers[key] == nil {
		h.subscribers[key] = make(map[chan EvaluationEvent]struct{})
	}
	h.subscribers[key][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers[key], ch)
			if len(h.subscribers[key]) == 0 {
				delete(h.subscribers, key)
			}
			h.mu.Unlock()
			close(ch)
		})
	}

	return ch, cancel
}

// deliver never blocks; a subscriber with a full buffer misses the event.
func (h *evaluationHub) deliver(event EvaluationEvent) {
	keys := []string{
		feedBroadcastKey,
		studentFeedKey(event.Evaluation.StudentID),
		taFeedKey(event.Evaluation.TAID),
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, key := range keys {
		for ch := range h.subscribers[key] {
			select {
			case ch <- event:
			default:
				h.logger.Warn().Str("feed", key).Uint("evaluation_id", event.Evaluation.ID).Msg("dropping evaluation event for slow subscriber")
			}
		}
	}
}

func (h *evaluationHub) size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, set := range h.subscribers {
		total += len(set)
	}
	return total
}

func studentFeedKey(id uint) string {
	return fmt.Sprintf("student:%d", id)
}

func taFeedKey(id uint) string {
	return fmt.Sprintf("ta:%d", id)
}

func publishEvaluationEvent(ctx context.Context, publisher EvaluationPublisher, logger zerolog.Logger, event EvaluationEvent) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		observability.EventPublishFailures().Inc()
		logger.Warn().Err(err).Str("type", event.Type).Uint("evaluation_id", event.Evaluation.ID).Msg("failed to publish evaluation event")
	}
}
