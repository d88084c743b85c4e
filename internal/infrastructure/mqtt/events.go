package mqtt

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// defaultEventQueue is the number of events buffered for the broker.
const defaultEventQueue = 256

// Publisher is the publish half of Client.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// EventMessage is the JSON body mirrored to {prefix}/events/{event}.
type EventMessage struct {
	Event     string   `json:"event"`
	Channels  []string `json:"channels"`
	Timestamp string   `json:"timestamp"`
	Payload   any      `json:"payload,omitempty"`
}

type queuedEvent struct {
	topic string
	body  []byte
}

// EventPublisher mirrors router events to the broker. Notify never blocks:
// events are queued and published by Run, and are dropped when the queue
// is full or the broker is unreachable.
type EventPublisher struct {
	pub    Publisher
	topics Topics
	qos    byte
	logger Logger
	queue  chan queuedEvent

	mu      sync.Mutex
	dropped int
}

// NewEventPublisher creates a publisher writing through pub.
func NewEventPublisher(pub Publisher, topics Topics, qos byte, logger Logger) *EventPublisher {
	return &EventPublisher{
		pub:    pub,
		topics: topics,
		qos:    qos,
		logger: logger,
		queue:  make(chan queuedEvent, defaultEventQueue),
	}
}

// Notify queues event for publishing.
func (p *EventPublisher) Notify(event string, channels []string, payload any) {
	body, err := json.Marshal(EventMessage{
		Event:     event,
		Channels:  channels,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Payload:   payload,
	})
	if err != nil {
		if p.logger != nil {
			p.logger.Warn("marshalling mqtt event failed", "event", event, "error", err)
		}
		return
	}

	select {
	case p.queue <- queuedEvent{topic: p.topics.Event(event), body: body}:
	default:
		p.mu.Lock()
		p.dropped++
		p.mu.Unlock()
	}
}

// Run publishes queued events until ctx is cancelled.
func (p *EventPublisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-p.queue:
			if err := p.pub.Publish(ev.topic, ev.body, p.qos, false); err != nil {
				p.mu.Lock()
				p.dropped++
				p.mu.Unlock()
				if p.logger != nil {
					p.logger.Warn("publishing mqtt event failed", "topic", ev.topic, "error", err)
				}
			}
		}
	}
}

// Dropped returns the number of events that were never published.
func (p *EventPublisher) Dropped() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}
