package eventbus

import (
	"context"
	"sync"

	"pkt.systems/codeyard/schema"
	"pkt.systems/pslog"
)

// EventType identifies the event payload.
type EventType string

const (
	// EventSession carries session lifecycle and edit events.
	EventSession EventType = "session"
	// EventDeployment carries deployment progress events.
	EventDeployment EventType = "deployment"
)

// Topic names a subscription scope.
type Topic string

// SessionTopic is the topic for one collaboration session.
func SessionTopic(id schema.SessionID) Topic {
	return Topic("session/" + string(id))
}

// DeploymentTopic is the topic for one deployment.
func DeploymentTopic(id schema.DeploymentID) Topic {
	return Topic("deployment/" + string(id))
}

// Event represents a subscriber-facing event emitted by the core service.
type Event struct {
	Type       EventType
	Session    schema.SessionEvent
	Deployment schema.DeploymentEvent
}

// Bus fanouts events to per-topic subscribers. Publishing never blocks; a
// subscriber that falls behind loses events.
type Bus struct {
	mu    sync.Mutex
	subs  map[Topic]map[chan Event]struct{}
	log   pslog.Logger
	depth int
}

// New constructs a Bus.
func New(logger pslog.Logger) *Bus {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bus{
		subs:  make(map[Topic]map[chan Event]struct{}),
		log:   logger,
		depth: 256,
	}
}

// Subscribe registers a subscriber for the topic and returns a channel + cancel.
func (b *Bus) Subscribe(topic Topic) (<-chan Event, func()) {
	if b == nil {
		return nil, func() {}
	}
	ch := make(chan Event, b.depth)
	b.mu.Lock()
	topicSubs := b.subs[topic]
	if topicSubs == nil {
		topicSubs = make(map[chan Event]struct{})
		b.subs[topic] = topicSubs
	}
	topicSubs[ch] = struct{}{}
	count := len(topicSubs)
	b.mu.Unlock()
	b.log.With("topic", topic).Debug("eventbus subscribe", "subs", count)

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			if subs := b.subs[topic]; subs != nil {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(b.subs, topic)
				}
			}
			close(ch)
			b.mu.Unlock()
			b.log.With("topic", topic).Debug("eventbus unsubscribe")
		})
	}
}

// Subscribers reports the number of subscribers on topic.
func (b *Bus) Subscribers(topic Topic) int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[topic])
}

// OnSessionEvent implements core.EventSink.
func (b *Bus) OnSessionEvent(event schema.SessionEvent) {
	b.publish(SessionTopic(event.SessionID), Event{Type: EventSession, Session: event})
}

// OnDeploymentEvent implements core.EventSink.
func (b *Bus) OnDeploymentEvent(event schema.DeploymentEvent) {
	b.publish(DeploymentTopic(event.DeploymentID), Event{Type: EventDeployment, Deployment: event})
}

// publish holds the lock while sending so a concurrent unsubscribe cannot
// close a channel mid-send. Sends are non-blocking.
func (b *Bus) publish(topic Topic, event Event) {
	if b == nil {
		return
	}
	b.mu.Lock()
	dropped := 0
	for sub := range b.subs[topic] {
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	b.mu.Unlock()
	if dropped > 0 {
		b.log.With("topic", topic).Trace("eventbus dropped", "count", dropped)
	}
}
