package httpapi

import (
	"context"
	"sync"
	"time"

	"pkt.systems/codeyard/internal/logx"
	"pkt.systems/codeyard/schema"
)

// StreamEvent is sent to SSE clients following a deployment.
type StreamEvent struct {
	Seq          uint64                     `json:"seq"`
	Type         string                     `json:"type"`
	DeploymentID schema.DeploymentID        `json:"deployment_id"`
	Status       schema.DeploymentStatus    `json:"status,omitempty"`
	Progress     int                        `json:"progress"`
	Lines        []string                   `json:"lines,omitempty"`
	Snapshot     *schema.DeploymentSnapshot `json:"snapshot,omitempty"`
	Timestamp    time.Time                  `json:"timestamp"`
}

// Hub broadcasts deployment events per deployment and keeps a bounded
// history for Last-Event-ID replay.
type Hub struct {
	mu          sync.Mutex
	deployments map[schema.DeploymentID]*deploymentHub
	historySize int
}

// NewHub constructs a hub with the given history size.
func NewHub(historySize int) *Hub {
	if historySize <= 0 {
		historySize = 1000
	}
	return &Hub{
		deployments: make(map[schema.DeploymentID]*deploymentHub),
		historySize: historySize,
	}
}

// OnSessionEvent implements core.EventSink. Session events travel over the
// live websocket instead.
func (h *Hub) OnSessionEvent(schema.SessionEvent) {}

// OnDeploymentEvent implements core.EventSink.
func (h *Hub) OnDeploymentEvent(event schema.DeploymentEvent) {
	log := logx.WithDeployment(context.Background(), event.DeploymentID)
	log.Trace("hub deployment event", "type", event.Type, "progress", event.Progress, "lines", len(event.Lines))
	h.publish(event.DeploymentID, StreamEvent{
		Type:         string(event.Type),
		DeploymentID: event.DeploymentID,
		Status:       event.Status,
		Progress:     event.Progress,
		Lines:        event.Lines,
		Timestamp:    event.Timestamp,
	})
}

// Subscribe registers a subscriber for a deployment and returns the history
// recorded so far.
func (h *Hub) Subscribe(id schema.DeploymentID) (<-chan StreamEvent, func(), uint64, []StreamEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	dh := h.getOrCreateLocked(id)
	ch := make(chan StreamEvent, 256)
	dh.subs[ch] = struct{}{}
	history := append([]StreamEvent(nil), dh.history...)
	seq := dh.seq
	log := logx.WithDeployment(context.Background(), id)
	log.Debug("hub subscribe", "subs", len(dh.subs), "history", len(history))
	var once sync.Once
	unsub := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(dh.subs, ch)
			close(ch)
			remaining := len(dh.subs)
			h.mu.Unlock()
			log.Debug("hub unsubscribe", "subs", remaining)
		})
	}
	return ch, unsub, seq, history
}

// Replay returns events after the provided seq.
func (h *Hub) Replay(id schema.DeploymentID, after uint64) []StreamEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	dh := h.deployments[id]
	if dh == nil {
		return nil
	}
	events := make([]StreamEvent, 0, len(dh.history))
	for _, event := range dh.history {
		if event.Seq > after {
			events = append(events, event)
		}
	}
	return events
}

// Forget drops history for deployments that no longer exist. Live
// subscribers keep their channels until they unsubscribe.
func (h *Hub) Forget(ids ...schema.DeploymentID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, id := range ids {
		if dh := h.deployments[id]; dh != nil && len(dh.subs) == 0 {
			delete(h.deployments, id)
		}
	}
}

// publish sends under the lock so an unsubscribe cannot close a channel
// mid-send. Sends never block.
func (h *Hub) publish(id schema.DeploymentID, event StreamEvent) {
	h.mu.Lock()
	dh := h.getOrCreateLocked(id)
	dh.seq++
	event.Seq = dh.seq
	dh.history = append(dh.history, event)
	if len(dh.history) > h.historySize {
		dh.history = dh.history[len(dh.history)-h.historySize:]
	}
	dropped := 0
	for sub := range dh.subs {
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	h.mu.Unlock()
	if dropped > 0 {
		logx.WithDeployment(context.Background(), id).Warn("hub event dropped", "type", event.Type, "dropped", dropped)
	}
}

func (h *Hub) getOrCreateLocked(id schema.DeploymentID) *deploymentHub {
	dh := h.deployments[id]
	if dh == nil {
		dh = &deploymentHub{
			subs: make(map[chan StreamEvent]struct{}),
		}
		h.deployments[id] = dh
	}
	return dh
}

type deploymentHub struct {
	seq     uint64
	history []StreamEvent
	subs    map[chan StreamEvent]struct{}
}
