package core

import "pkt.systems/codeyard/schema"

// EventSink receives session and deployment events from the core service.
// Implementations must not block; events are emitted outside of any lock.
type EventSink interface {
	OnSessionEvent(event schema.SessionEvent)
	OnDeploymentEvent(event schema.DeploymentEvent)
}
