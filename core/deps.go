package core

import (
	"time"

	"pkt.systems/pslog"
)

// ServiceDeps captures optional dependencies for the core service.
type ServiceDeps struct {
	Builder   Builder
	Publisher Publisher
	EventSink EventSink
	Logger    pslog.Logger
	// Clock overrides time.Now, mainly for idle-reap tests.
	Clock func() time.Time
}
