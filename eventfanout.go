package codeyard

import (
	"pkt.systems/codeyard/core"
	"pkt.systems/codeyard/schema"
)

type eventFanout struct {
	sinks []core.EventSink
}

func (f eventFanout) OnSessionEvent(event schema.SessionEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnSessionEvent(event)
	}
}

func (f eventFanout) OnDeploymentEvent(event schema.DeploymentEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnDeploymentEvent(event)
	}
}

// combineSinks collapses the configured sinks into one, skipping nils.
func combineSinks(sinks ...core.EventSink) core.EventSink {
	kept := make([]core.EventSink, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			kept = append(kept, sink)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return eventFanout{sinks: kept}
	}
}
