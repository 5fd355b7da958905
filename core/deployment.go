package core

import (
	"context"
	"slices"
	"sync/atomic"
	"time"

	"pkt.systems/codeyard/schema"
)

// deploymentRecord is immutable once published; writers build a new record
// and swap it in.
type deploymentRecord struct {
	status      schema.DeploymentStatus
	progress    int
	logs        []string
	url         string
	errMessage  string
	startedAt   time.Time
	completedAt time.Time
}

// deployment tracks one deployment job. Identity fields never change after
// creation; the mutable state lives behind record.
type deployment struct {
	id       schema.DeploymentID
	seq      uint64
	provider schema.ProviderID
	project  string
	record   atomic.Pointer[deploymentRecord]
	cancel   context.CancelFunc
}

// commit applies fn to a copy of the current record and publishes it. It
// reports false without applying fn when the record is already terminal.
func (d *deployment) commit(fn func(*deploymentRecord)) (deploymentRecord, bool) {
	for {
		current := d.record.Load()
		if current.status.Terminal() {
			return *current, false
		}
		next := *current
		next.logs = slices.Clip(current.logs)
		fn(&next)
		if next.progress < current.progress {
			next.progress = current.progress
		}
		if d.record.CompareAndSwap(current, &next) {
			return next, true
		}
	}
}

func (d *deployment) snapshot() schema.DeploymentSnapshot {
	rec := d.record.Load()
	snapshot := schema.DeploymentSnapshot{
		ID:           d.id,
		Provider:     d.provider,
		ProjectName:  d.project,
		Status:       rec.status,
		Progress:     rec.progress,
		Logs:         append([]string{}, rec.logs...),
		URL:          rec.url,
		ErrorMessage: rec.errMessage,
		StartedAt:    rec.startedAt,
	}
	if !rec.completedAt.IsZero() {
		completed := rec.completedAt
		snapshot.CompletedAt = &completed
	}
	return snapshot
}
