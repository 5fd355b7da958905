package core

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"pkt.systems/codeyard/schema"
)

// sessionEntry tracks the state of a single collaboration session. mu is the
// session's exclusive lock; every field below it is guarded by mu. The roster
// is only written under mu but may be read without it.
type sessionEntry struct {
	id        schema.SessionID
	name      string
	language  schema.Language
	createdAt time.Time

	mu           sync.Mutex
	code         string
	lastActivity time.Time
	active       bool
	reaped       bool
	revision     uint64
	lastEditor   schema.ParticipantID
	order        []schema.ParticipantID
	roster       sync.Map // schema.ParticipantID -> *participant
}

// participant is one connected editor. Identity is immutable; presence is
// replaced wholesale so cursor moves never need the session lock.
type participant struct {
	id       schema.ParticipantID
	name     string
	presence atomic.Pointer[presence]
}

type presence struct {
	cursor   schema.CursorPosition
	lastSeen time.Time
}

func newParticipant(id schema.ParticipantID, name string, now time.Time) *participant {
	p := &participant{id: id, name: name}
	p.presence.Store(&presence{cursor: schema.DefaultCursor, lastSeen: now})
	return p
}

func (p *participant) update(fn func(presence) presence) {
	for {
		current := p.presence.Load()
		next := fn(*current)
		if p.presence.CompareAndSwap(current, &next) {
			return
		}
	}
}

// snapshot reports the participant as active when it was seen at or after
// activeSince.
func (p *participant) snapshot(activeSince time.Time) schema.ParticipantSnapshot {
	pr := p.presence.Load()
	return schema.ParticipantSnapshot{
		ID:       p.id,
		Name:     p.name,
		Cursor:   pr.cursor,
		LastSeen: pr.lastSeen,
		Active:   !pr.lastSeen.Before(activeSince),
	}
}

func (e *sessionEntry) participantLocked(id schema.ParticipantID) *participant {
	value, ok := e.roster.Load(id)
	if !ok {
		return nil
	}
	return value.(*participant)
}

func (e *sessionEntry) snapshotLocked() schema.SessionSnapshot {
	return schema.SessionSnapshot{
		ID:           e.id,
		Name:         e.name,
		Code:         e.code,
		Language:     e.language,
		Participants: append([]schema.ParticipantID{}, e.order...),
		CreatedAt:    e.createdAt,
		LastActivity: e.lastActivity,
		Active:       e.active,
		Revision:     e.revision,
		LastEditor:   e.lastEditor,
	}
}

func (e *sessionEntry) participantsLocked(activeSince time.Time) []schema.ParticipantSnapshot {
	out := make([]schema.ParticipantSnapshot, 0, len(e.order))
	for _, id := range e.order {
		if p := e.participantLocked(id); p != nil {
			out = append(out, p.snapshot(activeSince))
		}
	}
	return out
}

func (e *sessionEntry) stateLocked(activeSince time.Time) schema.SessionState {
	participants := e.participantsLocked(activeSince)
	return schema.SessionState{
		Session:            e.snapshotLocked(),
		Participants:       participants,
		ActiveParticipants: countActive(participants),
	}
}

func (e *sessionEntry) removeParticipantLocked(id schema.ParticipantID) bool {
	if _, ok := e.roster.LoadAndDelete(id); !ok {
		return false
	}
	e.order = slices.DeleteFunc(e.order, func(candidate schema.ParticipantID) bool {
		return candidate == id
	})
	return true
}

func countActive(participants []schema.ParticipantSnapshot) int {
	count := 0
	for _, p := range participants {
		if p.Active {
			count++
		}
	}
	return count
}
