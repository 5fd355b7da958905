package core

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"pkt.systems/codeyard/internal/logx"
	"pkt.systems/codeyard/schema"
	"pkt.systems/pslog"
)

// sessionRegistry owns every collaboration session. mu guards only the index;
// per-session state is guarded by the entry's own lock. When both are held,
// the entry lock is taken first.
type sessionRegistry struct {
	cfg    schema.ServiceConfig
	sink   EventSink
	logger pslog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	entries map[schema.SessionID]*sessionEntry
	order   []schema.SessionID
}

func newSessionRegistry(cfg schema.ServiceConfig, sink EventSink, logger pslog.Logger, clock func() time.Time) *sessionRegistry {
	return &sessionRegistry{
		cfg:     cfg,
		sink:    sink,
		logger:  logger,
		now:     clock,
		entries: make(map[schema.SessionID]*sessionEntry),
	}
}

func (r *sessionRegistry) activeSince(now time.Time) time.Time {
	return now.Add(-r.cfg.ParticipantIdleAfter)
}

func (r *sessionRegistry) CreateSession(ctx context.Context, req schema.CreateSessionRequest) (schema.CreateSessionResponse, error) {
	language := req.Language
	if language == "" {
		language = r.cfg.DefaultLanguage
	}
	now := r.now()
	entry := &sessionEntry{
		id:           schema.SessionID(newID()),
		name:         schema.NormalizeDisplayName(req.Name),
		language:     language,
		createdAt:    now,
		code:         req.InitialCode,
		lastActivity: now,
		active:       true,
	}
	// Not yet published, so the lock only satisfies the guarded-field contract.
	entry.mu.Lock()
	snapshot := entry.snapshotLocked()
	entry.mu.Unlock()

	r.mu.Lock()
	r.entries[entry.id] = entry
	r.order = append(r.order, entry.id)
	total := len(r.entries)
	r.mu.Unlock()

	r.emitSession(schema.SessionEvent{Type: schema.SessionEventCreated, SessionID: entry.id, Timestamp: now})
	r.log(ctx, entry.id).Info("session created", "name", entry.name, "language", language, "sessions", total)
	return schema.CreateSessionResponse{Session: snapshot}, nil
}

func (r *sessionRegistry) JoinSession(ctx context.Context, req schema.JoinSessionRequest) (schema.JoinSessionResponse, error) {
	log := r.log(ctx, req.SessionID)
	entry := r.lookup(req.SessionID)
	if entry == nil {
		log.Warn("session join failed", "err", schema.ErrSessionNotFound)
		return schema.JoinSessionResponse{}, schema.ErrSessionNotFound
	}

	entry.mu.Lock()
	if entry.reaped {
		entry.mu.Unlock()
		log.Warn("session join failed", "err", schema.ErrSessionNotFound, "reason", "reaped")
		return schema.JoinSessionResponse{}, schema.ErrSessionNotFound
	}
	now := r.now()
	p := newParticipant(schema.ParticipantID(newID()), schema.NormalizeDisplayName(req.ParticipantName), now)
	entry.roster.Store(p.id, p)
	entry.order = append(entry.order, p.id)
	entry.lastActivity = now
	entry.active = true
	state := entry.stateLocked(r.activeSince(now))
	entry.mu.Unlock()

	r.emitSession(schema.SessionEvent{Type: schema.SessionEventJoined, SessionID: entry.id, ParticipantID: p.id, Timestamp: now})
	log.Info("session joined", "participant", p.id, "participant_name", p.name, "participants", len(state.Participants))
	return schema.JoinSessionResponse{ParticipantID: p.id, State: state}, nil
}

func (r *sessionRegistry) LeaveSession(ctx context.Context, req schema.LeaveSessionRequest) (schema.LeaveSessionResponse, error) {
	log := logx.WithParticipant(r.context(ctx), req.SessionID, req.ParticipantID)
	entry := r.lookup(req.SessionID)
	if entry == nil {
		log.Debug("session leave ignored", "reason", "unknown session")
		return schema.LeaveSessionResponse{Left: false}, nil
	}

	entry.mu.Lock()
	if entry.reaped || !entry.removeParticipantLocked(req.ParticipantID) {
		entry.mu.Unlock()
		log.Debug("session leave ignored", "reason", "unknown participant")
		return schema.LeaveSessionResponse{Left: false}, nil
	}
	now := r.now()
	entry.lastActivity = now
	deactivated := false
	if len(entry.order) == 0 && entry.active {
		entry.active = false
		deactivated = true
	}
	remaining := len(entry.order)
	entry.mu.Unlock()

	r.emitSession(schema.SessionEvent{Type: schema.SessionEventLeft, SessionID: entry.id, ParticipantID: req.ParticipantID, Timestamp: now})
	if deactivated {
		r.emitSession(schema.SessionEvent{Type: schema.SessionEventDeactivated, SessionID: entry.id, Timestamp: now})
	}
	log.Info("session left", "participants", remaining, "deactivated", deactivated)
	return schema.LeaveSessionResponse{Left: true}, nil
}

func (r *sessionRegistry) UpdateCode(ctx context.Context, req schema.UpdateCodeRequest) (schema.UpdateCodeResponse, error) {
	log := logx.WithParticipant(r.context(ctx), req.SessionID, req.ParticipantID)
	entry := r.lookup(req.SessionID)
	if entry == nil {
		log.Warn("session code update failed", "err", schema.ErrSessionNotFound)
		return schema.UpdateCodeResponse{}, schema.ErrSessionNotFound
	}

	entry.mu.Lock()
	if entry.reaped {
		entry.mu.Unlock()
		log.Warn("session code update failed", "err", schema.ErrSessionNotFound, "reason", "reaped")
		return schema.UpdateCodeResponse{}, schema.ErrSessionNotFound
	}
	p := entry.participantLocked(req.ParticipantID)
	if p == nil {
		entry.mu.Unlock()
		log.Warn("session code update failed", "err", schema.ErrParticipantNotFound)
		return schema.UpdateCodeResponse{}, schema.ErrParticipantNotFound
	}
	now := r.now()
	entry.code = req.Code
	entry.lastActivity = now
	entry.revision++
	entry.lastEditor = p.id
	p.update(func(pr presence) presence {
		pr.lastSeen = now
		return pr
	})
	ack := schema.UpdateAck{
		SessionID: entry.id,
		Code:      entry.code,
		UpdatedBy: p.id,
		Timestamp: now,
		Revision:  entry.revision,
	}
	entry.mu.Unlock()

	r.emitSession(schema.SessionEvent{
		Type:          schema.SessionEventCodeUpdated,
		SessionID:     entry.id,
		ParticipantID: p.id,
		Code:          ack.Code,
		Revision:      ack.Revision,
		Timestamp:     now,
	})
	log.Debug("session code updated", "revision", ack.Revision, "bytes", len(ack.Code))
	return schema.UpdateCodeResponse{Ack: ack}, nil
}

func (r *sessionRegistry) UpdateCursor(ctx context.Context, req schema.UpdateCursorRequest) (schema.UpdateCursorResponse, error) {
	entry := r.lookup(req.SessionID)
	if entry == nil {
		return schema.UpdateCursorResponse{Updated: false}, nil
	}
	value, ok := entry.roster.Load(req.ParticipantID)
	if !ok {
		return schema.UpdateCursorResponse{Updated: false}, nil
	}
	p := value.(*participant)
	now := r.now()
	p.update(func(pr presence) presence {
		pr.cursor = req.Position
		pr.lastSeen = now
		return pr
	})
	cursor := req.Position
	r.emitSession(schema.SessionEvent{
		Type:          schema.SessionEventCursorMoved,
		SessionID:     req.SessionID,
		ParticipantID: req.ParticipantID,
		Cursor:        &cursor,
		Timestamp:     now,
	})
	logx.WithParticipant(r.context(ctx), req.SessionID, req.ParticipantID).Trace("session cursor moved", "line", cursor.Line, "column", cursor.Column)
	return schema.UpdateCursorResponse{Updated: true}, nil
}

func (r *sessionRegistry) GetSessionState(ctx context.Context, req schema.GetSessionStateRequest) (schema.GetSessionStateResponse, error) {
	entry := r.lookup(req.SessionID)
	if entry == nil {
		return schema.GetSessionStateResponse{}, schema.ErrSessionNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.reaped {
		return schema.GetSessionStateResponse{}, schema.ErrSessionNotFound
	}
	return schema.GetSessionStateResponse{State: entry.stateLocked(r.activeSince(r.now()))}, nil
}

func (r *sessionRegistry) GetSessionHistory(ctx context.Context, req schema.GetSessionHistoryRequest) (schema.GetSessionHistoryResponse, error) {
	entry := r.lookup(req.SessionID)
	if entry == nil {
		return schema.GetSessionHistoryResponse{}, schema.ErrSessionNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.reaped {
		return schema.GetSessionHistoryResponse{}, schema.ErrSessionNotFound
	}
	now := r.now()
	participants := entry.participantsLocked(r.activeSince(now))
	minutes := now.Sub(entry.createdAt).Minutes()
	return schema.GetSessionHistoryResponse{History: schema.SessionHistory{
		ID:                 entry.id,
		Name:               entry.name,
		CreatedAt:          entry.createdAt,
		LastActivity:       entry.lastActivity,
		DurationMinutes:    math.Round(minutes*100) / 100,
		TotalParticipants:  len(entry.order),
		ActiveParticipants: countActive(participants),
		CodeLength:         len([]rune(entry.code)),
		Language:           entry.language,
	}}, nil
}

func (r *sessionRegistry) ListActiveSessions(ctx context.Context) (schema.ListActiveSessionsResponse, error) {
	entries := r.entriesInOrder()
	activeSince := r.activeSince(r.now())
	sessions := make([]schema.SessionSummary, 0, len(entries))
	for _, entry := range entries {
		entry.mu.Lock()
		if entry.active && !entry.reaped {
			participants := entry.participantsLocked(activeSince)
			sessions = append(sessions, schema.SessionSummary{
				ID:                 entry.id,
				Name:               entry.name,
				ParticipantCount:   len(entry.order),
				ActiveParticipants: countActive(participants),
				LastActivity:       entry.lastActivity,
				CreatedAt:          entry.createdAt,
			})
		}
		entry.mu.Unlock()
	}
	return schema.ListActiveSessionsResponse{Sessions: sessions}, nil
}

func (r *sessionRegistry) ReapIdleSessions(ctx context.Context, req schema.ReapIdleSessionsRequest) (schema.ReapIdleSessionsResponse, error) {
	if req.IdleThreshold <= 0 {
		return schema.ReapIdleSessionsResponse{}, fmt.Errorf("%w: idle threshold must be positive", schema.ErrInvalidRequest)
	}
	now := r.now()
	reaped := make([]schema.SessionID, 0)
	for _, entry := range r.entriesInOrder() {
		entry.mu.Lock()
		if entry.reaped || now.Sub(entry.lastActivity) <= req.IdleThreshold {
			entry.mu.Unlock()
			continue
		}
		entry.reaped = true
		entry.active = false
		entry.order = nil
		entry.roster.Clear()
		r.mu.Lock()
		delete(r.entries, entry.id)
		r.order = slices.DeleteFunc(r.order, func(id schema.SessionID) bool { return id == entry.id })
		r.mu.Unlock()
		entry.mu.Unlock()
		reaped = append(reaped, entry.id)
	}
	for _, id := range reaped {
		r.emitSession(schema.SessionEvent{Type: schema.SessionEventReaped, SessionID: id, Timestamp: now})
	}
	if len(reaped) > 0 {
		pslog.Ctx(r.context(ctx)).Info("sessions reaped", "count", len(reaped), "idle_threshold", req.IdleThreshold.String())
	}
	return schema.ReapIdleSessionsResponse{Reaped: reaped}, nil
}

func (r *sessionRegistry) lookup(id schema.SessionID) *sessionEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[id]
}

func (r *sessionRegistry) entriesInOrder() []*sessionEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*sessionEntry, 0, len(r.order))
	for _, id := range r.order {
		if entry := r.entries[id]; entry != nil {
			out = append(out, entry)
		}
	}
	return out
}

func (r *sessionRegistry) emitSession(event schema.SessionEvent) {
	if r.sink == nil {
		return
	}
	r.sink.OnSessionEvent(event)
}

func (r *sessionRegistry) log(ctx context.Context, id schema.SessionID) pslog.Logger {
	return logx.WithSession(r.context(ctx), id)
}

func (r *sessionRegistry) context(ctx context.Context) context.Context {
	if ctx == nil {
		return pslog.ContextWithLogger(context.Background(), r.logger)
	}
	return ctx
}
