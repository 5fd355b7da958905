package httpapi

import (
	"net/http"
	"time"

	"pkt.systems/codeyard/internal/logx"
	"pkt.systems/codeyard/schema"
)

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	log := logx.Ctx(r.Context())
	var req schema.CreateSessionRequest
	if err := decodeJSON(limitBody(w, r), &req); err != nil {
		log.Warn("http session create decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := s.service.CreateSession(r.Context(), req)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	resp, err := s.service.ListActiveSessions(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSessionState(w http.ResponseWriter, r *http.Request) {
	resp, err := s.service.GetSessionState(r.Context(), schema.GetSessionStateRequest{SessionID: sessionID(r)})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSessionHistory(w http.ResponseWriter, r *http.Request) {
	resp, err := s.service.GetSessionHistory(r.Context(), schema.GetSessionHistoryRequest{SessionID: sessionID(r)})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleJoinSession(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	log := logx.WithSession(r.Context(), id)
	var payload struct {
		ParticipantName string `json:"participant_name"`
	}
	if err := decodeJSON(limitBody(w, r), &payload); err != nil {
		log.Warn("http session join decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := s.service.JoinSession(r.Context(), schema.JoinSessionRequest{SessionID: id, ParticipantName: payload.ParticipantName})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLeaveSession(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	var payload struct {
		ParticipantID schema.ParticipantID `json:"participant_id"`
	}
	if err := decodeJSON(limitBody(w, r), &payload); err != nil {
		logx.WithSession(r.Context(), id).Warn("http session leave decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := s.service.LeaveSession(r.Context(), schema.LeaveSessionRequest{SessionID: id, ParticipantID: payload.ParticipantID})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateCode(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	var payload struct {
		ParticipantID schema.ParticipantID `json:"participant_id"`
		Code          string               `json:"code"`
	}
	if err := decodeJSON(limitBody(w, r), &payload); err != nil {
		logx.WithSession(r.Context(), id).Warn("http code update decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := s.service.UpdateCode(r.Context(), schema.UpdateCodeRequest{
		SessionID:     id,
		ParticipantID: payload.ParticipantID,
		Code:          payload.Code,
	})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateCursor(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	var payload struct {
		ParticipantID schema.ParticipantID  `json:"participant_id"`
		Position      schema.CursorPosition `json:"position"`
	}
	if err := decodeJSON(limitBody(w, r), &payload); err != nil {
		logx.WithSession(r.Context(), id).Warn("http cursor update decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := s.service.UpdateCursor(r.Context(), schema.UpdateCursorRequest{
		SessionID:     id,
		ParticipantID: payload.ParticipantID,
		Position:      payload.Position,
	})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReapSessions(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		IdleMinutes float64 `json:"idle_minutes"`
	}
	if err := decodeJSON(limitBody(w, r), &payload); err != nil {
		logx.Ctx(r.Context()).Warn("http reap decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	threshold := time.Duration(payload.IdleMinutes * float64(time.Minute))
	resp, err := s.service.ReapIdleSessions(r.Context(), schema.ReapIdleSessionsRequest{IdleThreshold: threshold})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func sessionID(r *http.Request) schema.SessionID {
	return schema.SessionID(r.PathValue("id"))
}
