package httpapi

import (
	"errors"
	"net/http"
	"time"

	"pkt.systems/codeyard/internal/logx"
	"pkt.systems/codeyard/schema"
)

func (s *Server) handleStartDeployment(w http.ResponseWriter, r *http.Request) {
	log := logx.Ctx(r.Context())
	var req schema.StartDeploymentRequest
	if err := decodeJSON(limitBody(w, r), &req); err != nil {
		log.Warn("http deployment decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := s.service.StartDeployment(r.Context(), req)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func (s *Server) handleListDeployments(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), 0)
	resp, err := s.service.ListDeployments(r.Context(), schema.ListDeploymentsRequest{Limit: limit})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeploymentStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := s.service.GetDeploymentStatus(r.Context(), schema.GetDeploymentRequest{DeploymentID: deploymentID(r)})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeploymentLogs(w http.ResponseWriter, r *http.Request) {
	resp, err := s.service.GetDeploymentLogs(r.Context(), schema.GetDeploymentRequest{DeploymentID: deploymentID(r)})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCancelDeployment(w http.ResponseWriter, r *http.Request) {
	resp, err := s.service.CancelDeployment(r.Context(), schema.GetDeploymentRequest{DeploymentID: deploymentID(r)})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListProviders(w http.ResponseWriter, r *http.Request) {
	resp, err := s.service.ListProviders(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGenerateScript(w http.ResponseWriter, r *http.Request) {
	provider := schema.ProviderID(r.PathValue("provider"))
	var cfg schema.DeployConfig
	if err := decodeOptionalJSON(limitBody(w, r), &cfg); err != nil {
		logx.Ctx(r.Context()).Warn("http script decode failed", "err", err, "provider", provider)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := s.service.GenerateDeploymentScript(r.Context(), schema.GenerateScriptRequest{Provider: provider, Config: cfg})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleDeploymentStream follows one deployment over SSE. The stream opens
// with a snapshot, replays events after Last-Event-ID and ends once the
// deployment reaches a terminal status.
func (s *Server) handleDeploymentStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("stream unsupported"))
		return
	}
	id := deploymentID(r)
	log := logx.WithDeployment(r.Context(), id)

	ch, unsubscribe, _, history := s.hub.Subscribe(id)
	defer unsubscribe()

	status, err := s.service.GetDeploymentStatus(r.Context(), schema.GetDeploymentRequest{DeploymentID: id})
	if err != nil {
		unsubscribe()
		s.hub.Forget(id)
		writeError(w, statusFor(err), err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	snapshot := status.Deployment
	_ = writeSSEvent(w, StreamEvent{
		Type:         "snapshot",
		DeploymentID: id,
		Status:       snapshot.Status,
		Progress:     snapshot.Progress,
		Snapshot:     &snapshot,
		Timestamp:    time.Now(),
	})

	lastID := parseUint(r.Header.Get("Last-Event-ID"))
	replayCount := 0
	if lastID > 0 {
		for _, event := range history {
			if event.Seq > lastID {
				_ = writeSSEvent(w, event)
				replayCount++
			}
		}
	}
	flusher.Flush()
	if snapshot.Status.Terminal() {
		log.Debug("http stream closed", "reason", "terminal", "replay", replayCount)
		return
	}

	notify := r.Context().Done()
	log.Info("http stream opened", "last_id", lastID, "replay", replayCount)
	for {
		select {
		case <-notify:
			log.Info("http stream closed")
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			if err := writeSSEvent(w, event); err != nil {
				log.Debug("http stream write failed", "err", err)
				return
			}
			flusher.Flush()
			if event.Status.Terminal() {
				log.Info("http stream closed", "reason", "terminal", "status", event.Status)
				return
			}
		}
	}
}

func deploymentID(r *http.Request) schema.DeploymentID {
	return schema.DeploymentID(r.PathValue("id"))
}
