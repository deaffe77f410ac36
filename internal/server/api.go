package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sozercan/disclosure-ui/apimodels"
	"github.com/sozercan/disclosure-ui/internal/logger"
	"github.com/sozercan/disclosure-ui/internal/shell"
)

type stateResponse struct {
	SessionID        string `json:"session_id"`
	CategoriesFailed bool   `json:"categories_failed"`
	shell.View
}

type selectRequest struct {
	// Either Question, or Category and Index.
	Question string `json:"question,omitempty"`
	Category string `json:"category,omitempty"`
	Index    *int   `json:"index,omitempty"`
}

type editRequest struct {
	Answer string `json:"answer"`
}

type healthResponse struct {
	Status  string                    `json:"status"`
	Backend *apimodels.HealthResponse `json:"backend,omitempty"`
	Error   string                    `json:"error,omitempty"`
}

func (s *Server) writeState(w http.ResponseWriter, r *http.Request, status int) {
	sh := shellFrom(r)
	writeJSON(w, status, stateResponse{
		SessionID:        sessionIDFrom(r),
		CategoriesFailed: sh.LoadErr() != nil,
		View:             sh.View(),
	})
}

func (s *Server) handleAPIState(w http.ResponseWriter, r *http.Request) {
	s.writeState(w, r, http.StatusOK)
}

func (s *Server) handleAPIToggle(w http.ResponseWriter, r *http.Request) {
	name, err := categoryParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid category", nil)
		return
	}

	expanded, err := shellFrom(r).ToggleCategory(name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"name": name, "expanded": expanded})
}

func (s *Server) handleAPISelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err), nil)
		return
	}
	defer r.Body.Close()

	sh := shellFrom(r)
	var err error
	switch {
	case req.Category != "" && req.Index != nil:
		err = sh.SelectAt(req.Category, *req.Index)
	case req.Question != "":
		err = sh.SelectQuestion(apimodels.Question{Question: req.Question})
	default:
		writeError(w, http.StatusBadRequest, "question or category and index are required", nil)
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.writeState(w, r, http.StatusOK)
}

func (s *Server) handleAPIGenerate(w http.ResponseWriter, r *http.Request) {
	if _, err := shellFrom(r).Workspace().GenerateAsync(context.Background()); err != nil {
		writeDomainError(w, err)
		return
	}
	s.writeState(w, r, http.StatusAccepted)
}

func (s *Server) handleAPIEdit(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err), nil)
		return
	}
	defer r.Body.Close()

	if err := shellFrom(r).Workspace().Edit(req.Answer); err != nil {
		writeDomainError(w, err)
		return
	}
	s.writeState(w, r, http.StatusOK)
}

func (s *Server) handleAPIReload(w http.ResponseWriter, r *http.Request) {
	id := sessionIDFrom(r)
	sh, err := s.sessions.Reset(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	sh.Start(context.Background())

	writeJSON(w, http.StatusOK, stateResponse{
		SessionID: id,
		View:      sh.View(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok"}
	backend, err := s.backend.Health(ctx)
	if err != nil {
		logger.FromContext(r.Context(), s.log).Warn("Backend health check failed", "error", err)
		resp.Status = "degraded"
		resp.Error = "backend unreachable"
	} else {
		resp.Backend = backend
		if backend.Status != "healthy" {
			resp.Status = "degraded"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
