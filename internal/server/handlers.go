package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sozercan/disclosure-ui/internal/logger"
	"github.com/sozercan/disclosure-ui/internal/shell"
	"github.com/sozercan/disclosure-ui/internal/workspace"
)

var templateFuncs = template.FuncMap{
	"seconds":    func(v float64) string { return fmt.Sprintf("%.2fs", v) },
	"pathEscape": url.PathEscape,
}

type pageData struct {
	View       shell.View
	LoadFailed bool
	Refresh    bool
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sh := shellFrom(r)
	view := sh.View()
	loadFailed := sh.LoadErr() != nil

	data := pageData{
		View:       view,
		LoadFailed: loadFailed,
		Refresh:    (view.Navigator.Loading && !loadFailed) || view.Workspace.State == workspace.Loading,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := s.tmpl.ExecuteTemplate(w, "index.html", data); err != nil {
		logger.FromContext(r.Context(), s.log).Error("Failed to render page", "error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
	}
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	name, err := categoryParam(r)
	if err != nil {
		http.Error(w, "invalid category", http.StatusBadRequest)
		return
	}

	if _, err := shellFrom(r).ToggleCategory(name); err != nil {
		logger.FromContext(r.Context(), s.log).Debug("Toggle ignored", "category", name, "error", err)
	}
	redirectHome(w, r)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request: %v", err), http.StatusBadRequest)
		return
	}
	index, err := strconv.Atoi(r.FormValue("index"))
	if err != nil {
		http.Error(w, "invalid question index", http.StatusBadRequest)
		return
	}

	err = shellFrom(r).SelectAt(r.FormValue("category"), index)
	switch {
	case errors.Is(err, shell.ErrUnknownQuestion):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case err != nil:
		logger.FromContext(r.Context(), s.log).Debug("Selection ignored", "error", err)
	}
	redirectHome(w, r)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	// The request outlives this handler, so it must not use r.Context().
	_, err := shellFrom(r).Workspace().GenerateAsync(context.Background())
	switch {
	case errors.Is(err, workspace.ErrNoQuestion):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, workspace.ErrInFlight):
		logger.FromContext(r.Context(), s.log).Debug("Generate ignored while loading")
	}
	redirectHome(w, r)
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request: %v", err), http.StatusBadRequest)
		return
	}
	if err := shellFrom(r).Workspace().Edit(r.FormValue("answer")); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	redirectHome(w, r)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	sh, err := s.sessions.Reset(sessionIDFrom(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	sh.Start(context.Background())
	redirectHome(w, r)
}

// categoryParam returns the decoded {name} segment. chi matches on RawPath
// when the URL carries one, in which case the segment is still escaped.
func categoryParam(r *http.Request) (string, error) {
	name := chi.URLParam(r, "name")
	if r.URL.RawPath == "" {
		return name, nil
	}
	return url.PathUnescape(name)
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
