package server

import (
	"context"
	"net/http"

	"github.com/sozercan/disclosure-ui/internal/shell"
)

const (
	sessionCookie = "disclosure_session"
	sessionHeader = "X-Session-ID"
)

type ctxKey int

const (
	ctxKeyShell ctxKey = iota
	ctxKeySessionID
)

// sessionMiddleware attaches the caller's shell to the request, opening a
// session when the caller has none, and kicks off the shell's catalog load
// on first use. Scripted clients may send the ID in a header instead of the
// cookie.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested := r.Header.Get(sessionHeader)
		if requested == "" {
			if c, err := r.Cookie(sessionCookie); err == nil {
				requested = c.Value
			}
		}

		id, sh := s.sessions.GetOrCreate(requested)
		if id != requested {
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		w.Header().Set(sessionHeader, id)
		sh.Start(context.Background())

		ctx := context.WithValue(r.Context(), ctxKeySessionID, id)
		ctx = context.WithValue(ctx, ctxKeyShell, sh)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func shellFrom(r *http.Request) *shell.Shell {
	sh, _ := r.Context().Value(ctxKeyShell).(*shell.Shell)
	return sh
}

func sessionIDFrom(r *http.Request) string {
	id, _ := r.Context().Value(ctxKeySessionID).(string)
	return id
}
