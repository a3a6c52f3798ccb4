package http

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// SessionMiddleware resolves the storefront session for the request. The
// client sends X-Session-ID; a missing or blank header gets a fresh uuid,
// echoed back so the client can stick to it. Each session owns an
// independent cart and checkout, there is no cross-session sharing.
func SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.Header.Get("X-Session-ID")
		if sessionID == "" {
			sessionID = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), "session_id", sessionID)
		w.Header().Set("X-Session-ID", sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getSessionID(ctx context.Context) string {
	if sessionID, ok := ctx.Value("session_id").(string); ok {
		return sessionID
	}
	return ""
}
