package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/gallerist/internal/server/access"
	"github.com/dmitrijs2005/gallerist/internal/server/auth"
)

type ctxKey string

const viewerKey ctxKey = "viewer"

// ViewerFrom returns the viewer the identity middleware attached, or
// access.Anonymous.
func ViewerFrom(ctx context.Context) access.Viewer {
	if v, ok := ctx.Value(viewerKey).(access.Viewer); ok {
		return v
	}
	return access.Anonymous
}

func withViewer(ctx context.Context, v access.Viewer) context.Context {
	return context.WithValue(ctx, viewerKey, v)
}

// identity resolves the bearer token into a viewer. A request without a
// token is anonymous; a present but invalid token is rejected.
func (h *Handler) identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r.WithContext(withViewer(r.Context(), access.Anonymous)))
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeErrorCode(w, http.StatusUnauthorized, CodeUnauthorized, "malformed authorization header", "")
			return
		}

		userID, err := auth.GetUserIDFromToken(strings.TrimSpace(token), h.jwtSecret)
		if err != nil {
			msg := "invalid token"
			if auth.IsExpired(err) {
				msg = "token expired"
			}
			h.logger.Debug(r.Context(), "token rejected", "error", err)
			writeErrorCode(w, http.StatusUnauthorized, CodeUnauthorized, msg, "")
			return
		}

		next.ServeHTTP(w, r.WithContext(withViewer(r.Context(), access.Viewer{ID: userID})))
	})
}
