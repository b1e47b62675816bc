package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Harshitk-cp/prest/internal/domain"
)

type contextKey string

const workspaceContextKey contextKey = "workspace"

// WorkspaceFromContext returns the workspace authenticated by APIKeyAuth, or nil.
func WorkspaceFromContext(ctx context.Context) *domain.Workspace {
	ws, _ := ctx.Value(workspaceContextKey).(*domain.Workspace)
	return ws
}

// WithWorkspace stores ws in ctx the way APIKeyAuth does.
func WithWorkspace(ctx context.Context, ws *domain.Workspace) context.Context {
	return context.WithValue(ctx, workspaceContextKey, ws)
}

// APIKeyAuth resolves the bearer token to a workspace by its SHA-256 hash.
func APIKeyAuth(workspaces domain.WorkspaceStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			hash := hashAPIKey(strings.TrimSpace(parts[1]))

			ws, err := workspaces.GetByAPIKeyHash(r.Context(), hash)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid API key")
				return
			}

			if rl := requestLogFromContext(r.Context()); rl != nil {
				rl.workspaceID = ws.ID.String()
			}
			next.ServeHTTP(w, r.WithContext(WithWorkspace(r.Context(), ws)))
		})
	}
}

func hashAPIKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}

// HashAPIKey is exported for use when creating workspaces.
func HashAPIKey(key string) string {
	return hashAPIKey(key)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
