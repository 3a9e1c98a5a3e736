package api

import (
	"errors"
	"net/http"

	"github.com/tbalint/messaging-console/internal/auth"
	"github.com/tbalint/messaging-console/internal/repo"
)

// RequireAPIKey guards the API with the X-API-Key header, looked up by
// digest. Health and the root banner stay open so probes keep working.
func RequireAPIKey(keys repo.APIKeyRepository, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" || r.URL.Path == "/v1/health" {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get("X-API-Key")
		if key == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "missing X-API-Key header"})
			return
		}

		_, err := keys.GetAPIKeyByDigest(r.Context(), auth.Digest(key))
		if errors.Is(err, repo.ErrNotFound) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid API key"})
			return
		}
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
			return
		}

		next.ServeHTTP(w, r)
	})
}
