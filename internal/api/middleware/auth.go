package middleware

import (
	"net/http"
	"strings"

	"github.com/customsubash/image-labelling-pipeline/internal/api/response"
	"golang.org/x/crypto/bcrypt"
)

const keyPrefixLen = 8

// Auth validates bearer API keys against a fixed set of bcrypt hashes.
type Auth struct {
	hashes [][]byte
}

// NewAuth creates a new Auth middleware.
func NewAuth(hashes []string) *Auth {
	a := &Auth{}
	for _, h := range hashes {
		a.hashes = append(a.hashes, []byte(h))
	}
	return a
}

// Enabled reports whether any key hashes are configured.
func (a *Auth) Enabled() bool {
	return a != nil && len(a.hashes) > 0
}

// Authenticate validates the Bearer token and sets key_prefix in the request context.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawKey := extractBearerToken(r)
		if rawKey == "" {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Missing or invalid Authorization header", nil)
			return
		}

		if len(rawKey) < keyPrefixLen {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Invalid API key format", nil)
			return
		}

		for _, h := range a.hashes {
			if bcrypt.CompareHashAndPassword(h, []byte(rawKey)) == nil {
				ctx := setKeyPrefix(r.Context(), rawKey[:keyPrefixLen])
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
		}

		response.Error(w, http.StatusUnauthorized,
			"INVALID_TOKEN", "Invalid API key", nil)
	})
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
