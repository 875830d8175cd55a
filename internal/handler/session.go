package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/efreitasn/papertrade/internal/service"
)

type ctxKey int

const (
	accountIDKey ctxKey = iota
	tokenKey
)

// requireSession resolves the bearer token into an account ID stored in
// the request context. Requests without a live session get 401.
func requireSession(sessions *service.SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				WriteError(w, http.StatusUnauthorized, "unauthorized", "missing or expired session")
				return
			}
			accountID, err := sessions.Resolve(token)
			if err != nil {
				mapError(w, err)
				return
			}
			ctx := context.WithValue(r.Context(), accountIDKey, accountID)
			ctx = context.WithValue(ctx, tokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(h[len(prefix):])
	return token, token != ""
}

// accountID returns the authenticated account. Only valid behind
// requireSession.
func accountID(r *http.Request) int64 {
	id, _ := r.Context().Value(accountIDKey).(int64)
	return id
}

func sessionToken(r *http.Request) string {
	token, _ := r.Context().Value(tokenKey).(string)
	return token
}
