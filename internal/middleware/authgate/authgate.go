package authgate

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	resp "kairos/internal/lib/api/response"
	sl "kairos/internal/lib/logger"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type AccessVerifier interface {
	VerifyAccess(token string) (string, error)
}

type ctxKey struct{}

// WithAccountID returns a copy of ctx carrying the authenticated account id.
func WithAccountID(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, accountID)
}

// AccountID reports the account id attached by the gate.
func AccountID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// New rejects every request outside publicPaths that does not carry a valid
// bearer access token. A public path matches itself and everything below it.
func New(log *slog.Logger, verifier AccessVerifier, publicPaths []string) func(http.Handler) http.Handler {
	log = log.With(slog.String("component", "middleware/authgate"))

	log.Info("auth gate enabled", slog.Any("public_paths", publicPaths))

	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			if isPublic(r.URL.Path, publicPaths) {
				next.ServeHTTP(w, r)
				return
			}

			entry := log.With(
				slog.String("path", r.URL.Path),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			token, ok := BearerToken(r)
			if !ok {
				entry.Info("missing or malformed authorization header")
				unauthorized(w, r)
				return
			}

			accountID, err := verifier.VerifyAccess(token)
			if err != nil {
				entry.Info("access token rejected", sl.Err(err))
				unauthorized(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAccountID(r.Context(), accountID)))
		}

		return http.HandlerFunc(fn)
	}
}

// BearerToken extracts the credential from an "Authorization: Bearer <token>"
// header. The scheme is matched case-insensitively.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}

	return token, true
}

func isPublic(path string, publicPaths []string) bool {
	for _, prefix := range publicPaths {
		prefix = strings.TrimSuffix(prefix, "/")
		if prefix == "" {
			continue
		}
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}

	return false
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, resp.Error("unauthorized"))
}
