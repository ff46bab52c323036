package httpserver

import (
	"log/slog"
	"net/http"

	"kairos/internal/http_server/handlers/health"
	"kairos/internal/http_server/handlers/login"
	"kairos/internal/http_server/handlers/logout"
	"kairos/internal/http_server/handlers/me"
	"kairos/internal/http_server/handlers/refresh"
	"kairos/internal/middleware/authgate"
	"kairos/internal/middleware/ratelimit"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
)

// Service is everything the routes need from the auth core.
type Service interface {
	login.Authenticator
	refresh.Refresher
	logout.LogoutHandler
	me.AccountProvider
}

type Options struct {
	PublicPaths            []string
	AcceptResolvedIdentity bool
}

func NewRouter(log *slog.Logger, service Service, verifier authgate.AccessVerifier, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(authgate.New(log, verifier, opts.PublicPaths))

	r.Get("/health_check", health.New())

	r.With(ratelimit.Login()).Post("/login/{provider}",
		login.New(log, service, opts.AcceptResolvedIdentity),
	)
	r.With(ratelimit.Refresh()).Post("/token/refresh",
		refresh.New(log, service),
	)
	r.With(ratelimit.Logout()).Post("/logout",
		logout.New(log, service),
	)
	r.Get("/me",
		me.New(log, service),
	)

	return r
}
