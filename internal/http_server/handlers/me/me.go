package me

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"kairos/internal/auth"
	resp "kairos/internal/lib/api/response"
	sl "kairos/internal/lib/logger"
	"kairos/internal/middleware/authgate"
	"kairos/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
	User models.Account `json:"user"`
}

type AccountProvider interface {
	Account(ctx context.Context, accountID string) (models.Account, error)
}

// New serves GET /me for the account the gate authenticated.
func New(log *slog.Logger, accounts AccountProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.me.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		accountID, ok := authgate.AccountID(r.Context())
		if !ok {
			log.Error("no authenticated account in context")

			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("unauthorized"))

			return
		}

		account, err := accounts.Account(r.Context(), accountID)
		if err != nil {
			if errors.Is(err, auth.ErrAccountNotFound) {
				log.Warn("authenticated account is gone", slog.String("account_id", accountID))

				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("account not found"))

				return
			}

			log.Error("failed to load account", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("internal error"))

			return
		}

		render.JSON(w, r, Response{
			Response: resp.OK(),
			User:     account,
		})
	}
}
