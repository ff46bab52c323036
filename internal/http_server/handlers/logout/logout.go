package logout

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"kairos/internal/auth"
	resp "kairos/internal/lib/api/response"
	sl "kairos/internal/lib/logger"
	"kairos/internal/middleware/authgate"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type LogoutHandler interface {
	Logout(ctx context.Context, accountID, refreshToken string) error
}

// New serves POST /logout. It must sit behind the auth gate.
func New(log *slog.Logger, logoutHandler LogoutHandler) http.HandlerFunc {
	validate := validator.New()

	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.logout.New"

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

		var req Request

		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error("failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("failed to decode request"))

			return
		}

		if err := validate.Struct(req); err != nil {
			var validateErr validator.ValidationErrors
			errors.As(err, &validateErr)

			log.Info("invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		if err := logoutHandler.Logout(r.Context(), accountID, req.RefreshToken); err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				log.Info("logout rejected", sl.Err(err))

				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("invalid credentials"))

				return
			}

			log.Error("failed to logout", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("internal error"))

			return
		}

		log.Info("user logged out", slog.String("account_id", accountID))

		render.JSON(w, r, resp.OK())
	}
}
