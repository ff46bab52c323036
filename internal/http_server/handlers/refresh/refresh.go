package refresh

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"kairos/internal/auth"
	resp "kairos/internal/lib/api/response"
	sl "kairos/internal/lib/logger"
	"kairos/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type Response struct {
	resp.Response
	User         models.Account `json:"user"`
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
}

type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (models.Session, error)
}

func New(log *slog.Logger, refresher Refresher) http.HandlerFunc {
	validate := validator.New()

	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.refresh.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

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

		session, err := refresher.Refresh(r.Context(), req.RefreshToken)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				log.Info("refresh rejected", sl.Err(err))

				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("invalid credentials"))

				return
			}

			log.Error("failed to refresh tokens", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("internal error"))

			return
		}

		log.Info("tokens refreshed successfully")

		ResponseOK(w, r, session)
	}
}

func ResponseOK(w http.ResponseWriter, r *http.Request, session models.Session) {
	render.JSON(w, r, Response{
		Response:     resp.OK(),
		User:         session.Account,
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
	})
}
