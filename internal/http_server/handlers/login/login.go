package login

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"kairos/internal/auth"
	resp "kairos/internal/lib/api/response"
	sl "kairos/internal/lib/logger"
	"kairos/internal/middleware/authgate"
	"kairos/internal/models"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

// Request is the resolved-identity login body, used when no Authorization
// header is sent.
type Request struct {
	Sub     string `json:"sub" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Name    string `json:"name" validate:"required"`
	Picture string `json:"picture" validate:"omitempty,url"`
	Aud     string `json:"aud"`
}

type Response struct {
	resp.Response
	User         models.Account `json:"user"`
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
}

type Authenticator interface {
	Login(ctx context.Context, provider models.Provider, identityToken string) (models.Session, error)
	LoginWithIdentity(ctx context.Context, provider models.Provider, identity models.Identity) (models.Session, error)
}

// New serves POST /login/{provider}. acceptIdentity enables the body form.
func New(log *slog.Logger, authenticator Authenticator, acceptIdentity bool) http.HandlerFunc {
	validate := validator.New()

	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.login.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		provider, err := models.ParseProvider(chi.URLParam(r, "provider"))
		if err != nil {
			log.Info("unknown provider", sl.Err(err))

			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("unsupported provider"))

			return
		}

		var session models.Session

		if r.Header.Get("Authorization") != "" {
			token, ok := authgate.BearerToken(r)
			if !ok {
				log.Info("malformed authorization header")

				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("invalid authorization header"))

				return
			}

			session, err = authenticator.Login(r.Context(), provider, token)
		} else {
			if !acceptIdentity {
				log.Info("missing authorization header")

				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("missing authorization header"))

				return
			}

			var req Request

			decodeErr := render.DecodeJSON(r.Body, &req)
			if errors.Is(decodeErr, io.EOF) {
				log.Info("request body is empty")

				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("missing authorization header"))

				return
			}
			if decodeErr != nil {
				log.Error("failed to decode request body", sl.Err(decodeErr))

				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("failed to decode request"))

				return
			}

			if validErr := validate.Struct(req); validErr != nil {
				var validateErr validator.ValidationErrors
				errors.As(validErr, &validateErr)

				log.Info("invalid request", sl.Err(validErr))

				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.ValidationError(validateErr))

				return
			}

			session, err = authenticator.LoginWithIdentity(r.Context(), provider, models.Identity{
				Subject:   req.Sub,
				Email:     req.Email,
				Name:      req.Name,
				AvatarURL: req.Picture,
				Audience:  req.Aud,
			})
		}

		if err != nil {
			status, msg := statusFor(err)
			if status == http.StatusInternalServerError {
				log.Error("failed to login user", sl.Err(err))
			} else {
				log.Info("login rejected", sl.Err(err))
			}

			render.Status(r, status)
			render.JSON(w, r, resp.Error(msg))

			return
		}

		ResponseOK(w, r, session)
	}
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrInvalidIdentity):
		return http.StatusBadRequest, "invalid identity token"
	case errors.Is(err, auth.ErrUnsupportedProvider):
		return http.StatusUnauthorized, "unsupported provider"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, auth.ErrAccountNotFound):
		return http.StatusNotFound, "account not found"
	case errors.Is(err, auth.ErrConflict):
		return http.StatusConflict, "account already exists"
	default:
		return http.StatusInternalServerError, "internal error"
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
