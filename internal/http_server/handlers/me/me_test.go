package me_test

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"kairos/internal/auth"
	"kairos/internal/http_server/handlers/me"
	"kairos/internal/middleware/authgate"
	"kairos/internal/mocks"
	"kairos/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestMe(t *testing.T) {
	account := models.Account{ID: "acc-1", Name: "A", Email: "a@x.com", Provider: models.ProviderGoogle, Plan: models.PlanFree}

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "found", status: http.StatusOK},
		{name: "gone", err: auth.ErrAccountNotFound, status: http.StatusNotFound},
		{name: "internal", err: auth.ErrInternal, status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			if tt.err != nil {
				err = fmt.Errorf("auth.Account: %w", tt.err)
			}

			accounts := new(mocks.Authenticator)
			accounts.On("Account", mock.Anything, "acc-1").Return(account, err)

			log := slog.New(slog.NewTextHandler(io.Discard, nil))
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			req = req.WithContext(authgate.WithAccountID(req.Context(), "acc-1"))
			rec := httptest.NewRecorder()

			me.New(log, accounts).ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.JSONEq(t,
					`{"status":"OK","user":{"accountId":"acc-1","name":"A","email":"a@x.com","provider":"google","plan":"free"}}`,
					rec.Body.String())
			}
		})
	}
}
