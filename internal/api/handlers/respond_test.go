package handlers_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dom/account-service/internal/api/handlers"
	"github.com/dom/account-service/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestResponder_Error(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	respond := handlers.NewResponder(zap.New(core))

	var failure error
	r := chi.NewRouter()
	r.Post("/api/v1/users/reset-password/{token}", func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, r, failure)
	})

	tests := []struct {
		name    string
		err     error
		status  int
		message string
		logged  bool
	}{
		{
			name:    "client error is not logged",
			err:     service.ErrResetTokenInvalid,
			status:  http.StatusBadRequest,
			message: "Token is invalid or has expired",
		},
		{
			name:    "server error logs the route, not the token",
			err:     errors.New("connection reset"),
			status:  http.StatusInternalServerError,
			message: "Internal server error",
			logged:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			failure = tt.err
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/users/reset-password/deadbeef", nil))

			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.message)
			assert.NotContains(t, rec.Body.String(), "connection reset")

			entries := logs.TakeAll()
			if !tt.logged {
				assert.Empty(t, entries)
				return
			}
			require.Len(t, entries, 1)
			fields := entries[0].ContextMap()
			assert.Equal(t, "/api/v1/users/reset-password/{token}", fields["path"])
			assert.NotContains(t, fields["path"], "deadbeef")
		})
	}
}
