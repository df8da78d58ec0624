package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dom/account-service/internal/logging"
	"github.com/dom/account-service/internal/service"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

var errInvalidBody = errors.New("invalid request body")

type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Token   string      `json:"token,omitempty"`
}

// Responder writes every JSON response, including the error envelope all
// failures are funneled through.
type Responder struct {
	log *zap.Logger
}

func NewResponder(log *zap.Logger) *Responder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Responder{log: log}
}

func (rs *Responder) JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		rs.log.Warn("failed to encode response", zap.Error(err))
	}
}

// Message writes a failure envelope with the given status.
func (rs *Responder) Message(w http.ResponseWriter, r *http.Request, status int, message string) {
	rs.JSON(w, status, Envelope{Success: false, Message: message})
}

// Error maps err to a status and client message. Server-side causes are
// logged and replaced with a generic message.
func (rs *Responder) Error(w http.ResponseWriter, r *http.Request, err error) {
	status, message := classify(err)

	if status >= http.StatusInternalServerError {
		rs.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", logging.RoutePath(r)),
			zap.String("request_id", chiMiddleware.GetReqID(r.Context())),
			zap.Error(err),
		)
	}

	rs.Message(w, r, status, message)
}

func classify(err error) (int, string) {
	var verr *service.ValidationError

	switch {
	case errors.Is(err, errInvalidBody):
		return http.StatusBadRequest, "Invalid request body"
	case errors.Is(err, service.ErrResetTokenInvalid):
		return http.StatusBadRequest, "Token is invalid or has expired"
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Error()
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid email or password"
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, "Current password is incorrect"
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, service.ErrEmailExists):
		return http.StatusConflict, "Email already registered"
	case errors.Is(err, service.ErrEmailDelivery):
		return http.StatusInternalServerError, "There was an error sending the email. Please try again later!"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errInvalidBody
		}
		return errors.Join(errInvalidBody, err)
	}
	return nil
}
