// Package logging builds the service's zap logger and the HTTP request
// logging middleware.
package logging

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a console logger in development and a JSON logger otherwise.
func New(environment string) (*zap.Logger, error) {
	var cfg zap.Config
	if environment == "development" {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.CallerKey = "file"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build(zap.Fields(zap.String("service", "account-service")))
}

// RequestLogger logs one line per request once the handler returns.
// It must run after chi's RequestID middleware to pick up the id.
func RequestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				fields := []zap.Field{
					zap.String("method", r.Method),
					zap.String("path", RoutePath(r)),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("remote", r.RemoteAddr),
				}
				if reqID := chiMiddleware.GetReqID(r.Context()); reqID != "" {
					fields = append(fields, zap.String("request_id", reqID))
				}

				switch {
				case ww.Status() >= http.StatusInternalServerError:
					log.Error("request", fields...)
				case ww.Status() >= http.StatusBadRequest:
					log.Warn("request", fields...)
				default:
					log.Info("request", fields...)
				}
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// resetSegment precedes the raw reset token in reset-password URLs.
const resetSegment = "/reset-password/"

// RoutePath is the path to log for r: the matched chi route pattern, so URL
// parameters such as reset tokens stay out of the logs. Unmatched requests
// log their URL path with any reset token replaced.
func RoutePath(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}

	path := r.URL.Path
	if i := strings.Index(path, resetSegment); i >= 0 {
		return path[:i+len(resetSegment)] + "{token}"
	}
	return path
}
