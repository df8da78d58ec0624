package api

import (
	"net/http"

	"github.com/dom/account-service/internal/api/handlers"
	"github.com/dom/account-service/internal/api/middleware"
	"github.com/dom/account-service/internal/config"
	"github.com/dom/account-service/internal/logging"
	"github.com/dom/account-service/internal/service"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func NewRouter(services *service.Services, cfg *config.Config, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(logging.RequestLogger(log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	respond := handlers.NewResponder(log)
	accountHandler := handlers.NewAccountHandler(services.Account, cfg, respond)
	requireSession := middleware.Auth(services.Account, log, respond.Message)

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Post("/signup", accountHandler.Signup)
		r.Post("/signin", accountHandler.Signin)
		r.Post("/signout", accountHandler.Signout)
		r.Post("/forgot-password", accountHandler.ForgotPassword)
		r.Post("/reset-password/{token}", accountHandler.ResetPassword)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(requireSession)
			r.Get("/profile", accountHandler.GetProfile)
			r.Patch("/profile", accountHandler.UpdateProfile)
			r.Patch("/password", accountHandler.ChangePassword)
			r.Delete("/account", accountHandler.DeleteAccount)
			r.Post("/avatar/upload-url", accountHandler.CreateAvatarUpload)
		})
	})

	return r
}
