package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/dom/account-service/internal/api/middleware"
	"github.com/dom/account-service/internal/config"
	"github.com/dom/account-service/internal/domain"
	"github.com/dom/account-service/internal/service"
	"github.com/go-chi/chi/v5"
)

type AccountHandler struct {
	accounts *service.AccountService
	cfg      *config.Config
	respond  *Responder
}

func NewAccountHandler(accounts *service.AccountService, cfg *config.Config, respond *Responder) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
		cfg:      cfg,
		respond:  respond,
	}
}

type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SigninRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UpdateProfileRequest struct {
	Name   *string `json:"name"`
	Email  *string `json:"email"`
	Avatar *string `json:"avatar"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	NewPassword string `json:"newPassword"`
}

type UserResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Avatar    *AvatarResponse `json:"avatar,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type AvatarResponse struct {
	URL string `json:"url"`
	Key string `json:"key,omitempty"`
}

func NewUserResponse(user *domain.User) UserResponse {
	resp := UserResponse{
		ID:        user.ID.String(),
		Name:      user.Name,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
	if avatar := user.AvatarData(); !avatar.IsZero() {
		resp.Avatar = &AvatarResponse{URL: avatar.URL, Key: avatar.Key}
	}
	return resp
}

func (h *AccountHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respond.Error(w, r, err)
		return
	}

	user, err := h.accounts.Signup(r.Context(), service.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}

	h.respond.JSON(w, http.StatusCreated, Envelope{
		Success: true,
		Message: "User registered successfully",
		Data:    NewUserResponse(user),
	})
}

func (h *AccountHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req SigninRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respond.Error(w, r, err)
		return
	}

	result, err := h.accounts.Signin(r.Context(), service.SigninInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}

	h.setSessionCookie(w, result.Token, result.ExpiresAt)
	h.respond.JSON(w, http.StatusOK, Envelope{
		Success: true,
		Message: "User logged in successfully",
		Data:    NewUserResponse(result.User),
		Token:   result.Token,
	})
}

// Signout needs no session; it always clears the cookie.
func (h *AccountHandler) Signout(w http.ResponseWriter, r *http.Request) {
	h.clearSessionCookie(w)
	h.respond.JSON(w, http.StatusOK, Envelope{
		Success: true,
		Message: "User logged out successfully",
	})
}

func (h *AccountHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		h.respond.Message(w, r, http.StatusUnauthorized, "Not authorized to access this route")
		return
	}

	h.respond.JSON(w, http.StatusOK, Envelope{
		Success: true,
		Message: "User profile retrieved successfully",
		Data:    NewUserResponse(user),
	})
}

func (h *AccountHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		h.respond.Message(w, r, http.StatusUnauthorized, "Not authorized to access this route")
		return
	}

	var req UpdateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respond.Error(w, r, err)
		return
	}

	updated, err := h.accounts.UpdateProfile(r.Context(), user, service.UpdateProfileInput{
		Name:   req.Name,
		Email:  req.Email,
		Avatar: req.Avatar,
	})
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}

	h.respond.JSON(w, http.StatusOK, Envelope{
		Success: true,
		Message: "User profile updated successfully",
		Data:    NewUserResponse(updated),
	})
}

func (h *AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		h.respond.Message(w, r, http.StatusUnauthorized, "Not authorized to access this route")
		return
	}

	var req ChangePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respond.Error(w, r, err)
		return
	}

	err := h.accounts.ChangePassword(r.Context(), user.ID, service.ChangePasswordInput{
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}

	h.respond.JSON(w, http.StatusOK, Envelope{
		Success: true,
		Message: "Password updated successfully",
	})
}

func (h *AccountHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respond.Error(w, r, err)
		return
	}

	if err := h.accounts.ForgotPassword(r.Context(), req.Email, h.baseURL(r)); err != nil {
		h.respond.Error(w, r, err)
		return
	}

	h.respond.JSON(w, http.StatusOK, Envelope{
		Success: true,
		Message: "Password reset link sent to email!",
	})
}

func (h *AccountHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	var req ResetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respond.Error(w, r, err)
		return
	}

	result, err := h.accounts.ResetPassword(r.Context(), token, req.NewPassword)
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}

	h.setSessionCookie(w, result.Token, result.ExpiresAt)
	h.respond.JSON(w, http.StatusOK, Envelope{
		Success: true,
		Message: "Password reset successfully",
		Data:    NewUserResponse(result.User),
		Token:   result.Token,
	})
}

func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		h.respond.Message(w, r, http.StatusUnauthorized, "Not authorized to access this route")
		return
	}

	if err := h.accounts.DeleteAccount(r.Context(), user); err != nil {
		h.respond.Error(w, r, err)
		return
	}

	h.clearSessionCookie(w)
	h.respond.JSON(w, http.StatusOK, Envelope{
		Success: true,
		Message: "Account deleted successfully",
	})
}

func (h *AccountHandler) CreateAvatarUpload(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		h.respond.Message(w, r, http.StatusUnauthorized, "Not authorized to access this route")
		return
	}

	upload, err := h.accounts.CreateAvatarUpload(r.Context(), user.ID)
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}

	h.respond.JSON(w, http.StatusOK, Envelope{
		Success: true,
		Message: "Avatar upload URL created",
		Data:    upload,
	})
}

func (h *AccountHandler) setSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AccountHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

// baseURL is where reset links point: APP_BASE_URL when set, otherwise the
// host the request came in on.
func (h *AccountHandler) baseURL(r *http.Request) string {
	if h.cfg.AppBaseURL != "" {
		return strings.TrimSuffix(h.cfg.AppBaseURL, "/")
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}
