package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/comptamatch/backend-compta/internal/common"
)

// CookieConfig controls how the refresh cookie is issued.
type CookieConfig struct {
	Name     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

// Handler exposes the authentication endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
	Cookie   CookieConfig
	Log      zerolog.Logger
}

type credentialsPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// Register creates a customer account.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}
	user, err := h.Svc.Register(r.Context(), payload.Email, payload.Password)
	if err != nil {
		h.writeError(w, err, "failed to register user")
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"user": user})
}

// Login verifies credentials and sets the refresh cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}
	result, err := h.Svc.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid email or password", nil)
			return
		}
		h.writeError(w, err, "failed to login")
		return
	}
	h.setRefreshCookie(w, result.RefreshToken, result.RefreshExpiry)
	common.JSON(w, http.StatusOK, result)
}

// Refresh exchanges the refresh cookie for a new token pair.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(h.Cookie.Name)
	if err != nil || cookie.Value == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing refresh token", nil)
		return
	}
	result, err := h.Svc.Refresh(r.Context(), cookie.Value)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			h.clearRefreshCookie(w)
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid refresh token", nil)
			return
		}
		h.writeError(w, err, "failed to refresh session")
		return
	}
	h.setRefreshCookie(w, result.RefreshToken, result.RefreshExpiry)
	common.JSON(w, http.StatusOK, result)
}

// Logout revokes the refresh session and clears the cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(h.Cookie.Name); err == nil {
		if err := h.Svc.Logout(r.Context(), cookie.Value); err != nil {
			h.Log.Warn().Err(err).Msg("failed to revoke refresh session")
		}
	}
	h.clearRefreshCookie(w)
	common.JSON(w, http.StatusOK, map[string]any{"ok": true})
}

// Me returns the authenticated user's profile.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	user, err := h.Svc.Me(r.Context(), userID)
	if err != nil {
		h.writeError(w, err, "failed to load profile")
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"user": user})
}

func (h *Handler) decodeCredentials(w http.ResponseWriter, r *http.Request) (credentialsPayload, bool) {
	var payload credentialsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body", nil)
		return payload, false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "email and a password of at least 8 characters are required", nil)
			return payload, false
		}
	}
	return payload, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error, fallback string) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, nil)
		return
	}
	h.Log.Error().Err(err).Msg(fallback)
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", fallback, nil)
}

func (h *Handler) setRefreshCookie(w http.ResponseWriter, token string, expiry time.Time) {
	if h.Cookie.Name == "" || token == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.Cookie.Name,
		Value:    token,
		Path:     "/api/v1/auth",
		Domain:   h.Cookie.Domain,
		Expires:  expiry,
		HttpOnly: true,
		Secure:   h.Cookie.Secure,
		SameSite: h.Cookie.SameSite,
	})
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	if h.Cookie.Name == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.Cookie.Name,
		Value:    "",
		Path:     "/api/v1/auth",
		Domain:   h.Cookie.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.Cookie.Secure,
		SameSite: h.Cookie.SameSite,
	})
}
