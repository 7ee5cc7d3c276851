package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/comptamatch/backend-compta/internal/common"
)

var errNoToken = errors.New("no token provided")

// Middleware attaches the authenticated identity to request contexts.
type Middleware struct {
	Service      *Service
	AccessCookie string
}

// Authenticate attaches the user to the context when a valid token is
// present, but lets anonymous requests through.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, role, err := m.identify(r)
		if err == nil {
			ctx := common.WithUserID(r.Context(), userID)
			ctx = common.WithUserRole(ctx, role)
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth rejects requests without a valid access token.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, role, err := m.identify(r)
		if err != nil {
			if errors.Is(err, errNoToken) {
				common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
				return
			}
			var appErr *common.AppError
			if errors.As(err, &appErr) {
				common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, nil)
				return
			}
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token", nil)
			return
		}
		ctx := common.WithUserID(r.Context(), userID)
		ctx = common.WithUserRole(ctx, role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects authenticated users whose role does not match.
// It must run inside RequireAuth.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			current, ok := common.UserRole(r.Context())
			if !ok || current != role {
				common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m *Middleware) identify(r *http.Request) (string, string, error) {
	if m == nil || m.Service == nil {
		return "", "", errors.New("auth middleware not configured")
	}
	token, err := m.extractToken(r)
	if err != nil {
		return "", "", err
	}
	return m.Service.ParseAccessToken(token)
}

func (m *Middleware) extractToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header != "" {
		if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
			return strings.TrimSpace(header[7:]), nil
		}
		return "", errNoToken
	}
	if m.AccessCookie != "" {
		if cookie, err := r.Cookie(m.AccessCookie); err == nil && cookie.Value != "" {
			return cookie.Value, nil
		}
	}
	return "", errNoToken
}
