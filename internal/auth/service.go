package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	redis "github.com/redis/go-redis/v9"

	"github.com/comptamatch/backend-compta/internal/common"
	"github.com/comptamatch/backend-compta/internal/store"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour

	issuer   = "backend-compta"
	audience = "comptamatch-frontend"

	roleClaim = "role"
)

// Known user roles.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// ErrInvalidCredentials is returned for unknown emails or wrong passwords.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Queries captures the user persistence the auth service needs.
type Queries interface {
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	GetUserByID(ctx context.Context, id pgtype.UUID) (store.User, error)
	CreateUser(ctx context.Context, u store.User) (store.User, error)
}

// User is the safe subset of the user model returned to clients.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// LoginResult bundles token material returned after a successful login.
type LoginResult struct {
	User          User      `json:"user"`
	AccessToken   string    `json:"accessToken"`
	AccessExpiry  time.Time `json:"accessExpiresAt"`
	RefreshToken  string    `json:"-"`
	RefreshExpiry time.Time `json:"-"`
}

// Service coordinates credentials, access tokens, and refresh sessions.
// Refresh tokens live in Redis keyed by their SHA-256 digest.
type Service struct {
	Q          Queries
	Sessions   *redis.Client
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) accessTTL() time.Duration {
	if s == nil || s.AccessTTL <= 0 {
		return defaultAccessTTL
	}
	return s.AccessTTL
}

func (s *Service) refreshTTL() time.Duration {
	if s == nil || s.RefreshTTL <= 0 {
		return defaultRefreshTTL
	}
	return s.RefreshTTL
}

// Register creates a new customer account.
func (s *Service) Register(ctx context.Context, email, password string) (User, error) {
	if s == nil || s.Q == nil {
		return User{}, errors.New("auth service not configured")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || len(password) < 8 {
		return User{}, common.NewAppError("VALIDATION_ERROR", "email and a password of at least 8 characters are required", http.StatusBadRequest, nil)
	}
	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	created, err := s.Q.CreateUser(ctx, store.User{Email: email, PasswordHash: hash, Role: RoleCustomer})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, common.NewAppError("CONFLICT", "email already registered", http.StatusConflict, nil)
		}
		return User{}, err
	}
	return safeUser(created), nil
}

// Login verifies credentials and issues a token pair.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	if s == nil || s.Q == nil {
		return LoginResult{}, errors.New("auth service not configured")
	}
	u, err := s.Q.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	match, err := argon2id.ComparePasswordAndHash(password, u.PasswordHash)
	if err != nil || !match {
		return LoginResult{}, ErrInvalidCredentials
	}
	access, accessExpiry, err := s.signAccessToken(u)
	if err != nil {
		return LoginResult{}, err
	}
	refresh, refreshExpiry, err := s.issueRefreshToken(ctx, store.UUIDString(u.ID))
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{
		User:          safeUser(u),
		AccessToken:   access,
		AccessExpiry:  accessExpiry,
		RefreshToken:  refresh,
		RefreshExpiry: refreshExpiry,
	}, nil
}

// Refresh rotates the refresh token and issues a new access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (LoginResult, error) {
	if s == nil || s.Q == nil || s.Sessions == nil {
		return LoginResult{}, errors.New("auth sessions not configured")
	}
	key := sessionKey(refreshToken)
	userID, err := s.Sessions.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	uID, err := store.ToUUID(userID)
	if err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}
	u, err := s.Q.GetUserByID(ctx, uID)
	if err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}
	_ = s.Sessions.Del(ctx, key).Err()
	access, accessExpiry, err := s.signAccessToken(u)
	if err != nil {
		return LoginResult{}, err
	}
	refresh, refreshExpiry, err := s.issueRefreshToken(ctx, userID)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{
		User:          safeUser(u),
		AccessToken:   access,
		AccessExpiry:  accessExpiry,
		RefreshToken:  refresh,
		RefreshExpiry: refreshExpiry,
	}, nil
}

// Logout revokes a refresh token.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if s == nil || s.Sessions == nil || strings.TrimSpace(refreshToken) == "" {
		return nil
	}
	return s.Sessions.Del(ctx, sessionKey(refreshToken)).Err()
}

// Me loads the current user's profile.
func (s *Service) Me(ctx context.Context, userID string) (User, error) {
	if s == nil || s.Q == nil {
		return User{}, errors.New("auth service not configured")
	}
	uID, err := store.ToUUID(userID)
	if err != nil {
		return User{}, common.NewAppError("UNAUTHORIZED", "invalid user", http.StatusUnauthorized, err)
	}
	u, err := s.Q.GetUserByID(ctx, uID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, common.NewAppError("UNAUTHORIZED", "unknown user", http.StatusUnauthorized, nil)
		}
		return User{}, err
	}
	return safeUser(u), nil
}

// ParseAccessToken validates a token and returns its subject and role.
func (s *Service) ParseAccessToken(token string) (string, string, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return "", "", common.NewAppError("UNAUTHORIZED", "missing token", http.StatusUnauthorized, nil)
	}
	parsed, err := jwt.ParseString(trimmed,
		jwt.WithKey(jwa.HS256, s.Secret),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithClock(jwt.ClockFunc(s.now)),
	)
	if err != nil {
		return "", "", common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	role := ""
	if raw, ok := parsed.Get(roleClaim); ok {
		role, _ = raw.(string)
	}
	return parsed.Subject(), role, nil
}

func (s *Service) signAccessToken(u store.User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.accessTTL())
	token, err := jwt.NewBuilder().
		Subject(store.UUIDString(u.ID)).
		Issuer(issuer).
		Audience([]string{audience}).
		IssuedAt(now).
		Expiration(expiresAt).
		Claim(roleClaim, u.Role).
		Build()
	if err != nil {
		return "", time.Time{}, err
	}
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, s.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return string(signed), expiresAt, nil
}

func (s *Service) issueRefreshToken(ctx context.Context, userID string) (string, time.Time, error) {
	if s.Sessions == nil {
		return "", time.Time{}, nil
	}
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", time.Time{}, fmt.Errorf("generate refresh token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(raw)
	ttl := s.refreshTTL()
	if err := s.Sessions.Set(ctx, sessionKey(token), userID, ttl).Err(); err != nil {
		return "", time.Time{}, fmt.Errorf("store refresh session: %w", err)
	}
	return token, s.now().Add(ttl), nil
}

func sessionKey(token string) string {
	return "auth:session:" + common.Sha256Hex(token)
}

func safeUser(u store.User) User {
	return User{
		ID:        store.UUIDString(u.ID),
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}
