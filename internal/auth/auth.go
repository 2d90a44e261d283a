package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"supportdesk/internal/config"
	"supportdesk/internal/models"

	"github.com/labstack/echo/v4"
)

// ContextKey is the echo context key holding the validated operator token
const ContextKey = "auth_token"

// ErrInvalidCredentials is returned for a wrong username or password
var ErrInvalidCredentials = fmt.Errorf("invalid credentials")

// Manager issues and validates operator tokens
type Manager struct {
	username    string
	password    string
	tokens      map[string]time.Time
	mu          sync.Mutex
	tokenExpiry time.Duration
	now         func() time.Time
}

// NewManager creates a new authentication manager
func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		username:    cfg.AdminUsername,
		password:    cfg.AdminPassword,
		tokens:      make(map[string]time.Time),
		tokenExpiry: cfg.AdminTokenTTL(),
		now:         time.Now,
	}
}

// Authenticate validates username and password and returns a token. Logins are
// refused while no admin password is configured.
func (am *Manager) Authenticate(username, password string) (string, error) {
	if am.password == "" ||
		subtle.ConstantTimeCompare([]byte(username), []byte(am.username)) != 1 ||
		subtle.ConstantTimeCompare([]byte(password), []byte(am.password)) != 1 {
		return "", ErrInvalidCredentials
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	token := base64.URLEncoding.EncodeToString(tokenBytes)

	am.mu.Lock()
	defer am.mu.Unlock()
	am.cleanupExpiredTokens()
	am.tokens[token] = am.now().Add(am.tokenExpiry)

	return token, nil
}

// ValidateToken checks if a token is valid, dropping it once expired
func (am *Manager) ValidateToken(token string) bool {
	am.mu.Lock()
	defer am.mu.Unlock()

	expiry, exists := am.tokens[token]
	if !exists {
		return false
	}
	if am.now().After(expiry) {
		delete(am.tokens, token)
		return false
	}
	return true
}

// Revoke invalidates a token
func (am *Manager) Revoke(token string) {
	am.mu.Lock()
	defer am.mu.Unlock()
	delete(am.tokens, token)
}

// cleanupExpiredTokens must be called with mu held
func (am *Manager) cleanupExpiredTokens() {
	now := am.now()
	for token, expiry := range am.tokens {
		if now.After(expiry) {
			delete(am.tokens, token)
		}
	}
}

// Middleware rejects requests without a valid bearer token (or token query parameter)
func Middleware(authManager *Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := c.Request().Header.Get("Authorization")
			if token != "" {
				token = strings.TrimPrefix(token, "Bearer ")
			} else {
				token = c.QueryParam("token")
			}

			if token == "" || !authManager.ValidateToken(token) {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error: "Unauthorized. Please login first.",
					Kind:  "unauthorized",
				})
			}

			c.Set(ContextKey, token)
			return next(c)
		}
	}
}
