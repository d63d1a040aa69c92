package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"campus-eats-be/internal/logger"

	"go.uber.org/zap"
)

const DefaultTokenTTL = 12 * time.Hour

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAdminDisabled      = errors.New("admin login is not configured")
)

// AdminAuthenticator checks the single canteen admin account configured
// through the environment and issues session tokens.
type AdminAuthenticator struct {
	username     string
	passwordHash string
	secret       string
	ttl          time.Duration
	now          func() time.Time
}

func NewAdminAuthenticator(username, passwordHash, secret string) *AdminAuthenticator {
	return &AdminAuthenticator{
		username:     username,
		passwordHash: passwordHash,
		secret:       secret,
		ttl:          DefaultTokenTTL,
		now:          time.Now,
	}
}

func (a *AdminAuthenticator) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	log := logger.FromCtx(ctx)

	if a.username == "" || a.passwordHash == "" {
		return "", time.Time{}, ErrAdminDisabled
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passOK := CheckPasswordHash(password, a.passwordHash)
	if !userOK || !passOK {
		log.Warn("admin login rejected", zap.String("username", username))
		return "", time.Time{}, ErrInvalidCredentials
	}

	now := a.now()
	token, err := GenerateJWT(a.secret, a.username, RoleAdmin, a.ttl, now)
	if err != nil {
		return "", time.Time{}, err
	}

	log.Info("admin logged in", zap.String("username", username))
	return token, now.Add(a.ttl), nil
}

// Verify returns the claims of a valid admin token.
func (a *AdminAuthenticator) Verify(token string) (*Claims, error) {
	claims, err := ParseJWT(a.secret, token)
	if err != nil {
		return nil, err
	}
	if claims.Role != RoleAdmin {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
