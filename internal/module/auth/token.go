package auth

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/simp-lee/jwt"

	"github.com/simp-lee/bankoffice/internal/domain"
	"github.com/simp-lee/bankoffice/internal/middleware"
)

// TokenIssuer is the iss claim of every console token.
const TokenIssuer = "bankoffice"

// revocationWindow is how long user-level revocations are remembered. It
// must outlive the longest token.
const revocationWindow = 30 * 24 * time.Hour

// userLookup resolves the staff member named by a token subject.
type userLookup interface {
	GetByID(ctx context.Context, id uint) (*domain.User, error)
}

// TokenManager issues and verifies HS256 session tokens through jwt.Service.
// Tokens carry only the user id; name and email are read from the user
// store on every verification, so deleted users lose access at once.
type TokenManager struct {
	jwtSvc jwt.Service
	users  userLookup
	ttl    time.Duration
	now    func() time.Time
}

type clockFunc func() time.Time

func (f clockFunc) Now() time.Time { return f() }

// NewTokenManager creates a TokenManager signing with secret. The secret
// must be at least 32 characters.
func NewTokenManager(secret string, ttl time.Duration, users userLookup) (*TokenManager, error) {
	if secret == "" {
		return nil, errors.New("auth: jwt secret must not be empty")
	}
	if ttl <= 0 {
		return nil, errors.New("auth: token ttl must be positive")
	}
	if users == nil {
		return nil, errors.New("auth: user lookup is required")
	}
	m := &TokenManager{users: users, ttl: ttl, now: time.Now}
	svc, err := jwt.New(secret,
		jwt.WithIssuer(TokenIssuer),
		jwt.WithMaxTokenLifetime(ttl),
		jwt.WithUserRevocationTTL(max(ttl, revocationWindow)),
		jwt.WithClock(clockFunc(func() time.Time { return m.now() })),
	)
	if err != nil {
		return nil, err
	}
	m.jwtSvc = svc
	return m, nil
}

// TTL returns the lifetime of issued tokens.
func (m *TokenManager) TTL() time.Duration { return m.ttl }

// Issue signs a new token for user.
func (m *TokenManager) Issue(user *domain.User) (string, time.Time, error) {
	token, err := m.jwtSvc.GenerateToken(strconv.FormatUint(uint64(user.ID), 10), nil, m.ttl)
	if err != nil {
		return "", time.Time{}, err
	}
	parsed, err := m.jwtSvc.ParseToken(token)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, parsed.ExpiresAt, nil
}

// Verify parses token and returns its principal. Expired, forged and
// revoked tokens, and tokens of users that no longer exist, yield
// domain.ErrUnauthorized.
func (m *TokenManager) Verify(ctx context.Context, token string) (*middleware.Principal, error) {
	parsed, err := m.jwtSvc.ValidateToken(token)
	if err != nil {
		return nil, domain.NewAppError(domain.CodeUnauthorized, "invalid token", err)
	}
	id, err := strconv.ParseUint(parsed.UserID, 10, 64)
	if err != nil || id == 0 {
		return nil, domain.NewAppError(domain.CodeUnauthorized, "invalid token subject", err)
	}
	user, err := m.users.GetByID(ctx, uint(id))
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, domain.NewAppError(domain.CodeUnauthorized, "token user no longer exists", err)
		}
		return nil, err
	}
	return &middleware.Principal{
		UserID:  user.ID,
		Email:   user.Email,
		Name:    user.Name,
		Token:   token,
		TokenID: parsed.TokenID,
		Expires: parsed.ExpiresAt,
	}, nil
}

// Revoke invalidates token. Unparseable tokens are ignored.
func (m *TokenManager) Revoke(token string) error {
	if token == "" {
		return nil
	}
	return m.jwtSvc.RevokeToken(token)
}

// IsRevoked reports whether the token with the given id was revoked.
func (m *TokenManager) IsRevoked(tokenID string) bool {
	return m.jwtSvc.IsTokenRevoked(tokenID)
}

// Close stops the background cleanup of the revocation list.
func (m *TokenManager) Close() { m.jwtSvc.Close() }
