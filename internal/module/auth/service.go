package auth

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/simp-lee/bankoffice/internal/domain"
	"github.com/simp-lee/bankoffice/internal/middleware"
	"github.com/simp-lee/bankoffice/internal/validation"
)

// Messages shown to the user.
const (
	InvalidCredentialsMessage = "Invalid email or password"
	EmailTakenMessage         = "Email already registered"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

// bcrypt ignores input past 72 bytes.
const maxPasswordLength = 72

// Service defines the authentication operations.
type Service interface {
	Login(ctx context.Context, email, password string) (*TokenResponse, error)
	Register(ctx context.Context, name, email, password string) (*TokenResponse, error)
	Me(ctx context.Context, userID uint) (*domain.User, error)
	Logout(ctx context.Context, p *middleware.Principal)
	EnsureUser(ctx context.Context, name, email, password string) (*domain.User, bool, error)
}

// authService implements Service.
type authService struct {
	tokens   *TokenManager
	userRepo domain.UserRepository
}

// NewService creates a new auth Service.
func NewService(tokens *TokenManager, userRepo domain.UserRepository) Service {
	return &authService{tokens: tokens, userRepo: userRepo}
}

// Login authenticates a user by email and password and returns a JWT token.
func (s *authService) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		// Don't reveal whether the user exists.
		if domain.IsNotFound(err) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, errInvalidCredentials
	}

	return s.issue(user)
}

var errInvalidCredentials = domain.NewAppError(domain.CodeUnauthorized, InvalidCredentialsMessage, nil)

// Register creates a staff user and signs them in.
func (s *authService) Register(ctx context.Context, name, email, password string) (*TokenResponse, error) {
	user, err := s.create(ctx, name, email, password)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// Me returns the signed-in user.
func (s *authService) Me(ctx context.Context, userID uint) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	return user, nil
}

// Logout revokes the principal's token.
func (s *authService) Logout(ctx context.Context, p *middleware.Principal) {
	if p == nil {
		return
	}
	if err := s.tokens.Revoke(p.Token); err != nil {
		slog.WarnContext(ctx, "revoke token failed", "user_id", p.UserID, "error", err)
		return
	}
	slog.InfoContext(ctx, "user signed out", "user_id", p.UserID)
}

// EnsureUser creates the user unless one with the same email exists.
// The bool result reports whether a user was created.
func (s *authService) EnsureUser(ctx context.Context, name, email, password string) (*domain.User, bool, error) {
	existing, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err == nil {
		return existing, false, nil
	}
	if !domain.IsNotFound(err) {
		return nil, false, err
	}
	user, err := s.create(ctx, name, email, password)
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func (s *authService) create(ctx context.Context, name, email, password string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if err := validateRegisterInput(name, email, password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, domain.NewAppError(domain.CodeInternal, "failed to hash password", err)
	}

	user := domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.userRepo.Create(ctx, &user); err != nil {
		if domain.IsAlreadyExists(err) {
			return nil, domain.NewAppError(domain.CodeAlreadyExists, EmailTakenMessage, err)
		}
		return nil, err
	}
	return &user, nil
}

func (s *authService) issue(user *domain.User) (*TokenResponse, error) {
	token, expires, err := s.tokens.Issue(user)
	if err != nil {
		return nil, domain.NewAppError(domain.CodeInternal, "failed to generate token", err)
	}
	return &TokenResponse{
		Token:     token,
		ExpiresAt: expires.Unix(),
		User:      newUserResponse(user),
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validateRegisterInput validates registration input. name and email are
// expected to be trimmed already.
func validateRegisterInput(name, email, password string) error {
	fields := map[string]string{}
	nameLen := utf8.RuneCountInString(name)
	switch {
	case nameLen == 0:
		fields["name"] = "Name is required"
	case nameLen > 100:
		fields["name"] = "Name must not exceed 100 characters"
	}
	switch {
	case email == "":
		fields["email"] = "Email is required"
	case !validation.IsEmail(email):
		fields["email"] = "Invalid email format"
	}
	switch {
	case password == "":
		fields["password"] = "Password is required"
	case len(password) < MinPasswordLength:
		fields["password"] = "Password must be at least 6 characters"
	case len(password) > maxPasswordLength:
		fields["password"] = "Password must not exceed 72 characters"
	}
	if len(fields) > 0 {
		return domain.NewFieldError(fields)
	}
	return nil
}
