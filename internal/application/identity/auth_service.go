// Package identity implements authentication and the account endpoints.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/store/backend/internal/domain/identity"
	"github.com/store/backend/internal/domain/shared"
	"github.com/store/backend/internal/infrastructure/auth"
	"github.com/store/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// ErrBadCredentials is returned for an unknown login, a wrong password or
// a deactivated account alike
var ErrBadCredentials = shared.NewDomainError(shared.CodeUnauthorized, "Bad credentials")

// AuthService handles authentication operations
type AuthService struct {
	users     identity.UserRepository
	tokens    *auth.JWTService
	blacklist auth.TokenBlacklist
	logger    *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	users identity.UserRepository,
	tokens *auth.JWTService,
	blacklist auth.TokenBlacklist,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		blacklist: blacklist,
		logger:    logger,
	}
}

// Authenticate checks the credentials and issues a token
func (s *AuthService) Authenticate(ctx context.Context, input AuthenticateInput) (*TokenResponse, error) {
	login := strings.ToLower(strings.TrimSpace(input.Username))

	user, err := s.users.FindByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("Login attempt for unknown user", zap.String("login", login))
			return nil, ErrBadCredentials
		}
		return nil, err
	}
	if !user.CanLogin() {
		s.logger.Warn("Login attempt for deactivated account", zap.String("login", login))
		return nil, ErrBadCredentials
	}
	if !user.VerifyPassword(input.Password) {
		s.logger.Warn("Invalid password attempt", zap.String("login", login))
		return nil, ErrBadCredentials
	}

	resp, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	s.logger.Info("User authenticated", zap.String("login", login))
	return resp, nil
}

func (s *AuthService) issue(user *identity.User) (*TokenResponse, error) {
	token, err := s.tokens.Generate(user.Login, user.Authorities)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &TokenResponse{IDToken: token.Value, ExpiresAt: token.ExpiresAt}, nil
}

// Account returns the user behind the token
func (s *AuthService) Account(ctx context.Context, login string) (*identity.User, error) {
	user, err := s.users.FindByLogin(ctx, login)
	if errors.Is(err, shared.ErrNotFound) {
		// the account was removed after the token was issued
		return nil, shared.ErrUnauthorized
	}
	return user, err
}

// ChangePassword replaces the password after checking the current one.
// Tokens issued before the change stop working; a fresh token is returned.
func (s *AuthService) ChangePassword(ctx context.Context, claims *auth.Claims, input ChangePasswordInput) (*TokenResponse, error) {
	user, err := s.Account(ctx, claims.Login())
	if err != nil {
		return nil, err
	}
	if err := user.ChangePassword(input.CurrentPassword, input.NewPassword); err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	if err := s.blacklist.RevokeAllBefore(ctx, user.Login, time.Now(), s.tokens.Expiration()); err != nil {
		s.logger.Error("Failed to revoke tokens after password change", zap.String("login", user.Login), zap.Error(err))
	}
	// tokens issued within the current second survive the cutoff
	if err := s.blacklist.Revoke(ctx, claims.ID, claims.RemainingTTL()); err != nil {
		s.logger.Error("Failed to revoke current token", zap.String("login", user.Login), zap.Error(err))
	}

	s.logger.Info("Password changed", zap.String("login", user.Login))
	return s.issue(user)
}

// Logout revokes the presented token until it would have expired
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	ttl := claims.RemainingTTL()
	if ttl <= 0 {
		return nil
	}
	if err := s.blacklist.Revoke(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	s.logger.Info("User logged out", zap.String("login", claims.Login()))
	return nil
}

// BootstrapAdmin creates the admin account on first start. Nothing happens
// when no admin password is configured or the login already exists.
func (s *AuthService) BootstrapAdmin(ctx context.Context, cfg config.AuthConfig) (bool, error) {
	if cfg.AdminPassword == "" {
		return false, nil
	}
	login := cfg.AdminLogin
	if login == "" {
		login = "admin"
	}

	exists, err := s.users.ExistsByLogin(ctx, login)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	admin, err := identity.NewUser(login, cfg.AdminPassword, identity.AuthorityAdmin, identity.AuthorityUser)
	if err != nil {
		return false, err
	}
	admin.Email = cfg.AdminEmail
	if err := s.users.Create(ctx, admin); err != nil {
		return false, err
	}
	s.logger.Info("Created bootstrap admin account", zap.String("login", admin.Login))
	return true, nil
}
