package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/wage-wallet/internal/auth"
	"github.com/spec-kit/wage-wallet/internal/config"
	"github.com/spec-kit/wage-wallet/internal/domain"
	"github.com/spec-kit/wage-wallet/internal/repository"
	apperrors "github.com/spec-kit/wage-wallet/pkg/util/errorutil"
)

const minPasswordLength = 8

// AuthService coordinates registration and login flows for users and admins.
type AuthService struct {
	users      repository.UserRepository
	admins     repository.AdminRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo  repository.UserRepository
	AdminRepo repository.AdminRepository
	Logger    *zap.Logger
}

// RegisterUserInput is the self-service sign-up payload.
type RegisterUserInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
}

// AuthResult bundles a principal's token.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		admins:     deps.AdminRepo,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost: cfg.BcryptCost,
		logger:     logger,
	}
}

// RegisterUser creates a new end-user account and signs them in.
func (s *AuthService) RegisterUser(ctx context.Context, input RegisterUserInput) (*domain.User, *AuthResult, error) {
	name := strings.TrimSpace(input.Name)
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, nil, err
	}
	if name == "" {
		return nil, nil, apperrors.NewInvalidArgument("name is required.", nil)
	}
	if len(input.Password) < minPasswordLength {
		return nil, nil, apperrors.NewInvalidArgument("password must be at least 8 characters.", nil)
	}
	phone, err := NormalizePhone(input.Phone)
	if err != nil {
		return nil, nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		Phone:        phone,
		PasswordHash: hash,
		Status:       domain.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, nil, apperrors.NewAlreadyExists("email already registered", nil)
		}
		return nil, nil, apperrors.MapError(err)
	}

	result, err := s.issue(user.ID, domain.SubjectTypeUser)
	if err != nil {
		return nil, nil, err
	}
	return user, result, nil
}

// LoginUser authenticates an end-user.
func (s *AuthService) LoginUser(ctx context.Context, email, password string) (*domain.User, *AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, apperrors.NewUnauthenticated("invalid credentials")
		}
		return nil, nil, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, nil, apperrors.NewUnauthenticated("invalid credentials")
	}
	if !user.CanSignIn() {
		return nil, nil, apperrors.NewPermissionDenied("Account suspended.")
	}
	s.rehashIfNeeded(ctx, user, password)
	result, err := s.issue(user.ID, domain.SubjectTypeUser)
	if err != nil {
		return nil, nil, err
	}
	return user, result, nil
}

// LoginAdmin authenticates an administrator.
func (s *AuthService) LoginAdmin(ctx context.Context, email, password string) (*domain.Admin, *AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	admin, err := s.admins.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, apperrors.NewUnauthenticated("invalid credentials")
		}
		return nil, nil, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(admin.PasswordHash, password); err != nil {
		return nil, nil, apperrors.NewUnauthenticated("invalid credentials")
	}
	if !admin.CanSignIn() {
		return nil, nil, apperrors.NewPermissionDenied("Admin account disabled.")
	}
	result, err := s.issue(admin.ID, domain.SubjectTypeAdmin)
	if err != nil {
		return nil, nil, err
	}
	return admin, result, nil
}

// EnsureBootstrapAdmin creates the configured admin when it does not exist
// yet. Missing credentials disable bootstrapping.
func (s *AuthService) EnsureBootstrapAdmin(ctx context.Context, name, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		s.logger.Warn("bootstrap admin not configured; admin endpoints unusable until one exists")
		return nil
	}
	if _, err := s.admins.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return err
	}
	admin := &domain.Admin{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
		Active:       true,
	}
	if err := s.admins.Create(ctx, admin); err != nil && !errors.Is(err, repository.ErrAlreadyExists) {
		return err
	}
	s.logger.Info("bootstrap admin created", zap.String("email", email))
	return nil
}

// rehashIfNeeded upgrades a user's hash after the configured cost changed.
// Failures are logged; the login itself already succeeded.
func (s *AuthService) rehashIfNeeded(ctx context.Context, user *domain.User, password string) {
	if auth.HashCost(user.PasswordHash) == s.bcryptCost {
		return
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		s.logger.Warn("password rehash failed", zap.String("user_id", user.ID), zap.Error(err))
		return
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		s.logger.Warn("password rehash not saved", zap.String("user_id", user.ID), zap.Error(err))
	}
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) issue(subjectID string, subject domain.SubjectType) (*AuthResult, error) {
	token, exp, err := s.tokenMgr.GenerateToken(subjectID, subject)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &AuthResult{Token: token, ExpiresAt: exp}, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", apperrors.NewInvalidArgument("email is required.", nil)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", apperrors.NewInvalidArgument("email is invalid.", nil)
	}
	return email, nil
}
