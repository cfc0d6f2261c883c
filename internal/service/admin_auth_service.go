package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/GTDGit/gtd_backoffice/internal/metrics"
	"github.com/GTDGit/gtd_backoffice/internal/models"
	"github.com/GTDGit/gtd_backoffice/internal/repository"
	"github.com/GTDGit/gtd_backoffice/internal/utils"
)

// MinPasswordLength is the shortest accepted admin password.
const MinPasswordLength = 8

// AdminAuthService issues, validates and revokes admin bearer tokens and
// manages admin credentials. Each admin holds at most one active token.
type AdminAuthService struct {
	adminRepo repository.AdminUserStore
}

func NewAdminAuthService(adminRepo repository.AdminUserStore) *AdminAuthService {
	return &AdminAuthService{adminRepo: adminRepo}
}

// LoginResult is returned by a successful login. Token is the raw bearer token
// and is never stored.
type LoginResult struct {
	Token string            `json:"token"`
	User  *models.AdminUser `json:"user"`
}

// Login verifies credentials and issues a new token, replacing any token the
// admin held before. Unknown email, inactive account and wrong password all
// yield utils.ErrInvalidCredentials.
func (s *AdminAuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	log.Debug().Str("email", email).Msg("Login attempt")

	user, err := s.adminRepo.GetActiveByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Warn().Str("email", email).Msg("Login rejected: unknown or inactive account")
			metrics.AuthFailures.WithLabelValues("credentials").Inc()
			return nil, utils.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get admin by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		log.Warn().Str("email", email).Msg("Login rejected: password mismatch")
		metrics.AuthFailures.WithLabelValues("credentials").Inc()
		return nil, utils.ErrInvalidCredentials
	}

	token, err := utils.GenerateAccessToken()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	digest := utils.HashToken(token)
	if err := s.adminRepo.SetToken(ctx, user.ID, digest); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}
	user.APIToken = &digest

	log.Info().Int("admin_id", user.ID).Str("email", user.Email).Msg("Login successful")
	return &LoginResult{Token: token, User: user}, nil
}

// Authenticate resolves a bearer token to its active admin.
func (s *AdminAuthService) Authenticate(ctx context.Context, token string) (*models.AdminIdentity, error) {
	if token == "" {
		return nil, utils.ErrUnauthenticated
	}
	user, err := s.adminRepo.GetActiveByTokenHash(ctx, utils.HashToken(token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrInvalidToken
		}
		return nil, fmt.Errorf("get admin by token: %w", err)
	}
	return user.Identity(), nil
}

// Logout revokes token. Unknown or empty tokens are not an error.
func (s *AdminAuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	cleared, err := s.adminRepo.ClearTokenByHash(ctx, utils.HashToken(token))
	if err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	if cleared {
		log.Info().Msg("Admin logged out")
	}
	return nil
}

// ChangePasswordRequest is the body of PUT /admin/password.
type ChangePasswordRequest struct {
	CurrentPassword         string `json:"current_password" validate:"required"`
	NewPassword             string `json:"new_password" validate:"required,min=8"`
	NewPasswordConfirmation string `json:"new_password_confirmation" validate:"required,eqfield=NewPassword"`
}

// ChangePassword replaces the admin's password after verifying the current
// one. The admin's current token stays valid.
func (s *AdminAuthService) ChangePassword(ctx context.Context, adminID int, current, next string) error {
	if len(next) < MinPasswordLength {
		return utils.NewValidationError("new_password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}

	user, err := s.adminRepo.GetByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return utils.ErrNotFound
		}
		return fmt.Errorf("get admin: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return utils.ErrIncorrectPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.adminRepo.UpdatePassword(ctx, adminID, string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	log.Info().Int("admin_id", adminID).Msg("Admin password changed")
	return nil
}

// Me returns the admin's profile.
func (s *AdminAuthService) Me(ctx context.Context, adminID int) (*models.AdminUser, error) {
	user, err := s.adminRepo.GetByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrNotFound
		}
		return nil, fmt.Errorf("get admin: %w", err)
	}
	return user, nil
}

// CreateAdmin adds an active admin account.
func (s *AdminAuthService) CreateAdmin(ctx context.Context, name, email, password, role string) (*models.AdminUser, error) {
	verr := &utils.ValidationError{}
	email = strings.TrimSpace(email)
	if strings.TrimSpace(name) == "" {
		verr.Add("name", "is required")
	}
	if !strings.Contains(email, "@") {
		verr.Add("email", "must be a valid email address")
	}
	if len(password) < MinPasswordLength {
		verr.Add("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}
	if len(verr.Fields) > 0 {
		return nil, verr
	}
	if role == "" {
		role = "admin"
	}

	if _, err := s.adminRepo.GetByEmail(ctx, email); err == nil {
		return nil, utils.NewValidationError("email", "has already been taken")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get admin by email: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.AdminUser{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: string(hashedPassword),
		Role:         role,
		IsActive:     true,
	}
	if err := s.adminRepo.Create(ctx, user); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, utils.NewValidationError("email", "has already been taken")
		}
		return nil, fmt.Errorf("create admin: %w", err)
	}
	return user, nil
}
