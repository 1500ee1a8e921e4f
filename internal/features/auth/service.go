package auth

import (
	"context"
	"errors"
	"time"

	"erp-admin/internal/common/models"
	"erp-admin/internal/features/audit"
	"erp-admin/internal/features/user"
	"erp-admin/internal/password"
	"erp-admin/pkg/utils"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account inactive")
	ErrTempPasswordUsed   = errors.New("temporary password expired")
	ErrWeakPassword       = errors.New("password does not meet the policy")
)

// LoginResult is what the UI needs to establish a session.
type LoginResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type AuthService interface {
	Login(ctx context.Context, username, plainPassword string) (*LoginResult, error)
	CurrentUser(ctx context.Context) (*models.User, error)
	ChangePassword(ctx context.Context, oldPassword, newPassword string) error
}

type AuthServiceImpl struct {
	UserRepo     user.UserRepository
	AuditService audit.AuditService
	Passwords    password.Policy
}

func NewAuthService(userRepo user.UserRepository, auditService audit.AuditService) AuthService {
	return &AuthServiceImpl{
		UserRepo:     userRepo,
		AuditService: auditService,
		Passwords:    password.DefaultPolicy,
	}
}

func (s *AuthServiceImpl) Login(ctx context.Context, username, plainPassword string) (*LoginResult, error) {
	usr, err := s.UserRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(usr.Password), []byte(plainPassword)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if usr.Status == models.StatusInactive {
		return nil, ErrAccountInactive
	}

	// A temporary password is only good until its expiry.
	if usr.TempPasswordExpiresAt != nil && time.Now().After(*usr.TempPasswordExpiresAt) {
		return nil, ErrTempPasswordUsed
	}

	token, err := utils.GenerateToken(usr.ID, usr.Username, usr.Role)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	usr.LastLogin = &now
	usr.UpdatedAt = now
	if err := s.UserRepo.Update(ctx, usr.ID.Hex(), usr); err != nil {
		return nil, err
	}

	_ = s.AuditService.LogChange(ctx, models.AuditActionLogin, "user", usr.ID.Hex(), nil)

	return &LoginResult{Token: token, User: usr}, nil
}

func (s *AuthServiceImpl) CurrentUser(ctx context.Context) (*models.User, error) {
	claims, ok := ctx.Value(utils.UserClaimsKey).(*utils.UserClaims)
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return s.UserRepo.FindByID(ctx, claims.UserID)
}

func (s *AuthServiceImpl) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	usr, err := s.CurrentUser(ctx)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(usr.Password), []byte(oldPassword)); err != nil {
		return ErrInvalidCredentials
	}
	if !s.Passwords.Meets(newPassword) {
		return ErrWeakPassword
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	now := time.Now()
	usr.Password = string(hashed)
	usr.MustChangePassword = false
	usr.TempPasswordExpiresAt = nil
	usr.LastPasswordResetAt = &now
	usr.UpdatedAt = now

	if err := s.UserRepo.Update(ctx, usr.ID.Hex(), usr); err != nil {
		return err
	}

	_ = s.AuditService.LogChange(ctx, models.AuditActionUpdate, "user", usr.ID.Hex(), map[string]models.Change{
		"password_changed": {New: true},
	})

	return nil
}
