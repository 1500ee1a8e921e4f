package user

import (
	"context"
	"errors"
	"regexp"
	"time"

	"erp-admin/internal/common/models"
	"erp-admin/internal/features/audit"
	"erp-admin/internal/password"
	"erp-admin/internal/policy"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrLastAdmin guards the invariant that at least one admin always
	// remains. Checked before any write is attempted.
	ErrLastAdmin = errors.New("at least one admin must remain")

	ErrUsernameTaken = errors.New("username already exists")
	ErrWeakPassword  = errors.New("password does not meet the policy")
	ErrInvalidRole   = errors.New("invalid role")
	ErrInvalidStatus = errors.New("invalid status: must be Active or Inactive")
)

type UserService interface {
	ListUsers(ctx context.Context, search, role, status string, page, limit int64) ([]models.User, int64, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User, plainPassword string) error
	UpdateUser(ctx context.Context, id string, updates map[string]interface{}) (*models.User, error)
	UpdateUserStatus(ctx context.Context, id string, status string) error
	DeleteUser(ctx context.Context, id string) error
	SetTempPassword(ctx context.Context, id, plainPassword string, expiresInMins int, mustChange bool) error
	RecordPasswordReset(ctx context.Context, id string) error
	AdminCount(ctx context.Context) (int64, error)
}

type UserServiceImpl struct {
	UserRepo     UserRepository
	AuditService audit.AuditService
	Passwords    password.Policy
}

func NewUserService(userRepo UserRepository, auditService audit.AuditService) UserService {
	return &UserServiceImpl{
		UserRepo:     userRepo,
		AuditService: auditService,
		Passwords:    password.DefaultPolicy,
	}
}

func (s *UserServiceImpl) ListUsers(ctx context.Context, search, role, status string, page, limit int64) ([]models.User, int64, error) {
	filter := make(map[string]interface{})
	if role != "" && role != "all" {
		filter["role"] = role
	}
	if status != "" && status != "all" {
		filter["status"] = status
	}
	if search != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
		filter["$or"] = []map[string]interface{}{
			{"username": re},
			{"first_name": re},
			{"last_name": re},
			{"email": re},
		}
	}

	offset := (page - 1) * limit
	return s.UserRepo.List(ctx, filter, limit, offset)
}

func (s *UserServiceImpl) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.UserRepo.FindByID(ctx, id)
}

func (s *UserServiceImpl) CreateUser(ctx context.Context, user *models.User, plainPassword string) error {
	if !policy.ValidRole(policy.Role(user.Role)) {
		return ErrInvalidRole
	}
	if !s.Passwords.Meets(plainPassword) {
		return ErrWeakPassword
	}

	if _, err := s.UserRepo.FindByUsername(ctx, user.Username); err == nil {
		return ErrUsernameTaken
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plainPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.Password = string(hashed)

	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if user.Status == "" {
		user.Status = models.StatusActive
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	user.UpdatedAt = time.Now()

	if err := s.UserRepo.Create(ctx, user); err != nil {
		return err
	}

	changes := map[string]models.Change{
		"username": {New: user.Username},
		"email":    {New: user.Email},
		"role":     {New: user.Role},
		"created":  {New: true},
	}
	_ = s.AuditService.LogChange(ctx, models.AuditActionCreate, "user", user.ID.Hex(), changes)

	return nil
}

func (s *UserServiceImpl) UpdateUser(ctx context.Context, id string, updates map[string]interface{}) (*models.User, error) {
	user, err := s.UserRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Demoting the only admin would leave the system without one. Reject
	// before touching the store.
	if newRole, ok := updates["role"].(string); ok && newRole != user.Role {
		if !policy.ValidRole(policy.Role(newRole)) {
			return nil, ErrInvalidRole
		}
		if user.Role == string(policy.RoleAdmin) {
			count, err := s.UserRepo.CountByRole(ctx, string(policy.RoleAdmin))
			if err != nil {
				return nil, err
			}
			if count <= 1 {
				return nil, ErrLastAdmin
			}
		}
	}

	changes := make(map[string]models.Change)

	if username, ok := updates["username"].(string); ok && username != user.Username {
		if _, err := s.UserRepo.FindByUsername(ctx, username); err == nil {
			return nil, ErrUsernameTaken
		} else if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}
		changes["username"] = models.Change{Old: user.Username, New: username}
		user.Username = username
	}
	if email, ok := updates["email"].(string); ok && email != user.Email {
		changes["email"] = models.Change{Old: user.Email, New: email}
		user.Email = email
	}
	if firstName, ok := updates["first_name"].(string); ok && firstName != user.FirstName {
		changes["first_name"] = models.Change{Old: user.FirstName, New: firstName}
		user.FirstName = firstName
	}
	if lastName, ok := updates["last_name"].(string); ok && lastName != user.LastName {
		changes["last_name"] = models.Change{Old: user.LastName, New: lastName}
		user.LastName = lastName
	}
	if role, ok := updates["role"].(string); ok && role != user.Role {
		changes["role"] = models.Change{Old: user.Role, New: role}
		user.Role = role
	}
	if status, ok := updates["status"].(string); ok && status != user.Status {
		if status != models.StatusActive && status != models.StatusInactive {
			return nil, ErrInvalidStatus
		}
		changes["status"] = models.Change{Old: user.Status, New: status}
		user.Status = status
	}

	user.UpdatedAt = time.Now()

	if err := s.UserRepo.Update(ctx, id, user); err != nil {
		return nil, err
	}

	if len(changes) > 0 {
		_ = s.AuditService.LogChange(ctx, models.AuditActionUpdate, "user", id, changes)
	}

	return user, nil
}

func (s *UserServiceImpl) UpdateUserStatus(ctx context.Context, id string, status string) error {
	if status != models.StatusActive && status != models.StatusInactive {
		return ErrInvalidStatus
	}
	_, err := s.UpdateUser(ctx, id, map[string]interface{}{"status": status})
	return err
}

func (s *UserServiceImpl) DeleteUser(ctx context.Context, id string) error {
	user, err := s.UserRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	// Never delete the last admin.
	if user.Role == string(policy.RoleAdmin) {
		count, err := s.UserRepo.CountByRole(ctx, string(policy.RoleAdmin))
		if err != nil {
			return err
		}
		if count <= 1 {
			return ErrLastAdmin
		}
	}

	if err := s.UserRepo.Delete(ctx, id); err != nil {
		return err
	}

	changes := map[string]models.Change{
		"deleted":  {Old: false, New: true},
		"username": {Old: user.Username, New: ""},
	}
	_ = s.AuditService.LogChange(ctx, models.AuditActionDelete, "user", id, changes)

	return nil
}

func (s *UserServiceImpl) SetTempPassword(ctx context.Context, id, plainPassword string, expiresInMins int, mustChange bool) error {
	if !s.Passwords.Meets(plainPassword) {
		return ErrWeakPassword
	}

	user, err := s.UserRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plainPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	now := time.Now()
	expires := now.Add(time.Duration(expiresInMins) * time.Minute)
	user.Password = string(hashed)
	user.TempPasswordLastSetAt = &now
	user.TempPasswordExpiresAt = &expires
	user.MustChangePassword = mustChange
	user.UpdatedAt = now

	if err := s.UserRepo.Update(ctx, id, user); err != nil {
		return err
	}

	changes := map[string]models.Change{
		"temp_password_last_set_at": {New: now},
		"must_change_password":      {New: mustChange},
	}
	_ = s.AuditService.LogChange(ctx, models.AuditActionUpdate, "user", id, changes)

	return nil
}

func (s *UserServiceImpl) RecordPasswordReset(ctx context.Context, id string) error {
	user, err := s.UserRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	now := time.Now()
	user.LastPasswordResetAt = &now
	user.MustChangePassword = true
	user.UpdatedAt = now

	if err := s.UserRepo.Update(ctx, id, user); err != nil {
		return err
	}

	_ = s.AuditService.LogChange(ctx, models.AuditActionUpdate, "user", id, map[string]models.Change{
		"last_password_reset_at": {New: now},
	})

	return nil
}

func (s *UserServiceImpl) AdminCount(ctx context.Context) (int64, error) {
	return s.UserRepo.CountByRole(ctx, string(policy.RoleAdmin))
}
