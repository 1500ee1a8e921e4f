package user

import (
	"context"
	"testing"

	"erp-admin/internal/common/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// fakeUserRepo is an in-memory UserRepository for service tests.
type fakeUserRepo struct {
	users   map[string]*models.User
	deletes int
	updates int
}

func newFakeUserRepo(seed ...*models.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[string]*models.User)}
	for _, u := range seed {
		if u.ID.IsZero() {
			u.ID = primitive.NewObjectID()
		}
		cp := *u
		r.users[u.ID.Hex()] = &cp
	}
	return r
}

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	cp := *user
	r.users[user.ID.Hex()] = &cp
	return nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) FindByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (r *fakeUserRepo) List(_ context.Context, _ map[string]interface{}, _, _ int64) ([]models.User, int64, error) {
	out := make([]models.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, int64(len(out)), nil
}

func (r *fakeUserRepo) Update(_ context.Context, id string, user *models.User) error {
	r.updates++
	cp := *user
	r.users[id] = &cp
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id string) error {
	r.deletes++
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) FindByIDs(_ context.Context, ids []string) ([]models.User, error) {
	var out []models.User
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) CountByRole(_ context.Context, role string) (int64, error) {
	var n int64
	for _, u := range r.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

type noopAudit struct{}

func (noopAudit) LogChange(context.Context, models.AuditAction, string, string, map[string]models.Change) error {
	return nil
}
func (noopAudit) ListLogs(context.Context, map[string]interface{}, int64, int64) ([]models.AuditLog, error) {
	return nil, nil
}

func newService(repo *fakeUserRepo) UserService {
	return NewUserService(repo, noopAudit{})
}

func admin(username string) *models.User {
	return &models.User{
		ID:       primitive.NewObjectID(),
		Username: username,
		Email:    username + "@example.com",
		Role:     "admin",
		Status:   models.StatusActive,
	}
}

func TestDeleteLastAdminRejected(t *testing.T) {
	only := admin("root")
	repo := newFakeUserRepo(only)
	svc := newService(repo)

	err := svc.DeleteUser(context.Background(), only.ID.Hex())
	if err != ErrLastAdmin {
		t.Fatalf("expected ErrLastAdmin, got %v", err)
	}
	if repo.deletes != 0 {
		t.Errorf("delete reached the store despite the guard")
	}
}

func TestDeleteAdminWithAnotherAdminSucceeds(t *testing.T) {
	a, b := admin("root"), admin("backup")
	repo := newFakeUserRepo(a, b)
	svc := newService(repo)

	if err := svc.DeleteUser(context.Background(), a.ID.Hex()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.deletes != 1 {
		t.Errorf("expected one delete, got %d", repo.deletes)
	}
}

func TestDemoteLastAdminRejected(t *testing.T) {
	only := admin("root")
	repo := newFakeUserRepo(only)
	svc := newService(repo)

	_, err := svc.UpdateUser(context.Background(), only.ID.Hex(), map[string]interface{}{"role": "viewer"})
	if err != ErrLastAdmin {
		t.Fatalf("expected ErrLastAdmin, got %v", err)
	}
	if repo.updates != 0 {
		t.Errorf("update reached the store despite the guard")
	}
	got, _ := repo.FindByID(context.Background(), only.ID.Hex())
	if got.Role != "admin" {
		t.Errorf("role changed to %q", got.Role)
	}
}

func TestDemoteAdminWithAnotherAdminSucceeds(t *testing.T) {
	a, b := admin("root"), admin("backup")
	repo := newFakeUserRepo(a, b)
	svc := newService(repo)

	updated, err := svc.UpdateUser(context.Background(), a.ID.Hex(), map[string]interface{}{"role": "reviewer"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Role != "reviewer" {
		t.Errorf("expected reviewer, got %q", updated.Role)
	}
}

func TestNonRoleUpdateOnLastAdminAllowed(t *testing.T) {
	only := admin("root")
	repo := newFakeUserRepo(only)
	svc := newService(repo)

	updated, err := svc.UpdateUser(context.Background(), only.ID.Hex(), map[string]interface{}{"email": "root@corp.example"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Email != "root@corp.example" {
		t.Errorf("email not updated: %q", updated.Email)
	}
}

func TestCreateUserRejectsDuplicateUsername(t *testing.T) {
	existing := admin("root")
	repo := newFakeUserRepo(existing)
	svc := newService(repo)

	err := svc.CreateUser(context.Background(), &models.User{
		Username: "root",
		Email:    "other@example.com",
		Role:     "viewer",
	}, "Sup3rSecret!")
	if err != ErrUsernameTaken {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestCreateUserRejectsWeakPassword(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newService(repo)

	tests := []struct {
		name string
		pw   string
	}{
		{"too short", "Ab1!"},
		{"two classes", "abcdefg1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.CreateUser(context.Background(), &models.User{
				Username: "newbie",
				Email:    "n@example.com",
				Role:     "viewer",
			}, tt.pw)
			if err != ErrWeakPassword {
				t.Fatalf("expected ErrWeakPassword, got %v", err)
			}
		})
	}
}

func TestCreateUserHashesPasswordAndDefaults(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newService(repo)

	u := &models.User{
		Username: "newbie",
		Email:    "n@example.com",
		Role:     "creator",
	}
	if err := svc.CreateUser(context.Background(), u, "Sup3rSecret!"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, err := repo.FindByUsername(context.Background(), "newbie")
	if err != nil {
		t.Fatalf("user not stored: %v", err)
	}
	if stored.Password == "Sup3rSecret!" || stored.Password == "" {
		t.Error("password stored in plaintext or empty")
	}
	if stored.Status != models.StatusActive {
		t.Errorf("expected default status Active, got %q", stored.Status)
	}
}

func TestCreateUserRejectsUnknownRole(t *testing.T) {
	svc := newService(newFakeUserRepo())
	err := svc.CreateUser(context.Background(), &models.User{
		Username: "x", Email: "x@example.com", Role: "superuser",
	}, "Sup3rSecret!")
	if err != ErrInvalidRole {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestSetTempPasswordEnforcesPolicy(t *testing.T) {
	only := admin("root")
	repo := newFakeUserRepo(only)
	svc := newService(repo)

	if err := svc.SetTempPassword(context.Background(), only.ID.Hex(), "weak", 60, true); err != ErrWeakPassword {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}

	if err := svc.SetTempPassword(context.Background(), only.ID.Hex(), "Temp0rary!", 60, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := repo.FindByID(context.Background(), only.ID.Hex())
	if !got.MustChangePassword {
		t.Error("must_change_password not set")
	}
	if got.TempPasswordLastSetAt == nil || got.TempPasswordExpiresAt == nil {
		t.Error("temp password timestamps not stamped")
	}
}
