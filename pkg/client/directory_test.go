package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"erp-admin/internal/common/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func seedUser(username, role, status string) models.User {
	return models.User{
		ID:       primitive.NewObjectID(),
		Username: username,
		Email:    username + "@example.com",
		Role:     role,
		Status:   status,
	}
}

// newTestDirectory spins up a server that lists seed and records every
// mutating request it receives.
func newTestDirectory(t *testing.T, seed []models.User, mutate http.HandlerFunc) (*Directory, *[]string) {
	t.Helper()

	var mu sync.Mutex
	requests := []string{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/api/users" {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"users": seed,
				"total": len(seed),
			})
			return
		}
		mu.Lock()
		requests = append(requests, r.Method+" "+r.URL.Path)
		mu.Unlock()
		if mutate != nil {
			mutate(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"message": "ok"})
	}))
	t.Cleanup(server.Close)

	d := NewDirectory(server.URL, "test-token", nil)
	if err := d.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	return d, &requests
}

func TestFilterUsers(t *testing.T) {
	users := []models.User{
		seedUser("alice", "admin", models.StatusActive),
		seedUser("bob", "viewer", models.StatusActive),
		seedUser("carol", "viewer", models.StatusInactive),
	}
	users[0].FirstName = "Alice"
	users[0].LastName = "Anderson"

	tests := []struct {
		name   string
		search string
		role   string
		status string
		want   []string
	}{
		{"no filters", "", "", "", []string{"alice", "bob", "carol"}},
		{"all sentinel matches everything", "", "all", "all", []string{"alice", "bob", "carol"}},
		{"search username", "bob", "", "", []string{"bob"}},
		{"search is case-insensitive", "ANDERSON", "", "", []string{"alice"}},
		{"search matches email", "carol@", "", "", []string{"carol"}},
		{"role only", "", "viewer", "", []string{"bob", "carol"}},
		{"status only", "", "", models.StatusInactive, []string{"carol"}},
		{"role and status compose", "", "viewer", models.StatusActive, []string{"bob"}},
		{"all three compose", "car", "viewer", models.StatusInactive, []string{"carol"}},
		{"search excludes wrong role", "alice", "viewer", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterUsers(users, tt.search, tt.role, tt.status)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d users, want %d", len(got), len(tt.want))
			}
			for i, u := range got {
				if u.Username != tt.want[i] {
					t.Errorf("result[%d] = %s, want %s", i, u.Username, tt.want[i])
				}
			}
		})
	}
}

func TestDeleteLastAdminRejectedLocally(t *testing.T) {
	admin := seedUser("root", "admin", models.StatusActive)
	d, requests := newTestDirectory(t, []models.User{
		admin,
		seedUser("bob", "viewer", models.StatusActive),
	}, nil)

	err := d.Delete(context.Background(), admin.ID.Hex())
	if !errors.Is(err, ErrLastAdmin) {
		t.Fatalf("want ErrLastAdmin, got %v", err)
	}
	if len(*requests) != 0 {
		t.Errorf("guard should fire before any HTTP call, saw %v", *requests)
	}
	if len(d.Users()) != 2 {
		t.Error("cache must be untouched after a rejected delete")
	}
}

func TestDemoteLastAdminRejectedLocally(t *testing.T) {
	admin := seedUser("root", "admin", models.StatusActive)
	d, requests := newTestDirectory(t, []models.User{admin}, nil)

	_, err := d.Update(context.Background(), admin.ID.Hex(), map[string]interface{}{"role": "viewer"})
	if !errors.Is(err, ErrLastAdmin) {
		t.Fatalf("want ErrLastAdmin, got %v", err)
	}
	if len(*requests) != 0 {
		t.Errorf("guard should fire before any HTTP call, saw %v", *requests)
	}
}

func TestDeleteWithSecondAdminSucceeds(t *testing.T) {
	first := seedUser("root", "admin", models.StatusActive)
	second := seedUser("backup", "admin", models.StatusActive)
	d, requests := newTestDirectory(t, []models.User{first, second}, nil)

	if err := d.Delete(context.Background(), first.ID.Hex()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(*requests) != 1 {
		t.Fatalf("expected one HTTP call, saw %v", *requests)
	}
	if d.AdminCount() != 1 {
		t.Errorf("AdminCount after delete = %d, want 1", d.AdminCount())
	}
}

func TestFailedMutationLeavesCacheUntouched(t *testing.T) {
	victim := seedUser("bob", "viewer", models.StatusActive)
	d, _ := newTestDirectory(t, []models.User{
		seedUser("root", "admin", models.StatusActive),
		victim,
	}, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "boom"})
	})

	err := d.Delete(context.Background(), victim.ID.Hex())
	var remote *RemoteError
	if !errors.As(err, &remote) || remote.Status != http.StatusInternalServerError {
		t.Fatalf("want RemoteError 500, got %v", err)
	}
	if len(d.Users()) != 2 {
		t.Error("failed delete must not evict the user from the cache")
	}
}

func TestServerConflictMapsToErrLastAdmin(t *testing.T) {
	// The cache can be stale; the server's 409 still surfaces as the
	// same sentinel the local guard uses.
	victim := seedUser("bob", "viewer", models.StatusActive)
	d, _ := newTestDirectory(t, []models.User{victim}, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": "cannot delete the last admin"})
	})

	if err := d.Delete(context.Background(), victim.ID.Hex()); !errors.Is(err, ErrLastAdmin) {
		t.Fatalf("want ErrLastAdmin, got %v", err)
	}
}

func TestConcurrentMutationSameRecordRejected(t *testing.T) {
	victim := seedUser("bob", "viewer", models.StatusActive)
	release := make(chan struct{})
	d, _ := newTestDirectory(t, []models.User{
		seedUser("root", "admin", models.StatusActive),
		victim,
	}, func(w http.ResponseWriter, r *http.Request) {
		<-release
		json.NewEncoder(w).Encode(map[string]string{"message": "ok"})
	})

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- d.SetStatus(context.Background(), victim.ID.Hex(), models.StatusInactive)
	}()

	// Wait for the first mutation to claim the gate.
	deadline := time.After(2 * time.Second)
	for {
		d.mu.Lock()
		claimed := d.pending[victim.ID.Hex()]
		d.mu.Unlock()
		if claimed {
			break
		}
		select {
		case <-deadline:
			t.Fatal("first mutation never claimed the gate")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if err := d.SetStatus(context.Background(), victim.ID.Hex(), models.StatusActive); !errors.Is(err, ErrMutationPending) {
		t.Fatalf("want ErrMutationPending, got %v", err)
	}

	close(release)
	if err := <-firstDone; err != nil {
		t.Fatalf("first mutation: %v", err)
	}

	// The gate is free again once the first call finishes.
	if err := d.SetStatus(context.Background(), victim.ID.Hex(), models.StatusActive); err != nil {
		t.Fatalf("mutation after release: %v", err)
	}
}

func TestCreateAddsToCacheOnSuccess(t *testing.T) {
	d, _ := newTestDirectory(t, nil, func(w http.ResponseWriter, r *http.Request) {
		var input CreateUserInput
		json.NewDecoder(r.Body).Decode(&input)
		created := seedUser(input.Username, input.Role, models.StatusActive)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(created)
	})

	created, err := d.Create(context.Background(), CreateUserInput{
		Username: "dana",
		Password: "Sup3rSecret!",
		Email:    "dana@example.com",
		Role:     "creator",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Username != "dana" {
		t.Errorf("created username = %s", created.Username)
	}
	if len(d.Users()) != 1 {
		t.Error("cache should contain the confirmed user")
	}
}

func TestCreateValidationErrorSurfacesFields(t *testing.T) {
	d, _ := newTestDirectory(t, nil, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"errors": map[string]string{"username": "Username already exists"},
		})
	})

	_, err := d.Create(context.Background(), CreateUserInput{Username: "dup"})
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("want RemoteError, got %v", err)
	}
	if remote.Fields["username"] != "Username already exists" {
		t.Errorf("field errors not carried: %+v", remote.Fields)
	}
	if len(d.Users()) != 0 {
		t.Error("failed create must not populate the cache")
	}
}
