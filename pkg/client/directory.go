// Package client is a Go client for the user directory API. It keeps a
// local cache of the directory that is only updated after the server
// confirms a change, so a failed call never leaves stale optimism behind.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"

	"erp-admin/internal/common/models"
)

var (
	// ErrLastAdmin is returned before any HTTP call when a mutation
	// would remove or demote the only admin in the cached directory.
	ErrLastAdmin = errors.New("cannot remove the last admin")

	// ErrMutationPending is returned when a mutation for the same
	// record is still in flight.
	ErrMutationPending = errors.New("mutation already in flight for this record")
)

// RemoteError is a non-2xx response from the server.
type RemoteError struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("server returned %d", e.Status)
}

// Directory talks to the user endpoints and caches the result set.
type Directory struct {
	base  string
	token string
	http  *http.Client

	mu      sync.Mutex
	users   map[string]models.User
	pending map[string]bool
}

func NewDirectory(baseURL, token string, httpClient *http.Client) *Directory {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Directory{
		base:    strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    httpClient,
		users:   make(map[string]models.User),
		pending: make(map[string]bool),
	}
}

func (d *Directory) do(ctx context.Context, method, path string, body interface{}, dest interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}

	resp, err := d.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		remote := &RemoteError{Status: resp.StatusCode}
		var parsed struct {
			Error  string            `json:"error"`
			Errors map[string]string `json:"errors"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err == nil {
			remote.Message = parsed.Error
			remote.Fields = parsed.Errors
		}
		if resp.StatusCode == http.StatusConflict {
			return fmt.Errorf("%w: %s", ErrLastAdmin, remote.Message)
		}
		return remote
	}

	if dest == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

// begin marks id as having an in-flight mutation.
func (d *Directory) begin(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending[id] {
		return ErrMutationPending
	}
	d.pending[id] = true
	return nil
}

func (d *Directory) end(id string) {
	d.mu.Lock()
	delete(d.pending, id)
	d.mu.Unlock()
}

// Refresh replaces the cache with the server's directory.
func (d *Directory) Refresh(ctx context.Context) error {
	var page struct {
		Users []models.User `json:"users"`
		Total int64         `json:"total"`
	}
	if err := d.do(ctx, http.MethodGet, "/api/users?limit=1000", nil, &page); err != nil {
		return err
	}

	d.mu.Lock()
	d.users = make(map[string]models.User, len(page.Users))
	for _, u := range page.Users {
		d.users[u.ID.Hex()] = u
	}
	d.mu.Unlock()
	return nil
}

// Users returns a snapshot of the cached directory sorted by username.
func (d *Directory) Users() []models.User {
	d.mu.Lock()
	snapshot := make([]models.User, 0, len(d.users))
	for _, u := range d.users {
		snapshot = append(snapshot, u)
	}
	d.mu.Unlock()

	sort.Slice(snapshot, func(i, j int) bool {
		return snapshot[i].Username < snapshot[j].Username
	})
	return snapshot
}

// AdminCount counts cached users with the admin role.
func (d *Directory) AdminCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, u := range d.users {
		if u.Role == "admin" {
			n++
		}
	}
	return n
}

// Filter applies search, role and status filters to the cached
// directory. All conditions must hold; empty filters match everything.
func (d *Directory) Filter(search, role, status string) []models.User {
	return FilterUsers(d.Users(), search, role, status)
}

// FilterUsers is the pure filter behind Directory.Filter. Search matches
// case-insensitively against username, email and names. Empty or "all"
// role/status filters match everything.
func FilterUsers(users []models.User, search, role, status string) []models.User {
	search = strings.ToLower(strings.TrimSpace(search))

	var out []models.User
	for _, u := range users {
		if role != "" && role != "all" && u.Role != role {
			continue
		}
		if status != "" && status != "all" && u.Status != status {
			continue
		}
		if search != "" {
			haystack := strings.ToLower(strings.Join([]string{
				u.Username, u.Email, u.FirstName, u.LastName,
			}, " "))
			if !strings.Contains(haystack, search) {
				continue
			}
		}
		out = append(out, u)
	}
	return out
}

// isLastAdmin reports whether removing or demoting id would leave the
// cached directory without an admin.
func (d *Directory) isLastAdmin(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	target, ok := d.users[id]
	if !ok || target.Role != "admin" {
		return false
	}
	for otherID, u := range d.users {
		if otherID != id && u.Role == "admin" {
			return false
		}
	}
	return true
}

type CreateUserInput struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	Status    string `json:"status"`
}

// Create adds a user; the cache picks it up only on success.
func (d *Directory) Create(ctx context.Context, input CreateUserInput) (*models.User, error) {
	var created models.User
	if err := d.do(ctx, http.MethodPost, "/api/users", input, &created); err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.users[created.ID.Hex()] = created
	d.mu.Unlock()
	return &created, nil
}

// Update patches user fields. Demoting the only cached admin is
// rejected locally; the server enforces the same rule authoritatively.
func (d *Directory) Update(ctx context.Context, id string, updates map[string]interface{}) (*models.User, error) {
	if newRole, ok := updates["role"].(string); ok && newRole != "admin" && d.isLastAdmin(id) {
		return nil, ErrLastAdmin
	}
	if err := d.begin(id); err != nil {
		return nil, err
	}
	defer d.end(id)

	var updated models.User
	if err := d.do(ctx, http.MethodPatch, "/api/users/"+id, updates, &updated); err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.users[id] = updated
	d.mu.Unlock()
	return &updated, nil
}

// Delete removes a user. Deleting the only cached admin is rejected
// locally before any HTTP call.
func (d *Directory) Delete(ctx context.Context, id string) error {
	if d.isLastAdmin(id) {
		return ErrLastAdmin
	}
	if err := d.begin(id); err != nil {
		return err
	}
	defer d.end(id)

	if err := d.do(ctx, http.MethodDelete, "/api/users/"+id, nil, nil); err != nil {
		return err
	}

	d.mu.Lock()
	delete(d.users, id)
	d.mu.Unlock()
	return nil
}

// SetStatus toggles a user between Active and Inactive.
func (d *Directory) SetStatus(ctx context.Context, id, status string) error {
	if err := d.begin(id); err != nil {
		return err
	}
	defer d.end(id)

	body := map[string]string{"status": status}
	if err := d.do(ctx, http.MethodPut, "/api/users/"+id+"/status", body, nil); err != nil {
		return err
	}

	d.mu.Lock()
	if u, ok := d.users[id]; ok {
		u.Status = status
		d.users[id] = u
	}
	d.mu.Unlock()
	return nil
}

// SetTempPassword gives a user a short-lived password.
func (d *Directory) SetTempPassword(ctx context.Context, id, password string, expiresInMins int, mustChange bool) error {
	if err := d.begin(id); err != nil {
		return err
	}
	defer d.end(id)

	body := map[string]interface{}{
		"password":        password,
		"expires_in_mins": expiresInMins,
		"must_change":     mustChange,
	}
	return d.do(ctx, http.MethodPost, "/api/users/"+id+"/temp-password", body, nil)
}

// SendResetLink asks the server to record a password reset for a user.
func (d *Directory) SendResetLink(ctx context.Context, id string) error {
	if err := d.begin(id); err != nil {
		return err
	}
	defer d.end(id)
	return d.do(ctx, http.MethodPost, "/api/users/"+id+"/reset-link", nil, nil)
}
