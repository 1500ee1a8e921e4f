package permission

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"erp-admin/internal/cache"
	"erp-admin/internal/common/models"
	"erp-admin/internal/features/audit"
	"erp-admin/internal/policy"
	"erp-admin/pkg/utils"

	"go.mongodb.org/mongo-driver/mongo"
)

var ErrUnknownRole = errors.New("unknown role")

const policyCacheTTL = 10 * time.Minute

// Broadcaster pushes change events to connected admin clients.
type Broadcaster interface {
	Broadcast(event interface{})
}

type PermissionService interface {
	// Matrix editor operations work on an in-memory draft per role.
	GetMatrix(ctx context.Context, role policy.Role) (*MatrixView, error)
	GetAllMatrices(ctx context.Context) ([]*MatrixView, error)
	Toggle(ctx context.Context, role policy.Role, feature policy.FeatureKey, action policy.Action, value bool) (*MatrixView, error)
	SetRow(ctx context.Context, role policy.Role, feature policy.FeatureKey, value bool) (*MatrixView, error)
	SetColumn(ctx context.Context, role policy.Role, action policy.Action, value bool) (*MatrixView, error)
	Reset(ctx context.Context, role policy.Role) (*MatrixView, error)
	Clear(ctx context.Context, role policy.Role) (*MatrixView, error)
	Discard(ctx context.Context, role policy.Role) (*MatrixView, error)
	Save(ctx context.Context, role policy.Role) (*MatrixView, error)

	// PolicyForRole is the enforcement read path. It never sees drafts.
	PolicyForRole(ctx context.Context, role policy.Role) (policy.Policy, error)
}

type PermissionServiceImpl struct {
	PolicyRepo   PolicyRepository
	Cache        *cache.Redis
	AuditService audit.AuditService
	Broadcast    Broadcaster

	mu     sync.Mutex
	drafts map[policy.Role]policy.Policy
}

func NewPermissionService(
	policyRepo PolicyRepository,
	redisCache *cache.Redis,
	auditService audit.AuditService,
	broadcaster Broadcaster,
) PermissionService {
	return &PermissionServiceImpl{
		PolicyRepo:   policyRepo,
		Cache:        redisCache,
		AuditService: auditService,
		Broadcast:    broadcaster,
		drafts:       make(map[policy.Role]policy.Policy),
	}
}

func cacheKey(role policy.Role) string {
	return fmt.Sprintf("policy:%s", role)
}

// savedPolicy reads the persisted policy for a role, falling back to the
// role's default when nothing was ever saved.
func (s *PermissionServiceImpl) savedPolicy(ctx context.Context, role policy.Role) (policy.Policy, error) {
	doc, err := s.PolicyRepo.Find(ctx, role)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return policy.Default(role), nil
	}
	if err != nil {
		return nil, err
	}
	return doc.Policy, nil
}

// workingPolicy returns the draft if one exists, otherwise the saved policy.
// Caller must hold s.mu.
func (s *PermissionServiceImpl) workingPolicy(ctx context.Context, role policy.Role) (policy.Policy, bool, error) {
	if draft, ok := s.drafts[role]; ok {
		return draft, true, nil
	}
	saved, err := s.savedPolicy(ctx, role)
	if err != nil {
		return nil, false, err
	}
	return saved, false, nil
}

func (s *PermissionServiceImpl) view(role policy.Role, p policy.Policy, dirty bool) *MatrixView {
	return &MatrixView{
		Role:     role,
		Policy:   p,
		Dirty:    dirty,
		Features: policy.Features,
		Actions:  policy.Actions,
	}
}

func (s *PermissionServiceImpl) GetMatrix(ctx context.Context, role policy.Role) (*MatrixView, error) {
	if !policy.ValidRole(role) {
		return nil, ErrUnknownRole
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, dirty, err := s.workingPolicy(ctx, role)
	if err != nil {
		return nil, err
	}
	return s.view(role, p, dirty), nil
}

func (s *PermissionServiceImpl) GetAllMatrices(ctx context.Context) ([]*MatrixView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	views := make([]*MatrixView, 0, len(policy.Roles))
	for _, role := range policy.Roles {
		p, dirty, err := s.workingPolicy(ctx, role)
		if err != nil {
			return nil, err
		}
		views = append(views, s.view(role, p, dirty))
	}
	return views, nil
}

// mutate applies fn to the working policy and stores the result as the
// role's draft. A draft that matches the saved policy again is dropped so
// the dirty flag tracks real divergence, not edit history.
func (s *PermissionServiceImpl) mutate(ctx context.Context, role policy.Role, fn func(policy.Policy) policy.Policy) (*MatrixView, error) {
	if !policy.ValidRole(role) {
		return nil, ErrUnknownRole
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, _, err := s.workingPolicy(ctx, role)
	if err != nil {
		return nil, err
	}
	next := fn(current)

	saved, err := s.savedPolicy(ctx, role)
	if err != nil {
		return nil, err
	}
	if reflect.DeepEqual(next, saved) {
		delete(s.drafts, role)
		return s.view(role, next, false), nil
	}
	s.drafts[role] = next
	return s.view(role, next, true), nil
}

func (s *PermissionServiceImpl) Toggle(ctx context.Context, role policy.Role, feature policy.FeatureKey, action policy.Action, value bool) (*MatrixView, error) {
	if !policy.ValidFeature(feature) || !policy.ValidAction(action) {
		return nil, fmt.Errorf("unknown cell %s/%s", feature, action)
	}
	return s.mutate(ctx, role, func(p policy.Policy) policy.Policy {
		return policy.ApplyToggle(p, feature, action, value)
	})
}

func (s *PermissionServiceImpl) SetRow(ctx context.Context, role policy.Role, feature policy.FeatureKey, value bool) (*MatrixView, error) {
	if !policy.ValidFeature(feature) {
		return nil, fmt.Errorf("unknown feature %s", feature)
	}
	return s.mutate(ctx, role, func(p policy.Policy) policy.Policy {
		return policy.SetRow(p, feature, value)
	})
}

func (s *PermissionServiceImpl) SetColumn(ctx context.Context, role policy.Role, action policy.Action, value bool) (*MatrixView, error) {
	if !policy.ValidAction(action) {
		return nil, fmt.Errorf("unknown action %s", action)
	}
	return s.mutate(ctx, role, func(p policy.Policy) policy.Policy {
		return policy.SetColumn(p, action, value)
	})
}

func (s *PermissionServiceImpl) Reset(ctx context.Context, role policy.Role) (*MatrixView, error) {
	return s.mutate(ctx, role, func(policy.Policy) policy.Policy {
		return policy.Default(role)
	})
}

func (s *PermissionServiceImpl) Clear(ctx context.Context, role policy.Role) (*MatrixView, error) {
	return s.mutate(ctx, role, func(policy.Policy) policy.Policy {
		return policy.Empty()
	})
}

func (s *PermissionServiceImpl) Discard(ctx context.Context, role policy.Role) (*MatrixView, error) {
	if !policy.ValidRole(role) {
		return nil, ErrUnknownRole
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.drafts, role)
	saved, err := s.savedPolicy(ctx, role)
	if err != nil {
		return nil, err
	}
	return s.view(role, saved, false), nil
}

func (s *PermissionServiceImpl) Save(ctx context.Context, role policy.Role) (*MatrixView, error) {
	if !policy.ValidRole(role) {
		return nil, ErrUnknownRole
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	draft, ok := s.drafts[role]
	if !ok {
		// Nothing changed; saving is a no-op.
		saved, err := s.savedPolicy(ctx, role)
		if err != nil {
			return nil, err
		}
		return s.view(role, saved, false), nil
	}

	updatedBy := ""
	if claims, ok := ctx.Value(utils.UserClaimsKey).(*utils.UserClaims); ok {
		updatedBy = claims.Username
	}
	if err := s.PolicyRepo.Save(ctx, role, draft, updatedBy); err != nil {
		return nil, err
	}
	delete(s.drafts, role)

	if s.Cache != nil {
		_ = s.Cache.Delete(ctx, cacheKey(role))
	}

	_ = s.AuditService.LogChange(ctx, models.AuditActionSave, "permission", string(role), map[string]models.Change{
		"policy": {New: draft},
	})

	if s.Broadcast != nil {
		s.Broadcast.Broadcast(map[string]interface{}{
			"type": "policy_saved",
			"role": role,
		})
	}

	return s.view(role, draft, false), nil
}

func (s *PermissionServiceImpl) PolicyForRole(ctx context.Context, role policy.Role) (policy.Policy, error) {
	if !policy.ValidRole(role) {
		return nil, ErrUnknownRole
	}

	if s.Cache != nil {
		var cached policy.Policy
		if err := s.Cache.Get(ctx, cacheKey(role), &cached); err == nil {
			return cached, nil
		}
	}

	saved, err := s.savedPolicy(ctx, role)
	if err != nil {
		return nil, err
	}

	if s.Cache != nil {
		_ = s.Cache.Set(ctx, cacheKey(role), saved, policyCacheTTL)
	}
	return saved, nil
}
