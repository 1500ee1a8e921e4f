package permission

import (
	"time"

	"erp-admin/internal/policy"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RolePolicy is the persisted permission matrix for a single role.
type RolePolicy struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Role      policy.Role        `bson:"role" json:"role"`
	Policy    policy.Policy      `bson:"policy" json:"policy"`
	UpdatedBy string             `bson:"updated_by,omitempty" json:"updated_by,omitempty"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// MatrixView is what the editor renders: the working policy plus the
// catalog of features and actions, and whether unsaved edits exist.
type MatrixView struct {
	Role     policy.Role      `json:"role"`
	Policy   policy.Policy    `json:"policy"`
	Dirty    bool             `json:"dirty"`
	Features []policy.Feature `json:"features"`
	Actions  []policy.Action  `json:"actions"`
}
