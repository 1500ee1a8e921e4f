package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"
)

type User struct {
	ID                    primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username              string             `bson:"username" json:"username"`
	Password              string             `bson:"password" json:"-"`
	Email                 string             `bson:"email" json:"email"`
	FirstName             string             `bson:"first_name,omitempty" json:"first_name,omitempty"`
	LastName              string             `bson:"last_name,omitempty" json:"last_name,omitempty"`
	Role                  string             `bson:"role" json:"role"`     // admin, creator, reviewer, viewer
	Status                string             `bson:"status" json:"status"` // Active, Inactive
	LastLogin             *time.Time         `bson:"last_login,omitempty" json:"last_login,omitempty"`
	LastPasswordResetAt   *time.Time         `bson:"last_password_reset_at,omitempty" json:"last_password_reset_at,omitempty"`
	TempPasswordLastSetAt *time.Time         `bson:"temp_password_last_set_at,omitempty" json:"temp_password_last_set_at,omitempty"`
	TempPasswordExpiresAt *time.Time         `bson:"temp_password_expires_at,omitempty" json:"temp_password_expires_at,omitempty"`
	MustChangePassword    bool               `bson:"must_change_password" json:"must_change_password"`
	CreatedAt             time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt             time.Time          `bson:"updated_at" json:"updated_at"`
}

// Name joins the name parts the way the admin grid displays them.
func (u User) Name() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
