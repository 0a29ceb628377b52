// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents a reviewer account.
//
// NOTE:
//   - Case assignments are not embedded on User.
//     Use the case_assignments collection to discover a user's cases.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName     string             `bson:"full_name" json:"full_name"`
	FullNameCI   string             `bson:"full_name_ci" json:"-"` // lowercase, diacritics-stripped
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password_hash,omitempty" json:"-"`
	Role         string             `bson:"role" json:"role"` // admin | reviewer
	Status       string             `bson:"status,omitempty" json:"status,omitempty"`

	DOB        string `bson:"dob,omitempty" json:"dob,omitempty"`
	Bio        string `bson:"bio,omitempty" json:"bio,omitempty"`
	Background string `bson:"background,omitempty" json:"background,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
