// internal/domain/models/assignment.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Assignment grants one case to one user.
//
// The case_assignments collection carries a unique compound index on
// (user_id, case_id): a user may never hold two assignments for the
// same case. Assignments are created by the allocation engine (or the
// manual-assignment path) and deleted only by a bulk pool reset.
type Assignment struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID primitive.ObjectID `bson:"user_id" json:"user_id"`
	CaseID primitive.ObjectID `bson:"case_id" json:"case_id"`

	// BatchID groups all assignments written by a single allocation
	// call, for tracing and admin audit.
	BatchID string `bson:"batch_id,omitempty" json:"batch_id,omitempty"`

	AssignedAt time.Time `bson:"assigned_at" json:"assigned_at"`
}
