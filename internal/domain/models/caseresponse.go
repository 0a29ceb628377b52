// internal/domain/models/caseresponse.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CaseResponse is a reviewer's submitted answer for an assigned case.
type CaseResponse struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID primitive.ObjectID `bson:"user_id" json:"user_id"`
	CaseID primitive.ObjectID `bson:"case_id" json:"case_id"`

	Diagnosis string `bson:"diagnosis" json:"diagnosis"`
	Reasoning string `bson:"reasoning,omitempty" json:"reasoning,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
