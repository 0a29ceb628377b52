// internal/domain/models/clinicalcase.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ClinicalCase is a reviewable vignette drawn from the shared pool.
//
// Cases are created by CSV import (or seeding), never mutated by the
// allocation engine, and deleted only by a bulk administrative reset.
type ClinicalCase struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name   string             `bson:"name" json:"name"`
	NameCI string             `bson:"name_ci" json:"-"` // lowercase, diacritics-stripped

	// Patient demographics
	Age        int    `bson:"age" json:"age"`
	Sex        string `bson:"sex" json:"sex"`
	Occupation string `bson:"occupation" json:"occupation"`

	// Medical history
	Immunizations    []string `bson:"immunizations,omitempty" json:"immunizations,omitempty"`
	ChronicIllnesses []string `bson:"chronic_illnesses,omitempty" json:"chronic_illnesses,omitempty"`
	MinorIllnesses   []string `bson:"minor_illnesses,omitempty" json:"minor_illnesses,omitempty"`

	FamilySocialHistory string   `bson:"family_social_history" json:"family_social_history"`
	ChiefComplaint      string   `bson:"chief_complaint" json:"chief_complaint"`
	CurrentSymptoms     []string `bson:"current_symptoms" json:"current_symptoms"`

	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt *time.Time `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}
