// internal/testutil/fixtures.go
package testutil

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/casehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser creates a test user with the given name, email, and role.
func (f *Fixtures) CreateUser(ctx context.Context, fullName, email, role string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	user := models.User{
		ID:         primitive.NewObjectID(),
		FullName:   fullName,
		FullNameCI: text.Fold(fullName),
		Email:      email,
		Role:       role,
		Status:     "active",
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateReviewer creates an active reviewer-role user.
func (f *Fixtures) CreateReviewer(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, fullName, email, "reviewer")
}

// CreateAdmin creates an active admin-role user.
func (f *Fixtures) CreateAdmin(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, fullName, email, "admin")
}

// CreateCase creates a minimal valid clinical case with the given name.
func (f *Fixtures) CreateCase(ctx context.Context, name string) models.ClinicalCase {
	f.t.Helper()

	c := models.ClinicalCase{
		ID:                  primitive.NewObjectID(),
		Name:                name,
		NameCI:              text.Fold(name),
		Age:                 40,
		Sex:                 "F",
		Occupation:          "Teacher",
		FamilySocialHistory: "Unremarkable",
		ChiefComplaint:      "Fatigue",
		CurrentSymptoms:     []string{"fatigue"},
		CreatedAt:           time.Now().UTC(),
	}

	if _, err := f.db.Collection("cases").InsertOne(ctx, c); err != nil {
		f.t.Fatalf("failed to create test case: %v", err)
	}
	return c
}

// CreateCases creates n distinct cases named "Case 1" … "Case n".
func (f *Fixtures) CreateCases(ctx context.Context, n int) []models.ClinicalCase {
	f.t.Helper()

	out := make([]models.ClinicalCase, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, f.CreateCase(ctx, fmt.Sprintf("Case %d", i)))
	}
	return out
}

// CreateAssignment grants a case to a user directly.
func (f *Fixtures) CreateAssignment(ctx context.Context, userID, caseID primitive.ObjectID) models.Assignment {
	f.t.Helper()

	a := models.Assignment{
		ID:         primitive.NewObjectID(),
		UserID:     userID,
		CaseID:     caseID,
		AssignedAt: time.Now().UTC(),
	}

	if _, err := f.db.Collection("case_assignments").InsertOne(ctx, a); err != nil {
		f.t.Fatalf("failed to create test assignment: %v", err)
	}
	return a
}

// CreateResponse records a submitted response for a user and case.
func (f *Fixtures) CreateResponse(ctx context.Context, userID, caseID primitive.ObjectID, diagnosis string) models.CaseResponse {
	f.t.Helper()

	r := models.CaseResponse{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		CaseID:    caseID,
		Diagnosis: diagnosis,
		CreatedAt: time.Now().UTC(),
	}

	if _, err := f.db.Collection("case_responses").InsertOne(ctx, r); err != nil {
		f.t.Fatalf("failed to create test response: %v", err)
	}
	return r
}
