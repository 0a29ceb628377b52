package userstore_test

import (
	"errors"
	"testing"

	userstore "github.com/dalemusser/casehub/internal/app/store/users"
	"github.com/dalemusser/casehub/internal/domain/models"
	"github.com/dalemusser/casehub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{
		FullName: "  Ada   Lovelace ",
		Email:    "Ada@Example.COM",
		Role:     "reviewer",
	}, "correct horse battery")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if created.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if created.FullName != "Ada Lovelace" {
		t.Errorf("FullName: got %q, want %q", created.FullName, "Ada Lovelace")
	}
	if created.Email != "ada@example.com" {
		t.Errorf("Email: got %q, want %q", created.Email, "ada@example.com")
	}
	if created.Status != "active" {
		t.Errorf("Status: got %q, want %q", created.Status, "active")
	}
	if created.PasswordHash == "" || created.PasswordHash == "correct horse battery" {
		t.Error("expected password to be hashed")
	}
	if !store.VerifyPassword(&created, "correct horse battery") {
		t.Error("VerifyPassword should accept the original password")
	}
	if store.VerifyPassword(&created, "wrong") {
		t.Error("VerifyPassword should reject a wrong password")
	}
}

func TestStore_Create_BadRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.Create(ctx, models.User{
		FullName: "Bad Role",
		Email:    "bad@example.com",
		Role:     "superuser",
	}, "pw")
	if err == nil {
		t.Fatal("expected error for invalid role")
	}
}

func TestStore_Create_DuplicateEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := models.User{FullName: "First", Email: "dup@example.com", Role: "reviewer"}
	if _, err := store.Create(ctx, u, "pw1"); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}

	u2 := models.User{FullName: "Second", Email: "DUP@example.com", Role: "reviewer"}
	_, err := store.Create(ctx, u2, "pw2")
	if !errors.Is(err, userstore.ErrDuplicateEmail) {
		t.Errorf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestStore_GetByEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{
		FullName: "Casey Finder",
		Email:    "finder@example.com",
		Role:     "reviewer",
	}, "pw")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := store.GetByEmail(ctx, "  FINDER@example.com ")
	if err != nil {
		t.Fatalf("GetByEmail failed: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("ID: got %v, want %v", got.ID, created.ID)
	}
}

func TestStore_ListIDs_ActiveOnly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fixtures.CreateReviewer(ctx, "Active One", "a1@example.com")
	fixtures.CreateReviewer(ctx, "Active Two", "a2@example.com")

	disabled := fixtures.CreateReviewer(ctx, "Disabled", "d@example.com")
	_, err := db.Collection("users").UpdateByID(ctx, disabled.ID,
		bson.M{"$set": bson.M{"status": "disabled"}})
	if err != nil {
		t.Fatalf("failed to disable user: %v", err)
	}

	ids, err := store.ListIDs(ctx)
	if err != nil {
		t.Fatalf("ListIDs failed: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("ListIDs: got %d, want 2", len(ids))
	}
}

func TestStore_UpdateProfile(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateReviewer(ctx, "Before Name", "profile@example.com")

	err := store.UpdateProfile(ctx, u.ID, userstore.ProfileUpdate{
		FullName:   "After  Name",
		DOB:        "1990-01-02",
		Bio:        "bio text",
		Background: "internal medicine",
	})
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}

	got, err := store.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.FullName != "After Name" {
		t.Errorf("FullName: got %q, want %q", got.FullName, "After Name")
	}
	if got.DOB != "1990-01-02" {
		t.Errorf("DOB: got %q", got.DOB)
	}
	if got.Background != "internal medicine" {
		t.Errorf("Background: got %q", got.Background)
	}
}
