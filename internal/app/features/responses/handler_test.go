package responses_test

import (
	"fmt"
	"net/http"
	"testing"

	responsesfeature "github.com/dalemusser/casehub/internal/app/features/responses"
	assignstore "github.com/dalemusser/casehub/internal/app/store/caseassign"
	responsestore "github.com/dalemusser/casehub/internal/app/store/responses"
	"github.com/dalemusser/casehub/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newHandler(t *testing.T, db *mongo.Database) *responsesfeature.Handler {
	t.Helper()
	return responsesfeature.NewHandler(responsestore.New(db), assignstore.New(db), zap.NewNop())
}

func TestHandleSubmit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := fixtures.CreateReviewer(ctx, "Submitter", "submit@example.com")
	c := fixtures.CreateCase(ctx, "Held Case")
	fixtures.CreateAssignment(ctx, user.ID, c.ID)

	h := newHandler(t, db)

	body := fmt.Sprintf(`{"case_id":%q,"diagnosis":"<b>anemia</b>","reasoning":"low hemoglobin"}`, c.ID.Hex())
	req := testutil.WithUser(
		testutil.NewJSONRequest("POST", "/api/responses", body),
		testutil.TestUser{ID: user.ID.Hex(), Role: "reviewer"},
	)
	rec := testutil.NewRecorder()
	h.HandleSubmit(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusCreated)

	list, err := responsestore.New(db).ListByUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("responses: got %d, want 1", len(list))
	}
	// Embedded HTML is stripped before storage.
	if list[0].Diagnosis != "anemia" {
		t.Errorf("diagnosis: got %q, want %q", list[0].Diagnosis, "anemia")
	}
}

func TestHandleSubmit_CaseNotHeld(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := fixtures.CreateReviewer(ctx, "Submitter", "submit@example.com")
	c := fixtures.CreateCase(ctx, "Unheld Case")

	h := newHandler(t, db)

	body := fmt.Sprintf(`{"case_id":%q,"diagnosis":"anemia"}`, c.ID.Hex())
	req := testutil.WithUser(
		testutil.NewJSONRequest("POST", "/api/responses", body),
		testutil.TestUser{ID: user.ID.Hex(), Role: "reviewer"},
	)
	rec := testutil.NewRecorder()
	h.HandleSubmit(rec.ResponseRecorder, req)
	rec.AssertStatus(t, http.StatusForbidden)
}

func TestHandleSubmit_Validation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := fixtures.CreateReviewer(ctx, "Submitter", "submit@example.com")
	c := fixtures.CreateCase(ctx, "Held Case")
	fixtures.CreateAssignment(ctx, user.ID, c.ID)
	h := newHandler(t, db)

	tests := []struct {
		name string
		body string
	}{
		{"bad case id", `{"case_id":"nope","diagnosis":"dx"}`},
		{"empty diagnosis", fmt.Sprintf(`{"case_id":%q,"diagnosis":"  "}`, c.ID.Hex())},
		{"html-only diagnosis", fmt.Sprintf(`{"case_id":%q,"diagnosis":"<script>x()</script>"}`, c.ID.Hex())},
		{"bad json", `{not json`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := testutil.WithUser(
				testutil.NewJSONRequest("POST", "/api/responses", tc.body),
				testutil.TestUser{ID: user.ID.Hex(), Role: "reviewer"},
			)
			rec := testutil.NewRecorder()
			h.HandleSubmit(rec.ResponseRecorder, req)
			rec.AssertStatus(t, http.StatusBadRequest)
		})
	}
}

func TestServeMine(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := fixtures.CreateReviewer(ctx, "Lister", "list@example.com")
	other := fixtures.CreateReviewer(ctx, "Other", "other@example.com")
	c := fixtures.CreateCase(ctx, "Case")
	fixtures.CreateResponse(ctx, user.ID, c.ID, "mine-dx")
	fixtures.CreateResponse(ctx, other.ID, c.ID, "other-dx")

	h := newHandler(t, db)

	req := testutil.NewAuthenticatedRequest("GET", "/api/responses/me",
		testutil.TestUser{ID: user.ID.Hex(), Role: "reviewer"})
	rec := testutil.NewRecorder()
	h.ServeMine(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "mine-dx")
	if got := rec.Body.String(); len(got) > 0 && (got == "null" || got == "") {
		t.Errorf("expected JSON array body, got %q", got)
	}

	// Unauthenticated request.
	rec = testutil.NewRecorder()
	h.ServeMine(rec.ResponseRecorder, testutil.NewRequest("GET", "/api/responses/me"))
	rec.AssertStatus(t, http.StatusUnauthorized)
}
