// internal/app/features/responses/handler.go
package responses

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	assignstore "github.com/dalemusser/casehub/internal/app/store/caseassign"
	responsestore "github.com/dalemusser/casehub/internal/app/store/responses"
	"github.com/dalemusser/casehub/internal/app/system/auth"
	"github.com/dalemusser/casehub/internal/app/system/timeouts"
	"github.com/dalemusser/casehub/internal/domain/models"
	"github.com/microcosm-cc/bluemonday"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves case response submission and listing.
type Handler struct {
	Responses   *responsestore.Store
	Assignments *assignstore.Store
	Log         *zap.Logger
}

func NewHandler(responses *responsestore.Store, assignments *assignstore.Store, logger *zap.Logger) *Handler {
	return &Handler{
		Responses:   responses,
		Assignments: assignments,
		Log:         logger,
	}
}

// Submitted free text is stripped of embedded HTML before storage.
var sanitize = bluemonday.StrictPolicy()

type errorResponse struct {
	Error string `json:"error"`
}

type submitRequest struct {
	CaseID    string `json:"case_id"`
	Diagnosis string `json:"diagnosis"`
	Reasoning string `json:"reasoning,omitempty"`
}

// HandleSubmit handles POST /api/responses. The case must currently be
// assigned to the submitting user.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	caseID, err := primitive.ObjectIDFromHex(req.CaseID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid case_id"})
		return
	}
	diagnosis := strings.TrimSpace(sanitize.Sanitize(req.Diagnosis))
	if diagnosis == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "diagnosis is required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	held, err := h.Assignments.ExistsForUserCase(ctx, userID, caseID)
	if err != nil {
		h.Log.Error("response submit: assignment check failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "submission failed"})
		return
	}
	if !held {
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "case is not assigned to you"})
		return
	}

	created, err := h.Responses.Create(ctx, models.CaseResponse{
		UserID:    userID,
		CaseID:    caseID,
		Diagnosis: diagnosis,
		Reasoning: strings.TrimSpace(sanitize.Sanitize(req.Reasoning)),
	})
	if err != nil {
		h.Log.Error("response submit: insert failed",
			zap.String("user_id", userID.Hex()),
			zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "submission failed"})
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// ServeMine handles GET /api/responses/me.
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Responses.ListByUser(ctx, userID)
	if err != nil {
		h.Log.Error("my responses failed",
			zap.String("user_id", userID.Hex()),
			zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "could not list responses"})
		return
	}
	if list == nil {
		list = []models.CaseResponse{}
	}
	writeJSON(w, http.StatusOK, list)
}

func currentUserID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(su.ID)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return primitive.NilObjectID, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
