// internal/app/features/assignments/handler.go
package assignments

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dalemusser/casehub/internal/app/allocation"
	assignstore "github.com/dalemusser/casehub/internal/app/store/caseassign"
	casestore "github.com/dalemusser/casehub/internal/app/store/cases"
	"github.com/dalemusser/casehub/internal/app/system/auth"
	"github.com/dalemusser/casehub/internal/app/system/timeouts"
	"github.com/dalemusser/casehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves assignment listing, manual assignment, top-up, and
// rebalance endpoints.
type Handler struct {
	Engine      *allocation.Engine
	Assignments *assignstore.Store
	Cases       *casestore.Store
	Log         *zap.Logger
}

func NewHandler(engine *allocation.Engine, assignments *assignstore.Store, cases *casestore.Store, logger *zap.Logger) *Handler {
	return &Handler{
		Engine:      engine,
		Assignments: assignments,
		Cases:       cases,
		Log:         logger,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// ServeListAll handles GET /api/assignments (admin).
func (h *Handler) ServeListAll(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	all, err := h.Assignments.ListAll(ctx)
	if err != nil {
		h.Log.Error("assignment list failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "could not list assignments"})
		return
	}
	if all == nil {
		all = []models.Assignment{}
	}
	writeJSON(w, http.StatusOK, all)
}

// assignedCase pairs an assignment with its case document.
type assignedCase struct {
	Assignment models.Assignment    `json:"assignment"`
	Case       *models.ClinicalCase `json:"case,omitempty"`
}

// ServeMine handles GET /api/assignments/me: the signed-in user's
// assignments together with the case documents they point at.
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	assigns, err := h.Assignments.ListByUser(ctx, userID)
	if err != nil {
		h.Log.Error("my assignments failed",
			zap.String("user_id", userID.Hex()),
			zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "could not list assignments"})
		return
	}

	caseIDs := make([]primitive.ObjectID, len(assigns))
	for i, a := range assigns {
		caseIDs[i] = a.CaseID
	}
	docs, err := h.Cases.ListByIDs(ctx, caseIDs)
	if err != nil {
		h.Log.Error("my assignments: case load failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "could not load cases"})
		return
	}
	byID := make(map[primitive.ObjectID]*models.ClinicalCase, len(docs))
	for i := range docs {
		byID[docs[i].ID] = &docs[i]
	}

	out := make([]assignedCase, len(assigns))
	for i, a := range assigns {
		out[i] = assignedCase{Assignment: a, Case: byID[a.CaseID]}
	}
	writeJSON(w, http.StatusOK, out)
}

type assignRequest struct {
	UserID  string   `json:"user_id"`
	CaseIDs []string `json:"case_ids"`
}

type assignResponse struct {
	Assigned int `json:"assigned"`
}

// HandleAssign handles POST /api/assignments (admin): grant specific
// cases to a user. Cases the user already holds are skipped, never
// duplicated.
func (h *Handler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	userID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid user_id"})
		return
	}
	if len(req.CaseIDs) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "case_ids is required"})
		return
	}
	caseIDs := make([]primitive.ObjectID, 0, len(req.CaseIDs))
	for _, raw := range req.CaseIDs {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid case id: " + raw})
			return
		}
		caseIDs = append(caseIDs, id)
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	n, err := h.Engine.AssignCases(ctx, userID, caseIDs)
	if err != nil {
		h.writeEngineError(w, err, userID)
		return
	}
	writeJSON(w, http.StatusOK, assignResponse{Assigned: n})
}

type topUpRequest struct {
	UserID string `json:"user_id,omitempty"`
	Target *int   `json:"target,omitempty"`
}

// HandleTopUp handles POST /api/assignments/topup. Reviewers top
// themselves up; admins may name another user. Omitting target uses
// the configured default; negative targets are rejected here.
func (h *Handler) HandleTopUp(w http.ResponseWriter, r *http.Request) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}

	var req topUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	target := 0
	if req.Target != nil {
		if *req.Target < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "target must be non-negative"})
			return
		}
		target = *req.Target
	}

	userID, err := primitive.ObjectIDFromHex(su.ID)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}
	if req.UserID != "" && req.UserID != su.ID {
		if su.Role != "admin" {
			writeJSON(w, http.StatusForbidden, errorResponse{Error: "only admins can top up other users"})
			return
		}
		userID, err = primitive.ObjectIDFromHex(req.UserID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid user_id"})
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	n, err := h.Engine.TopUp(ctx, userID, target)
	if err != nil {
		h.writeEngineError(w, err, userID)
		return
	}
	writeJSON(w, http.StatusOK, assignResponse{Assigned: n})
}

// HandleRebalance handles POST /api/assignments/rebalance (admin).
func (h *Handler) HandleRebalance(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	report, err := h.Engine.Rebalance(ctx)
	if err != nil {
		h.Log.Error("rebalance failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "rebalance failed"})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) writeEngineError(w http.ResponseWriter, err error, userID primitive.ObjectID) {
	switch {
	case errors.Is(err, allocation.ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "user not found"})
	case errors.Is(err, allocation.ErrConflict):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "allocation conflict, try again"})
	default:
		h.Log.Error("allocation failed",
			zap.String("user_id", userID.Hex()),
			zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "allocation failed"})
	}
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
