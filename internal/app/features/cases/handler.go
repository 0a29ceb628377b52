// internal/app/features/cases/handler.go
package cases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/dalemusser/casehub/internal/app/allocation"
	assignstore "github.com/dalemusser/casehub/internal/app/store/caseassign"
	casestore "github.com/dalemusser/casehub/internal/app/store/cases"
	responsestore "github.com/dalemusser/casehub/internal/app/store/responses"
	"github.com/dalemusser/casehub/internal/app/system/csvutil"
	"github.com/dalemusser/casehub/internal/app/system/timeouts"
	"github.com/dalemusser/casehub/internal/app/system/txn"
	"github.com/dalemusser/casehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves admin case-pool management endpoints.
type Handler struct {
	DB          *mongo.Database
	Cases       *casestore.Store
	Assignments *assignstore.Store
	Responses   *responsestore.Store
	Engine      *allocation.Engine
	Log         *zap.Logger
}

func NewHandler(db *mongo.Database, engine *allocation.Engine, logger *zap.Logger) *Handler {
	return &Handler{
		DB:          db,
		Cases:       casestore.New(db),
		Assignments: assignstore.New(db),
		Responses:   responsestore.New(db),
		Engine:      engine,
		Log:         logger,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

type uploadResponse struct {
	Inserted  int                `json:"inserted"`
	RowErrors []csvutil.RowError `json:"row_errors,omitempty"`
}

// HandleUpload handles POST /api/cases/upload. The body is either a
// multipart form with a "file" part or a raw CSV body. All rows are
// validated before anything is written; rejected rows come back in
// the response, they never abort the valid ones.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	parsed, rowErrs, ok := h.readCSV(w, r)
	if !ok {
		return
	}
	if len(parsed) == 0 {
		writeJSON(w, http.StatusBadRequest, uploadResponse{RowErrors: rowErrs})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	n, err := h.Cases.InsertMany(ctx, parsed)
	if err != nil {
		h.Log.Error("case upload: insert failed", zap.Error(err), zap.Int("inserted", n))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "could not store cases"})
		return
	}

	h.Log.Info("cases uploaded", zap.Int("inserted", n), zap.Int("rejected", len(rowErrs)))
	writeJSON(w, http.StatusCreated, uploadResponse{Inserted: n, RowErrors: rowErrs})
}

// ServeList handles GET /api/cases.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	all, err := h.Cases.ListAll(ctx)
	if err != nil {
		h.Log.Error("case list failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "could not list cases"})
		return
	}
	if all == nil {
		all = []models.ClinicalCase{}
	}
	writeJSON(w, http.StatusOK, all)
}

// ServeGet handles GET /api/cases/{id}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid case id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	c, err := h.Cases.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "case not found"})
			return
		}
		h.Log.Error("case lookup failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "lookup failed"})
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// ServeExport handles GET /api/cases/export, streaming the pool as a
// CSV download in the same column layout uploads use.
func (h *Handler) ServeExport(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	all, err := h.Cases.ListAll(ctx)
	if err != nil {
		h.Log.Error("case export failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "could not export cases"})
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="cases.csv"`)
	if err := csvutil.EncodeCases(w, all); err != nil {
		h.Log.Error("case export: write failed", zap.Error(err))
	}
}

type resetResponse struct {
	DeletedCases       int64                      `json:"deleted_cases"`
	DeletedAssignments int64                      `json:"deleted_assignments"`
	DeletedResponses   int64                      `json:"deleted_responses"`
	Inserted           int                        `json:"inserted"`
	RowErrors          []csvutil.RowError         `json:"row_errors,omitempty"`
	Rebalance          allocation.RebalanceReport `json:"rebalance"`
}

// HandleReset handles POST /api/cases/reset: replace the entire case
// pool from an uploaded CSV, wiping assignments and responses, then
// redeal every user a fresh randomized hand. The CSV is validated in
// full before the first delete so a bad upload leaves the pool intact.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	parsed, rowErrs, ok := h.readCSV(w, r)
	if !ok {
		return
	}
	if len(parsed) == 0 {
		writeJSON(w, http.StatusBadRequest, uploadResponse{RowErrors: rowErrs})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	resp := resetResponse{RowErrors: rowErrs}

	// Swap the pool inside a transaction where the deployment supports
	// one, so a half-finished reset never leaves assignments pointing
	// at deleted cases.
	err := txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		var err error
		if resp.DeletedResponses, err = h.Responses.DeleteAll(ctx); err != nil {
			return fmt.Errorf("delete responses: %w", err)
		}
		if resp.DeletedAssignments, err = h.Assignments.DeleteAll(ctx); err != nil {
			return fmt.Errorf("delete assignments: %w", err)
		}
		if resp.DeletedCases, err = h.Cases.DeleteAll(ctx); err != nil {
			return fmt.Errorf("delete cases: %w", err)
		}
		if resp.Inserted, err = h.Cases.InsertMany(ctx, parsed); err != nil {
			return fmt.Errorf("insert cases: %w", err)
		}
		return nil
	})
	if err != nil {
		h.Log.Error("reset failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "reset failed"})
		return
	}

	report, err := h.Engine.Rebalance(ctx)
	if err != nil {
		h.Log.Error("reset: rebalance failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "reset stored cases but rebalance failed"})
		return
	}
	resp.Rebalance = report

	h.Log.Info("case pool reset",
		zap.Int64("deleted_cases", resp.DeletedCases),
		zap.Int("inserted", resp.Inserted),
		zap.Int("rebalanced_users", report.Users),
		zap.Int("rebalance_failures", len(report.Failures)))

	writeJSON(w, http.StatusOK, resp)
}

// readCSV pulls the CSV payload out of the request (multipart "file"
// part or raw body), enforces the upload size cap, and pre-scans it.
// On failure it writes the error response itself and returns ok=false.
func (h *Handler) readCSV(w http.ResponseWriter, r *http.Request) ([]models.ClinicalCase, []csvutil.RowError, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, csvutil.MaxUploadSize)

	var src io.Reader = r.Body
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(csvutil.MaxUploadSize); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid upload: %v", err)})
			return nil, nil, false
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: `multipart upload must include a "file" part`})
			return nil, nil, false
		}
		defer file.Close()
		src = file
	}

	parsed, rowErrs, err := csvutil.PreScanCasesCSV(src)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("could not parse CSV: %v", err)})
		return nil, nil, false
	}
	return parsed, rowErrs, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
