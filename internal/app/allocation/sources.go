// internal/app/allocation/sources.go
package allocation

import (
	"context"
	"errors"

	assignstore "github.com/dalemusser/casehub/internal/app/store/caseassign"
	"github.com/dalemusser/casehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// storeLedger adapts the Mongo-backed assignment store to the Ledger
// interface, translating its duplicate-key sentinel into ErrConflict.
type storeLedger struct {
	s *assignstore.Store
}

// NewStoreLedger wraps the assignment store for use by the engine.
func NewStoreLedger(s *assignstore.Store) Ledger {
	return storeLedger{s: s}
}

func (l storeLedger) AssignedCaseIDs(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	return l.s.AssignedCaseIDs(ctx, userID)
}

func (l storeLedger) InsertBatch(ctx context.Context, assigns []models.Assignment) (int, error) {
	n, err := l.s.InsertBatch(ctx, assigns)
	if errors.Is(err, assignstore.ErrDuplicate) {
		return n, ErrConflict
	}
	return n, err
}
