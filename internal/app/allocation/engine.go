// internal/app/allocation/engine.go
package allocation

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/casehub/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// DefaultTarget is the number of cases a user is topped up to when no
// explicit target is given.
const DefaultTarget = 20

// UserSource answers user-existence and enumeration queries.
type UserSource interface {
	Exists(ctx context.Context, id primitive.ObjectID) (bool, error)
	ListIDs(ctx context.Context) ([]primitive.ObjectID, error)
}

// CaseSource enumerates the shared case pool.
type CaseSource interface {
	ListIDs(ctx context.Context) ([]primitive.ObjectID, error)
	ExistingIDs(ctx context.Context, ids []primitive.ObjectID) ([]primitive.ObjectID, error)
}

// Ledger reads and writes case assignments. InsertBatch must be
// all-or-nothing per document and must return ErrConflict when the
// only failures were collisions with concurrently written assignments
// (the partial insert count still counts toward the user's holdings).
type Ledger interface {
	AssignedCaseIDs(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error)
	InsertBatch(ctx context.Context, assigns []models.Assignment) (int, error)
}

// Config tunes the engine's targets.
type Config struct {
	DefaultTarget int // top-up target when the caller passes none
	RebalanceMin  int // inclusive lower bound for per-user rebalance targets
	RebalanceMax  int // inclusive upper bound
}

func (c Config) withDefaults() Config {
	if c.DefaultTarget <= 0 {
		c.DefaultTarget = DefaultTarget
	}
	if c.RebalanceMin <= 0 {
		c.RebalanceMin = DefaultTarget
	}
	if c.RebalanceMax < c.RebalanceMin {
		c.RebalanceMax = c.RebalanceMin
	}
	return c
}

// Engine implements top-up case allocation: it raises a user's
// holdings to a target count by drawing unassigned cases uniformly at
// random from the pool, never duplicating a case for the same user and
// never removing anything already held.
type Engine struct {
	users   UserSource
	cases   CaseSource
	ledger  Ledger
	sampler *Sampler
	locks   *userLocks
	cfg     Config
	log     *zap.Logger
}

// New builds an Engine. A nil sampler gets a clock-seeded one.
func New(users UserSource, cases CaseSource, ledger Ledger, sampler *Sampler, cfg Config, log *zap.Logger) *Engine {
	if sampler == nil {
		sampler = NewRandomSampler()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		users:   users,
		cases:   cases,
		ledger:  ledger,
		sampler: sampler,
		locks:   newUserLocks(),
		cfg:     cfg.withDefaults(),
		log:     log,
	}
}

// DefaultTarget returns the configured default top-up target.
func (e *Engine) DefaultTarget() int {
	return e.cfg.DefaultTarget
}

// TopUp raises the user's holdings to target cases and returns how
// many were newly assigned. A target of 0 means the configured
// default. Users already at or above target get 0; an exhausted pool
// yields fewer than requested (possibly 0) without error.
func (e *Engine) TopUp(ctx context.Context, userID primitive.ObjectID, target int) (int, error) {
	if target < 0 {
		return 0, fmt.Errorf("target must be non-negative, got %d", target)
	}
	if target == 0 {
		target = e.cfg.DefaultTarget
	}

	unlock := e.locks.lock(userID.Hex())
	defer unlock()

	ok, err := e.users.Exists(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("look up user: %w", err)
	}
	if !ok {
		return 0, ErrUserNotFound
	}

	return e.topUpLocked(ctx, userID, target)
}

// topUpLocked runs the select-and-insert cycle, retrying once if a
// concurrent writer collided with our picks.
func (e *Engine) topUpLocked(ctx context.Context, userID primitive.ObjectID, target int) (int, error) {
	total := 0
	for attempt := 0; attempt < 2; attempt++ {
		held, err := e.ledger.AssignedCaseIDs(ctx, userID)
		if err != nil {
			return total, fmt.Errorf("load holdings: %w", err)
		}

		need := target - len(held)
		if need <= 0 {
			return total, nil
		}

		pool, err := e.availablePool(ctx, held)
		if err != nil {
			return total, err
		}
		if len(pool) == 0 {
			// Pool exhausted: the user keeps what they have.
			e.log.Debug("case pool exhausted during top-up",
				zap.String("user_id", userID.Hex()),
				zap.Int("held", len(held)))
			return total, nil
		}

		picked := e.sampler.Pick(pool, need)
		n, err := e.insertPicks(ctx, userID, picked)
		total += n
		if err == nil {
			return total, nil
		}
		if !errors.Is(err, ErrConflict) {
			return total, fmt.Errorf("write assignments: %w", err)
		}

		e.log.Warn("assignment conflict during top-up, retrying",
			zap.String("user_id", userID.Hex()),
			zap.Int("attempt", attempt+1))
	}
	return total, fmt.Errorf("top-up for user %s: %w", userID.Hex(), ErrConflict)
}

// AssignCases grants the given cases to the user, skipping any the
// user already holds and any that do not exist in the pool. Returns
// the number newly assigned.
func (e *Engine) AssignCases(ctx context.Context, userID primitive.ObjectID, caseIDs []primitive.ObjectID) (int, error) {
	unlock := e.locks.lock(userID.Hex())
	defer unlock()

	ok, err := e.users.Exists(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("look up user: %w", err)
	}
	if !ok {
		return 0, ErrUserNotFound
	}

	valid, err := e.cases.ExistingIDs(ctx, dedupe(caseIDs))
	if err != nil {
		return 0, fmt.Errorf("filter cases: %w", err)
	}

	total := 0
	for attempt := 0; attempt < 2; attempt++ {
		held, err := e.ledger.AssignedCaseIDs(ctx, userID)
		if err != nil {
			return total, fmt.Errorf("load holdings: %w", err)
		}
		toAdd := subtract(valid, held)
		if len(toAdd) == 0 {
			return total, nil
		}

		n, err := e.insertPicks(ctx, userID, toAdd)
		total += n
		if err == nil {
			return total, nil
		}
		if !errors.Is(err, ErrConflict) {
			return total, fmt.Errorf("write assignments: %w", err)
		}
	}
	return total, fmt.Errorf("assign cases for user %s: %w", userID.Hex(), ErrConflict)
}

// insertPicks writes one batch of assignments stamped with a shared
// batch ID.
func (e *Engine) insertPicks(ctx context.Context, userID primitive.ObjectID, caseIDs []primitive.ObjectID) (int, error) {
	if len(caseIDs) == 0 {
		return 0, nil
	}
	batchID := uuid.NewString()
	batch := make([]models.Assignment, len(caseIDs))
	for i, cid := range caseIDs {
		batch[i] = models.Assignment{
			UserID:  userID,
			CaseID:  cid,
			BatchID: batchID,
		}
	}
	return e.ledger.InsertBatch(ctx, batch)
}

// availablePool returns the pool minus the user's current holdings.
func (e *Engine) availablePool(ctx context.Context, held []primitive.ObjectID) ([]primitive.ObjectID, error) {
	all, err := e.cases.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list case pool: %w", err)
	}
	return subtract(all, held), nil
}

// subtract returns the elements of ids not present in remove,
// preserving order.
func subtract(ids, remove []primitive.ObjectID) []primitive.ObjectID {
	if len(remove) == 0 {
		return ids
	}
	drop := make(map[primitive.ObjectID]struct{}, len(remove))
	for _, id := range remove {
		drop[id] = struct{}{}
	}
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if _, ok := drop[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// dedupe removes repeated IDs, preserving first occurrence order.
func dedupe(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
