// internal/app/allocation/rebalance.go
package allocation

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// RebalanceFailure records one user the rebalance could not serve.
type RebalanceFailure struct {
	UserID primitive.ObjectID `json:"user_id"`
	Reason string             `json:"reason"`
}

// RebalanceReport summarizes a bulk rebalance run.
type RebalanceReport struct {
	Users    int                `json:"users"`
	Assigned int                `json:"assigned"`
	Failures []RebalanceFailure `json:"failures,omitempty"`
}

// Rebalance tops up every active user to an individually randomized
// target between RebalanceMin and RebalanceMax. Per-user failures are
// collected in the report rather than aborting the run; only failing
// to enumerate users is fatal.
func (e *Engine) Rebalance(ctx context.Context) (RebalanceReport, error) {
	ids, err := e.users.ListIDs(ctx)
	if err != nil {
		return RebalanceReport{}, fmt.Errorf("list users: %w", err)
	}

	report := RebalanceReport{Users: len(ids)}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		target := e.sampler.Between(e.cfg.RebalanceMin, e.cfg.RebalanceMax)
		n, err := e.TopUp(ctx, id, target)
		report.Assigned += n
		if err != nil {
			e.log.Warn("rebalance top-up failed",
				zap.String("user_id", id.Hex()),
				zap.Error(err))
			report.Failures = append(report.Failures, RebalanceFailure{
				UserID: id,
				Reason: err.Error(),
			})
		}
	}
	return report, nil
}
