// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/casehub/internal/app/allocation"
	assignstore "github.com/dalemusser/casehub/internal/app/store/caseassign"
	casestore "github.com/dalemusser/casehub/internal/app/store/cases"
	userstore "github.com/dalemusser/casehub/internal/app/store/users"
	"github.com/dalemusser/casehub/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shared between Startup, BuildHandler, and Shutdown. WAFFLE runs the
// hooks sequentially, so plain package vars are safe here.
var (
	engine   *allocation.Engine
	backfill *workers.AssignmentBackfill
)

// Startup runs one-time application initialization after DB connections
// and schema setup are complete, but before the HTTP handler is built.
// CaseHub builds the allocation engine here and starts the backfill
// worker that keeps every user topped up.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	db := deps.MongoDatabase

	sampler := allocation.NewRandomSampler()
	if appCfg.SamplerSeed != 0 {
		sampler = allocation.NewSampler(appCfg.SamplerSeed)
		logger.Info("allocation sampler seeded", zap.Int64("seed", appCfg.SamplerSeed))
	}

	engine = allocation.New(
		userstore.New(db),
		casestore.New(db),
		allocation.NewStoreLedger(assignstore.New(db)),
		sampler,
		allocation.Config{
			DefaultTarget: appCfg.DefaultTarget,
			RebalanceMin:  appCfg.RebalanceMin,
			RebalanceMax:  appCfg.RebalanceMax,
		},
		logger,
	)

	if appCfg.BackfillInterval > 0 {
		backfill = workers.NewAssignmentBackfill(engine, logger, appCfg.BackfillInterval)
		backfill.Start()
	} else {
		logger.Info("assignment backfill worker disabled")
	}

	return nil
}
