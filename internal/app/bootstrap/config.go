// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for CaseHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: CASEHUB_MONGO_URI, CASEHUB_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "casehub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "casehub-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},

	// Allocation engine
	{Name: "default_target", Default: 20, Desc: "Cases each user is topped up to"},
	{Name: "rebalance_min", Default: 20, Desc: "Minimum randomized rebalance target"},
	{Name: "rebalance_max", Default: 25, Desc: "Maximum randomized rebalance target"},
	{Name: "sampler_seed", Default: 0, Desc: "Fixed sampler seed for reproducible allocation (0 = random)"},

	// Background backfill sweep
	{Name: "backfill_interval", Default: "15m", Desc: "How often the backfill worker tops users up (0 disables it)"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// It is called early in startup so that both WAFFLE and the app have
// access to configuration before any backends or handlers are built.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, CASEHUB_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "CASEHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),

		DefaultTarget: appValues.Int("default_target"),
		RebalanceMin:  appValues.Int("rebalance_min"),
		RebalanceMax:  appValues.Int("rebalance_max"),
		SamplerSeed:   int64(appValues.Int("sampler_seed")),

		BackfillInterval: appValues.Duration("backfill_interval", 15*time.Minute),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// CaseHub validates the MongoDB URI format and the allocation targets
// to catch configuration errors early, before attempting to connect.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if appCfg.DefaultTarget <= 0 {
		return fmt.Errorf("default_target must be positive, got %d", appCfg.DefaultTarget)
	}
	if appCfg.RebalanceMin <= 0 || appCfg.RebalanceMax < appCfg.RebalanceMin {
		return fmt.Errorf("rebalance bounds must satisfy 0 < min <= max, got [%d,%d]",
			appCfg.RebalanceMin, appCfg.RebalanceMax)
	}
	if appCfg.BackfillInterval < 0 {
		return fmt.Errorf("backfill_interval must not be negative")
	}

	return nil
}
