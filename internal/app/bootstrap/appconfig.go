// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like:
//   - HTTP/HTTPS ports and TLS configuration
//   - Logging level and format
//   - CORS settings
//   - Request body size limits
//   - Database connection timeouts
//
// AppConfig is where everything specific to CaseHub lives: the Mongo
// connection, session cookies, and the allocation engine's tuning.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Max connection pool size
	MongoMinPoolSize uint64 // Min connection pool size

	// Session management configuration
	SessionKey    string // Secret key for signing session cookies (must be strong in production)
	SessionName   string // Cookie name for sessions (default: casehub-session)
	SessionDomain string // Cookie domain (blank means current host)

	// Allocation engine configuration
	DefaultTarget int   // cases each user is topped up to on signup/login/topup
	RebalanceMin  int   // inclusive lower bound for randomized rebalance targets
	RebalanceMax  int   // inclusive upper bound for randomized rebalance targets
	SamplerSeed   int64 // fixed sampler seed; 0 means seed from the clock

	// Background backfill sweep
	BackfillInterval time.Duration // 0 disables the worker
}
