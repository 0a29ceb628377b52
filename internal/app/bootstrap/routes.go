// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	accountsfeature "github.com/dalemusser/casehub/internal/app/features/accounts"
	assignmentsfeature "github.com/dalemusser/casehub/internal/app/features/assignments"
	casesfeature "github.com/dalemusser/casehub/internal/app/features/cases"
	healthfeature "github.com/dalemusser/casehub/internal/app/features/health"
	responsesfeature "github.com/dalemusser/casehub/internal/app/features/responses"
	assignstore "github.com/dalemusser/casehub/internal/app/store/caseassign"
	casestore "github.com/dalemusser/casehub/internal/app/store/cases"
	loginstore "github.com/dalemusser/casehub/internal/app/store/logins"
	responsestore "github.com/dalemusser/casehub/internal/app/store/responses"
	userstore "github.com/dalemusser/casehub/internal/app/store/users"
	"github.com/dalemusser/casehub/internal/app/system/auth"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. At this point the allocation engine
// built in Startup is ready; this function mounts the JSON API around it:
// health, auth/accounts, the case pool, assignments, and responses.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Create the session manager using app config.
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	db := deps.MongoDatabase
	users := userstore.New(db)
	cases := casestore.New(db)
	assignments := assignstore.New(db)
	responses := responsestore.New(db)
	logins := loginstore.New(db)

	r := chi.NewRouter()

	// Global auth middleware: loads SessionUser into context if logged in.
	// This makes the current user available to all handlers via auth.CurrentUser(r).
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Accounts: signup/login/logout plus the signed-in profile
	accountsHandler := accountsfeature.NewHandler(users, logins, engine, sessionMgr, logger)
	r.Mount("/api/auth", accountsfeature.AuthRoutes(accountsHandler))
	r.Mount("/api/users", accountsfeature.UserRoutes(accountsHandler, sessionMgr))

	// Case pool management
	casesHandler := casesfeature.NewHandler(db, engine, logger)
	r.Mount("/api/cases", casesfeature.Routes(casesHandler, sessionMgr))

	// Assignments: listing, manual grants, top-up, rebalance
	assignmentsHandler := assignmentsfeature.NewHandler(engine, assignments, cases, logger)
	r.Mount("/api/assignments", assignmentsfeature.Routes(assignmentsHandler, sessionMgr))

	// Case responses
	responsesHandler := responsesfeature.NewHandler(responses, assignments, logger)
	r.Mount("/api/responses", responsesfeature.Routes(responsesHandler, sessionMgr))

	return r, nil
}
