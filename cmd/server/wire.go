// File: cmd/server/wire.go
//go:build wireinject
// +build wireinject

package main

import (
	"coach_admin_backend/internal/app"
	"coach_admin_backend/internal/config"
	"coach_admin_backend/internal/firebase"
	"coach_admin_backend/internal/jobs"
	"coach_admin_backend/internal/middleware"
	"coach_admin_backend/internal/platform/database"
	"coach_admin_backend/internal/platform/metrics"
	"coach_admin_backend/internal/platform/tracing"
	"coach_admin_backend/internal/profile"

	"github.com/google/wire"
)

var coreSet = wire.NewSet(
	// Platform Layer
	app.ProvideLogger,
	metrics.NewProm,

	// Firebase: identity provider and default profile store
	firebase.NewFirebaseService,
	wire.Bind(new(profile.IdentityProvider), new(*firebase.FirebaseService)),

	// Profiles
	app.ProvideProfileRepository,
	profile.NewService,
	wire.Bind(new(profile.Service), new(*profile.ServiceImplementation)),
	wire.Bind(new(jobs.OrphanFinder), new(*profile.ServiceImplementation)),

	// Jobs
	jobs.NewOrphanReconcileJob,
)

// initializeServer is the main Wire injector.
func initializeServer(cfg *config.Config) (*app.Server, func(), error) {
	wire.Build(
		coreSet,
		database.NewRedis,
		tracing.New,
		wire.Bind(new(middleware.TokenVerifier), new(*firebase.FirebaseService)),
		profile.NewHandler,

		// Application Layer
		app.NewServer,
	)
	return nil, nil, nil
}

// initializeReconciler builds just enough of the graph for one orphan sweep.
func initializeReconciler(cfg *config.Config) (*jobs.OrphanReconcileJob, func(), error) {
	wire.Build(coreSet)
	return nil, nil, nil
}
