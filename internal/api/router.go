package api

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/fieldworks/dispatch-system/internal/api/handler"
	"github.com/fieldworks/dispatch-system/internal/core/ports"
)

// Dependencies carries everything the router needs. Services are constructed
// in the composition root because the synchronizer has a lifecycle of its own.
type Dependencies struct {
	Tracker   ports.TechnicianTracker
	Optimizer ports.RouteOptimizer
	Planner   ports.FleetPlanner
	Advisor   ports.AssignmentAdvisor
	Ingest    handler.SampleQueue
	Mongo     *mongo.Database
	Redis     *redis.Client
	Logger    zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)
	e.Validator = handler.NewValidator()

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())

	// --- Handlers ---
	dispatchHandler := handler.NewDispatchHandler(deps.Tracker, deps.Optimizer, deps.Planner, deps.Advisor)
	locationHandler := handler.NewLocationHandler(deps.Ingest)

	v1 := e.Group("/v1")
	v1.GET("/technicians", dispatchHandler.ListTechnicians)
	v1.POST("/technicians/refresh", dispatchHandler.RefreshTechnicians)
	v1.POST("/routes/optimize", dispatchHandler.OptimizeRoute)
	v1.POST("/fleet/optimize", dispatchHandler.OptimizeFleet)
	v1.POST("/assignments/suggest", dispatchHandler.SuggestAssignment)
	v1.POST("/locations", locationHandler.Ingest)

	// --- Health probes and metrics ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(deps.Mongo, deps.Redis)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e
}
