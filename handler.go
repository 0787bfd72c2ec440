package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"lg/clinic-nutrition-api/nutrition"
	"lg/clinic-nutrition-api/realtime"
)

// Handler holds shared dependencies (db pool, templates, cache, hub) for all
// route handlers.
type Handler struct {
	db          *pgxpool.Pool
	templates   *nutrition.TemplateLibrary
	cache       planCache
	hub         *realtime.Hub
	suggest     suggestConfig
	defaultLang string
	now         func() time.Time
}

/* ─── Database helpers ────────────────────────────────────────────────── */

// queryOne runs a query and scans the first row into T using RowToStructByName.
// Logs query and scan errors for debugging (e.g. struct/column mismatches).
func queryOne[T any](pool *pgxpool.Pool, c *gin.Context, sql string, args pgx.NamedArgs) (T, error) {
	rows, err := pool.Query(c, sql, args)
	if err != nil {
		log.Error().Err(err).Msg("[queryOne] query error")
		var zero T
		return zero, err
	}
	result, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[T])
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		log.Error().Err(err).Msg("[queryOne] scan error")
	}
	return result, err
}

// queryMany runs a query and scans all rows into []T using RowToStructByName.
func queryMany[T any](pool *pgxpool.Pool, c *gin.Context, sql string, args pgx.NamedArgs) ([]T, error) {
	rows, err := pool.Query(c, sql, args)
	if err != nil {
		log.Error().Err(err).Msg("[queryMany] query error")
		return nil, err
	}
	results, err := pgx.CollectRows(rows, pgx.RowToStructByName[T])
	if err != nil {
		log.Error().Err(err).Msg("[queryMany] scan error")
	}
	return results, err
}

// apiError returns a consistent JSON error response: {"error": "message"}.
func apiError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// today returns the handler's current date as YYYY-MM-DD.
func (h *Handler) today() string {
	return h.clock().Format(time.DateOnly)
}

func (h *Handler) clock() time.Time {
	if h.now != nil {
		return h.now()
	}
	return time.Now()
}

// notify pushes an event to one user's open connections. A nil hub (tests,
// CLI) makes this a no-op.
func (h *Handler) notify(userID int, eventType string, data any) {
	if h.hub == nil {
		return
	}
	ev, err := realtime.NewEvent(eventType, data)
	if err != nil {
		log.Error().Err(err).Str("type", eventType).Msg("[notify] build event")
		return
	}
	h.hub.Broadcast(strconv.Itoa(userID), ev)
}

/* ─── Server setup ────────────────────────────────────────────────────── */

// getDBPool creates a connection pool. We use a pool (not a single conn) because
// Neon closes idle connections after ~5 minutes.
func getDBPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse DB URL: %w", err)
	}
	// Use simple query protocol to avoid "cached plan must not change result type"
	// errors from Neon's server-side prepared statement cache after schema changes.
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// registerRoutes registers all API routes on the router.
func (h *Handler) registerRoutes(router *gin.Engine) {
	// Public routes
	router.POST("/api/login", h.login)
	router.GET("/api/diet-types", h.listDietTypes)
	router.POST("/api/nutrition/estimate", h.estimateEnergy)
	router.POST("/api/nutrition/evaluate", h.evaluateCompliance)

	// Authenticated routes
	api := router.Group("/api", h.authMiddleware())
	api.GET("/realtime", h.realtimeConnect)

	api.GET("/profile", h.getOwnProfile)
	api.PATCH("/profile", h.patchOwnProfile)

	api.POST("/meal-plans/preview", h.previewMealPlan)
	api.GET("/meal-plans/:id", h.getMealPlan)

	api.GET("/meal-log/daily", h.getDailySummary)
	api.GET("/meal-log/week-summary", h.getWeekSummary)
	api.GET("/meal-log/progress", h.getProgress)
	api.GET("/meal-log/earliest-date", h.getEarliestLogDate)
	api.POST("/meal-log/items", h.createMealLogItem)
	api.PUT("/meal-log/items/:id", h.updateMealLogItem)
	api.DELETE("/meal-log/items/:id", h.deleteMealLogItem)
	api.POST("/meal-log/select", h.selectPlannedMeal)

	api.GET("/measurements", h.getMeasurements)
	api.POST("/measurements", h.upsertMeasurement)
	api.PUT("/measurements/:id", h.updateMeasurement)
	api.DELETE("/measurements/:id", h.deleteMeasurement)

	api.POST("/meals/suggest", h.suggestMeal)

	// Patient-scoped routes: doctors see everyone, patients only themselves
	patients := api.Group("/patients/:id", h.patientScope())
	patients.GET("/profile", h.getPatientProfile)
	patients.GET("/meal-plans", h.listMealPlans)

	// Doctor-only routes
	doctor := api.Group("", requireRole(roleDoctor))
	doctor.GET("/patients", h.listPatients)
	doctor.PATCH("/patients/:id/profile", h.patientScope(), h.patchPatientProfile)
	doctor.POST("/patients/:id/meal-plans", h.patientScope(), h.createMealPlan)
	doctor.DELETE("/meal-plans/:id", h.deleteMealPlan)
}
