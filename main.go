package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lg/clinic-nutrition-api/nutrition"
	"lg/clinic-nutrition-api/realtime"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

// setupLogger installs the global logger: human-readable in development,
// JSON otherwise.
func setupLogger(dev bool) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if dev {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = logger
	return logger
}

// loadTemplateLibrary reads the template file at path, or the built-in
// templates when path is empty.
func loadTemplateLibrary(path string) (*nutrition.TemplateLibrary, error) {
	if path == "" {
		return nutrition.LoadDefaultTemplates()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open templates: %w", err)
	}
	defer f.Close()
	return nutrition.LoadTemplates(f)
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.IsDev())
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := context.Background()

	pool, err := getDBPool(ctx, cfg.DBURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	templates, err := loadTemplateLibrary(cfg.TemplatesFile)
	if err != nil {
		return err
	}
	log.Info().Int("diet_types", len(templates.DietTypes())).Msg("templates loaded")

	cache, err := newPlanCache(ctx, cfg.RedisURL, cfg.PlanCacheTTL)
	if err != nil {
		return err
	}
	if closer, ok := cache.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	// Clients refetch on every tick; change events push in between.
	hub := realtime.NewHub()
	poller := realtime.NewPoller(realtime.ClampInterval(cfg.RefreshInterval), func(ctx context.Context, now time.Time) {
		ev, err := realtime.NewEvent(realtime.EventRefresh, gin.H{"at": now.UTC()})
		if err != nil {
			log.Error().Err(err).Msg("[poller] build refresh event")
			return
		}
		hub.BroadcastAll(ev)
	})
	if err := poller.Start(ctx); err != nil {
		return err
	}
	defer poller.Stop()

	h := &Handler{
		db:        pool,
		templates: templates,
		cache:     cache,
		hub:       hub,
		suggest: suggestConfig{
			baseURL: cfg.SuggestBaseURL,
			apiKey:  cfg.SuggestAPIKey,
			model:   cfg.SuggestModel,
		},
		defaultLang: cfg.DefaultLang,
	}

	if !cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(requestLogger(logger), gin.Recovery())
	if err := router.SetTrustedProxies(nil); err != nil {
		return err
	}
	h.registerRoutes(router)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("starting clinic nutrition API")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
