package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/fudoniten/pseudovision/internal/channel"
	"github.com/fudoniten/pseudovision/internal/collection"
	"github.com/fudoniten/pseudovision/internal/config"
	"github.com/fudoniten/pseudovision/internal/db"
	"github.com/fudoniten/pseudovision/internal/event"
	"github.com/fudoniten/pseudovision/internal/fillerpreset"
	httpserver "github.com/fudoniten/pseudovision/internal/http"
	"github.com/fudoniten/pseudovision/internal/http/handlers"
	"github.com/fudoniten/pseudovision/internal/itemsource"
	"github.com/fudoniten/pseudovision/internal/logging"
	"github.com/fudoniten/pseudovision/internal/mediaitem"
	"github.com/fudoniten/pseudovision/internal/mediasource"
	"github.com/fudoniten/pseudovision/internal/migrations"
	"github.com/fudoniten/pseudovision/internal/playout"
	"github.com/fudoniten/pseudovision/internal/scheduler"
	"github.com/fudoniten/pseudovision/internal/schedule"
	"github.com/fudoniten/pseudovision/internal/timeutil"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.IsDevelopment())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting pseudovision server",
		zap.String("environment", cfg.Environment),
		zap.Int("port", cfg.Server.Port),
	)

	if err := runMigrations(cfg.Database.JDBCURL); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	dbPool, err := db.Connect(context.Background(), cfg.Database.JDBCURL, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer dbPool.Close()

	logger.Info("connected to database")

	channelService := channel.New(dbPool)
	scheduleService := schedule.New(dbPool)
	collectionService := collection.NewService(dbPool)
	collectionResolver := collection.New(dbPool, logger)
	mediaItemService := mediaitem.New(dbPool)
	mediaSourceService := mediasource.New(dbPool, logger)
	fillerPresetService := fillerpreset.New(dbPool)
	eventService := event.New(dbPool)

	source := itemsource.Combine(collectionResolver, mediaItemService)

	dispatcher := playout.New(source, fillerPresetService, logger)
	store := playout.NewPostgresStore(dbPool)
	driver := playout.NewDriver(store, dispatcher, timeutil.SystemClock{}, logger)

	buildOpts := playout.Options{
		LookaheadHours: cfg.Scheduling.LookaheadHours,
		ZoneID:         "UTC",
	}

	h := httpserver.Handlers{
		Channels:      handlers.NewChannelHandler(channelService, logger),
		Schedules:     handlers.NewScheduleHandler(scheduleService, logger),
		Collections:   handlers.NewCollectionHandler(collectionService, collectionResolver, logger),
		MediaItems:    handlers.NewMediaItemHandler(mediaItemService, logger),
		MediaSources:  handlers.NewMediaSourceHandler(mediaSourceService, logger),
		FillerPresets: handlers.NewFillerPresetHandler(fillerPresetService, logger),
		Playouts:      handlers.NewPlayoutHandler(store, driver, eventService, buildOpts, logger),
		Events:        handlers.NewEventHandler(eventService, logger),
	}
	router := httpserver.NewRouter(h, logger)

	rebuildInterval := time.Duration(cfg.Scheduling.RebuildIntervalMinutes) * time.Minute
	sched := scheduler.New(channelService, store, driver, buildOpts, rebuildInterval, logger)
	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	go sched.Start(schedulerCtx)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("address", addr))
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Fatal("server error", zap.Error(err))

	case sig := <-shutdown:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))

		stopScheduler()
		sched.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
			if err := server.Close(); err != nil {
				logger.Error("failed to close server", zap.Error(err))
			}
		}

		logger.Info("server stopped")
	}
}

// runMigrations opens a short-lived database/sql connection (the
// interface golang-migrate needs) separate from the pgxpool.Pool the
// rest of the application uses, applies pending migrations, and closes
// it before the pool is opened.
func runMigrations(databaseURL string) error {
	sqlDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer sqlDB.Close()

	return migrations.Run(sqlDB)
}
