package main

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/mikecinchan/calendar/internal/config"
	"github.com/mikecinchan/calendar/internal/handler"
	"github.com/mikecinchan/calendar/internal/logger"
	"github.com/mikecinchan/calendar/internal/pipeline"
	"github.com/mikecinchan/calendar/internal/query"
	"github.com/mikecinchan/calendar/internal/remote"
	remoteFirestore "github.com/mikecinchan/calendar/internal/remote/firestore"
	localSqlite "github.com/mikecinchan/calendar/internal/repository/sqlite"
	"github.com/mikecinchan/calendar/internal/service"
	"github.com/mikecinchan/calendar/internal/store"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	log, err := logger.New(cfg.Service.Environment)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer func(log *zap.Logger) {
		err := log.Sync()
		if err != nil {
			log.Error("Failed to sync logger", zap.Error(err))
		}
	}(log)

	log.Info("Starting calendar API service",
		zap.String("environment", cfg.Service.Environment),
		zap.String("port", cfg.Service.APIPort))

	ctx := context.Background()

	// Initialize local state store
	sqliteClient, err := localSqlite.NewClient(ctx, &cfg.SQLite, log)
	if err != nil {
		log.Fatal("Failed to create SQLite client", zap.Error(err))
	}

	local := localSqlite.NewRepository(sqliteClient, log)
	defer func() {
		if err := local.Close(); err != nil {
			log.Error("Failed to close local repository", zap.Error(err))
		}
	}()

	if err := local.InitSchema(ctx); err != nil {
		log.Fatal("Failed to initialize schema", zap.Error(err))
	}

	// Initialize remote sync adapter; local-only when not configured
	var remoteStore remote.Store = remote.Unavailable{}
	if cfg.Firestore.Enabled {
		firestoreClient, err := remoteFirestore.NewClient(ctx, &cfg.Firestore, log)
		if err != nil {
			log.Warn("Failed to create Firestore client, running local-only", zap.Error(err))
		} else {
			defer func() {
				if err := firestoreClient.Close(); err != nil {
					log.Error("Failed to close Firestore client", zap.Error(err))
				}
			}()
			remoteStore = firestoreClient
		}
	}

	// Initialize event store and query engine
	eventStore := store.New(local, log)
	engine := query.NewEngine(cfg.Query.DayIndexSize, cfg.Query.DayIndexTTL)

	// Initialize calendar service and reconcile with remote
	calendarService := service.NewCalendarService(eventStore, remoteStore, local, engine, log)
	if err := calendarService.Load(ctx); err != nil {
		log.Fatal("Failed to load events", zap.Error(err))
	}

	// Initialize import/export pipeline
	pl := pipeline.NewPipeline(eventStore, local, calendarService, log)

	// Initialize handler
	h := handler.NewHandler(calendarService, pl, log)

	addr := fmt.Sprintf(":%s", cfg.Service.APIPort)
	log.Info("API server starting", zap.String("address", addr))

	if err := http.ListenAndServe(addr, h); err != nil {
		log.Fatal("Failed to start API server", zap.Error(err))
	}
}
