package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/mikecinchan/calendar/internal/config"
	"github.com/mikecinchan/calendar/internal/logger"
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

	log.Info("Starting sync daemon",
		zap.String("environment", cfg.Service.Environment))

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

	// The daemon is pointless without a remote side to watch.
	var remoteStore remote.Store = remote.Unavailable{}
	if cfg.Firestore.Enabled {
		firestoreClient, err := remoteFirestore.NewClient(ctx, &cfg.Firestore, log)
		if err != nil {
			log.Fatal("Failed to create Firestore client", zap.Error(err))
		}
		defer func() {
			if err := firestoreClient.Close(); err != nil {
				log.Error("Failed to close Firestore client", zap.Error(err))
			}
		}()
		remoteStore = firestoreClient
	} else {
		log.Warn("Firestore disabled, sync daemon has nothing to watch")
	}

	eventStore := store.New(local, log)
	engine := query.NewEngine(cfg.Query.DayIndexSize, cfg.Query.DayIndexTTL)
	calendarService := service.NewCalendarService(eventStore, remoteStore, local, engine, log)

	if err := calendarService.Load(ctx); err != nil {
		log.Fatal("Failed to load events", zap.Error(err))
	}

	// Start health check endpoint
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			if err := local.Ping(r.Context()); err != nil {
				log.Warn("Health check failed", zap.Error(err))
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		})

		addr := ":" + cfg.Syncd.HealthCheckPort
		log.Info("Health check server starting", zap.String("address", addr))
		if err := http.ListenAndServe(addr, nil); err != nil {
			log.Error("Health check server error", zap.Error(err))
		}
	}()

	// Watch the remote collection until shutdown
	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		if err := calendarService.WatchRemote(watchCtx); err != nil {
			log.Fatal("Remote watch error", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down sync daemon gracefully")
	cancel()
}
