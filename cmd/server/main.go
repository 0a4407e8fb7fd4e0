// Package main is the entry point for the Hindsight portfolio analytics server.
// It reconstructs historical holdings from brokerage activity exports, values
// them against a benchmark calendar, and serves risk and attribution results
// over HTTP.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aristath/hindsight/internal/clients/yahoo"
	"github.com/aristath/hindsight/internal/config"
	"github.com/aristath/hindsight/internal/database"
	"github.com/aristath/hindsight/internal/modules/analysis"
	"github.com/aristath/hindsight/internal/modules/prices"
	"github.com/aristath/hindsight/internal/scheduler"
	"github.com/aristath/hindsight/internal/server"
	"github.com/aristath/hindsight/pkg/logger"
)

const analysisCacheTTL = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting Hindsight")

	// Databases: history holds durable daily price bars, cache holds
	// ephemeral analysis results.
	historyDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "history.db"),
		Profile: database.ProfileHistory,
		Name:    "history",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open history database")
	}
	defer historyDB.Close()
	if err := historyDB.Migrate(prices.Schema); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate history database")
	}

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()
	if err := cacheDB.Migrate(analysis.CacheSchema); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate cache database")
	}

	marketClient := yahoo.NewClient(log)
	priceHistory := prices.NewHistoryDB(historyDB.Conn(), log)
	resultCache := analysis.NewCache(cacheDB.Conn(), analysisCacheTTL)
	analysisService := analysis.NewService(cfg, marketClient, priceHistory, resultCache)

	// Background price refresh keeps the history database warm so analysis
	// runs mostly avoid upstream fetches.
	priceSync := scheduler.NewPriceSyncJob(marketClient, priceHistory, log)
	sched := scheduler.New(log)
	if err := sched.AddJob(cfg.PriceSyncCron, priceSync); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.PriceSyncCron).Msg("Failed to register price sync job")
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Log:             log,
		Config:          cfg,
		HistoryDB:       historyDB,
		CacheDB:         cacheDB,
		AnalysisService: analysisService,
		Port:            cfg.Port,
		DevMode:         cfg.DevMode,
	})
	srv.SetPriceSyncJob(priceSync)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
