package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shuweic/mp3/internal/config"
	"github.com/shuweic/mp3/internal/database"
	"github.com/shuweic/mp3/internal/handlers"
	"github.com/shuweic/mp3/internal/logging"
	"github.com/shuweic/mp3/internal/middleware"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		log.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	gin.SetMode(cfg.GinMode)

	// Connect to the document store
	connectCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	db, err := database.Open(connectCtx, cfg, log)
	cancel()
	if err != nil {
		log.Error("Failed to connect to database", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}

	router := handlers.NewRouter(log, db)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           middleware.CORS(cfg.CORSOrigins)(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", srv.Addr, "driver", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server shutdown failed", "error", err)
	}
	if err := db.Close(ctx); err != nil {
		log.Error("Failed to close database", "error", err)
	}
}
