package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/example/conference-program/internal/application"
	"github.com/example/conference-program/internal/config"
	httptransport "github.com/example/conference-program/internal/http"
	"github.com/example/conference-program/internal/logging"
	"github.com/example/conference-program/internal/persistence/sqlite"
	"github.com/example/conference-program/internal/realtime"
	"github.com/example/conference-program/internal/realtime/ws"
)

func newServeCommand() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and change stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configFile)
		},
	}
	cmd.Flags().StringVar(&configFile, "config", "", "path to a YAML configuration file")
	return cmd
}

func runServe(configFile string) error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.OpenStore(ctx, cfg.SQLiteDSN)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	idGenerator := uuid.NewString
	tokenGenerator := func() string { return randomHex(32) }
	now := time.Now

	broker := realtime.NewBroker()
	hub := ws.NewHub(broker, logger)
	go func() {
		if err := hub.Run(ctx); err != nil {
			logger.Error("change stream hub stopped", "error", err)
		}
	}()

	dayService := application.NewDayService(store, store, broker, idGenerator, now, logger)
	hallService := application.NewHallService(store, store, broker, idGenerator, now, logger)
	slotService := application.NewSlotService(store, store, broker, idGenerator, now, logger)
	sessionService := application.NewSessionService(store, store, broker, idGenerator, now, logger)
	personService := application.NewPersonService(store, idGenerator, now, logger)
	programService := application.NewProgramService(store, store, store, store, store, logger)
	authService := application.NewAuthService(store, store, tokenGenerator, idGenerator, now, cfg.SessionTTL, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:     httptransport.NewAuthHandler(authService, logger),
		Days:     httptransport.NewDayHandler(dayService, slotService, programService, logger),
		Halls:    httptransport.NewHallHandler(hallService, logger),
		Slots:    httptransport.NewSlotHandler(slotService, logger),
		Sessions: httptransport.NewSessionHandler(sessionService, logger),
		Persons:  httptransport.NewPersonHandler(personService, logger),
		Stream:   hub,
		Protect:  httptransport.RequireSession(authService, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("conference program API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func loadConfig(configFile string) (config.Config, error) {
	if configFile != "" {
		return config.LoadFile(configFile)
	}
	return config.Load()
}

func randomHex(bytes int) string {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
