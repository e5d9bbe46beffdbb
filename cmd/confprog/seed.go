package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/example/conference-program/internal/application"
	"github.com/example/conference-program/internal/logging"
	"github.com/example/conference-program/internal/persistence"
	"github.com/example/conference-program/internal/persistence/sqlite"
)

func newSeedCommand() *cobra.Command {
	var (
		configFile  string
		email       string
		password    string
		displayName string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the initial administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), configFile, email, password, displayName)
		},
	}
	cmd.Flags().StringVar(&configFile, "config", "", "path to a YAML configuration file")
	cmd.Flags().StringVar(&email, "email", "", "administrator email address")
	cmd.Flags().StringVar(&password, "password", "", "administrator password")
	cmd.Flags().StringVar(&displayName, "display-name", "Administrator", "administrator display name")
	return cmd
}

func runSeed(ctx context.Context, configFile, email, password, displayName string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return fmt.Errorf("--email is required")
	}
	if len(password) < 8 {
		return fmt.Errorf("--password must be at least 8 characters")
	}

	cfg, err := loadConfig(configFile)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logger := logging.NewLogger(cfg.LogLevel)

	if ctx == nil {
		ctx = context.Background()
	}
	store, err := sqlite.OpenStore(ctx, cfg.SQLiteDSN)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	hash, err := application.CreatePasswordHash(password, application.DefaultArgon2idParams)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	account := persistence.Account{
		ID:          uuid.NewString(),
		Email:       email,
		DisplayName: displayName,
		IsAdmin:     true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err = store.CreateAccount(ctx, persistence.AccountCredentials{
		Account:      account,
		PasswordHash: hash,
	})
	if err != nil {
		return fmt.Errorf("create administrator account: %w", err)
	}

	logger.Info("administrator account created", "account_id", account.ID, "email", account.Email)
	return nil
}
