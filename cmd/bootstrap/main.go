// Command bootstrap idempotently ensures the credential schema exists and a
// default admin account is present, printing its credentials exactly once.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/gatewarden/gatewarden/internal/app"
	"github.com/gatewarden/gatewarden/internal/auth"
	"github.com/gatewarden/gatewarden/internal/platform/db"
	"github.com/gatewarden/gatewarden/internal/shared"
	"github.com/gatewarden/gatewarden/internal/users"
)

const (
	adminUsername = "admin"
	adminEmail    = "admin@example.com"
	adminPassword = "Admin@123"
)

func main() {
	ctx := context.Background()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	if err := users.NewRepository(dbpool).EnsureSchema(ctx); err != nil {
		logger.Error("ensure schema", slog.Any("error", err))
		os.Exit(1)
	}

	repo := auth.NewRepository(dbpool)
	if _, err := repo.FindByIdentifier(ctx, adminEmail); err == nil {
		fmt.Println("Admin user already exists, nothing to do.")
		return
	} else if !errors.Is(err, shared.ErrNotFound) {
		logger.Error("look up admin", slog.Any("error", err))
		os.Exit(1)
	}

	hash, err := auth.NewHasher(cfg.BcryptCost).Hash(adminPassword)
	if err != nil {
		logger.Error("hash admin password", slog.Any("error", err))
		os.Exit(1)
	}

	admin, err := repo.Create(ctx, &auth.User{
		Username:     adminUsername,
		Email:        adminEmail,
		PasswordHash: hash,
		Role:         shared.RoleAdmin,
		IsActive:     true,
	})
	if err != nil {
		// A concurrent bootstrap may have won the insert; that still
		// satisfies "exactly one admin exists".
		if errors.Is(err, shared.ErrConflict) {
			fmt.Println("Admin user already exists, nothing to do.")
			return
		}
		logger.Error("create admin", slog.Any("error", err))
		os.Exit(1)
	}

	fmt.Println("Admin user created successfully!")
	fmt.Printf("Email: %s\n", admin.Email)
	fmt.Printf("Password: %s\n", adminPassword)
	fmt.Println()
	fmt.Println("Please change the password after first login!")
}
