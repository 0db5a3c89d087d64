// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PetAdopt Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/petadopt/petadopt/internal/config"
	"github.com/petadopt/petadopt/internal/store"
)

// NewUserCmd creates the user administration commands.
func NewUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "delete EMAIL",
		Short: "Delete an account with its sessions and listings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.auth.DeleteUser(ctx, args[0]); err != nil {
					return err
				}
				cmd.Printf("Deleted user %s\n", args[0])
				return nil
			})
		},
	})

	return cmd
}

// NewSessionCmd creates the session administration commands.
func NewSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage login sessions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "prune",
		Short: "Delete expired sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				n, err := a.auth.PruneSessions(ctx)
				if err != nil {
					return err
				}
				cmd.Printf("Removed %d expired session(s)\n", n)
				return nil
			})
		},
	})

	return cmd
}

// withApp loads config, connects to the database and runs fn against the
// wired services. Queued email is drained before returning.
func withApp(cmd *cobra.Command, fn func(context.Context, *app) error) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	return runWithApp(cmd.Context(), cfg, fn)
}

func runWithApp(ctx context.Context, cfg config.Config, fn func(context.Context, *app) error) error {
	logger := setupLogging(cfg)

	pool, err := store.Connect(ctx, cfg.Database.URL, cfg.Pool())
	if err != nil {
		return err
	}
	defer pool.Close()

	a, err := buildApp(cfg, pool, store.ReadinessCheck(pool, readinessTimeout), logger)
	if err != nil {
		return err
	}
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), mailDrainTimeout)
		defer cancel()
		if err := a.dispatcher.Close(drainCtx); err != nil {
			slog.Warn("mail queue not fully drained", "error", err)
		}
	}()

	return fn(ctx, a)
}
