// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PetAdopt Contributors

package main

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/samber/oops"

	"github.com/petadopt/petadopt/internal/auth"
	authpg "github.com/petadopt/petadopt/internal/auth/postgres"
	"github.com/petadopt/petadopt/internal/config"
	"github.com/petadopt/petadopt/internal/listing"
	listingpg "github.com/petadopt/petadopt/internal/listing/postgres"
	"github.com/petadopt/petadopt/internal/mail"
	"github.com/petadopt/petadopt/internal/observability"
	"github.com/petadopt/petadopt/internal/store"
	"github.com/petadopt/petadopt/internal/web"
)

// app is the wired object graph shared by serve and the admin commands.
type app struct {
	auth       *auth.Service
	listings   *listing.Service
	dispatcher *mail.Dispatcher
	obs        *observability.Server
	handler    http.Handler
}

// buildApp wires repositories, mail delivery, services, metrics and the web
// handler on top of pool.
func buildApp(cfg config.Config, pool store.Pool, ready observability.ReadinessChecker, logger *slog.Logger) (*app, error) {
	hasher, err := auth.NewArgon2idHasher(cfg.Argon2Params())
	if err != nil {
		return nil, err
	}
	tokens, err := auth.NewTokenIssuer([]byte(cfg.Auth.TokenSecret), cfg.Auth.TokenIssuer)
	if err != nil {
		return nil, err
	}

	sender, err := newMailSender(cfg, logger)
	if err != nil {
		return nil, err
	}
	dispatcher, err := mail.NewDispatcher(sender, cfg.Dispatcher(), logger)
	if err != nil {
		return nil, err
	}

	authSvc, err := auth.NewService(cfg.AuthPolicy(), auth.Dependencies{
		Users:    authpg.NewUserRepository(pool),
		Sessions: authpg.NewSessionRepository(pool),
		Hasher:   hasher,
		Tokens:   tokens,
		Mailer:   dispatcher,
		Logger:   logger,
	})
	if err != nil {
		return nil, closeOnError(dispatcher, err)
	}
	listingSvc, err := listing.NewService(listing.Dependencies{
		Repo:         listingpg.NewRepository(pool),
		Mailer:       dispatcher,
		Logger:       logger,
		StoreTimeout: cfg.Auth.StoreTimeout,
	})
	if err != nil {
		return nil, closeOnError(dispatcher, err)
	}

	obs := observability.NewServer(cfg.Metrics.Addr, ready,
		auth.RegisterMetrics,
		listing.RegisterMetrics,
		mail.RegisterMetrics,
	)

	handler, err := web.NewHandler(web.Config{
		CORSOrigins:   cfg.Server.CORSOrigins,
		SecureCookies: cfg.Server.SecureCookies,
	}, web.Dependencies{
		Auth:     authSvc,
		Listings: listingSvc,
		Metrics:  obs.Metrics(),
		Logger:   logger,
	})
	if err != nil {
		return nil, closeOnError(dispatcher, err)
	}

	return &app{
		auth:       authSvc,
		listings:   listingSvc,
		dispatcher: dispatcher,
		obs:        obs,
		handler:    handler.Routes(),
	}, nil
}

// newMailSender returns an SMTP sender, or a logging sender when no SMTP
// host is configured.
func newMailSender(cfg config.Config, logger *slog.Logger) (mail.Sender, error) {
	if cfg.Mail.Host == "" {
		logger.Warn("mail.host not set, outgoing email will only be logged")
		return mail.NewLogSender(logger), nil
	}
	sender, err := mail.NewSMTPSender(cfg.SMTP())
	if err != nil {
		return nil, oops.With("operation", "create smtp sender").Wrap(err)
	}
	return sender, nil
}

func closeOnError(d *mail.Dispatcher, err error) error {
	ctx, cancel := context.WithTimeout(context.Background(), mailDrainTimeout)
	defer cancel()
	if closeErr := d.Close(ctx); closeErr != nil {
		slog.Debug("error closing mail dispatcher", "error", closeErr)
	}
	return err
}
