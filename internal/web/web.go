// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PetAdopt Contributors

// Package web is the HTTP adapter: HTML form pages for accounts and listings,
// and a JSON listing API.
package web

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/samber/oops"

	"github.com/petadopt/petadopt/internal/auth"
	"github.com/petadopt/petadopt/internal/listing"
	"github.com/petadopt/petadopt/internal/observability"
)

// Config holds web settings.
type Config struct {
	// CORSOrigins may call the JSON API from a browser. Empty disables CORS headers.
	CORSOrigins []string
	// SecureCookies marks cookies Secure; enable behind HTTPS.
	SecureCookies bool
}

// Dependencies are the collaborators of a Handler.
type Dependencies struct {
	Auth     *auth.Service
	Listings *listing.Service
	Metrics  *observability.Metrics // optional
	Logger   *slog.Logger           // optional
}

// Handler serves the PetAdopt site.
type Handler struct {
	cfg      Config
	auth     *auth.Service
	listings *listing.Service
	metrics  *observability.Metrics
	logger   *slog.Logger
	tmpl     *renderer
}

// NewHandler parses the embedded templates and returns a Handler.
func NewHandler(cfg Config, deps Dependencies) (*Handler, error) {
	switch {
	case deps.Auth == nil:
		return nil, oops.Code("WEB_CONFIG_INVALID").Errorf("auth service is required")
	case deps.Listings == nil:
		return nil, oops.Code("WEB_CONFIG_INVALID").Errorf("listing service is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	tmpl, err := newRenderer()
	if err != nil {
		return nil, err
	}
	return &Handler{
		cfg:      cfg,
		auth:     deps.Auth,
		listings: deps.Listings,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		tmpl:     tmpl,
	}, nil
}

// Routes returns the site router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(h.instrument)

	r.Route("/api", func(r chi.Router) {
		if len(h.cfg.CORSOrigins) > 0 {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins: h.cfg.CORSOrigins,
				AllowedMethods: []string{http.MethodGet, http.MethodOptions},
				AllowedHeaders: []string{"Accept", "Content-Type"},
				MaxAge:         300,
			}))
		}
		r.Get("/listings", h.apiListings)
		r.Get("/listings/{id}", h.apiListing)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.loadSession)

		r.Get("/", h.index)
		r.Get("/login", h.loginPage)
		r.Post("/login", h.login)
		r.Get("/signup", h.signupPage)
		r.Post("/signup", h.signup)
		r.Get(auth.VerifyPath+"{token}", h.verifyAccount)
		r.Get(auth.ResendPath, h.resendPage)
		r.Post(auth.ResendPath, h.resend)
		r.Get("/adopt/{id}", h.adoptPage)
		r.Post("/adopt/{id}", h.adopt)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)
			r.Get("/profile", h.profile)
			r.Get("/logout", h.logout)
			r.Get("/listings/new", h.newListingPage)
			r.Post("/listings/new", h.createListing)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.renderError(w, r, http.StatusNotFound, "We could not find that page.")
	})
	return r
}
