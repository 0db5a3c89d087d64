// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PetAdopt Contributors

package listing

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"

	"github.com/petadopt/petadopt/internal/auth"
	"github.com/petadopt/petadopt/internal/mail"
)

// InquirySubject is the subject of the email sent to a poster.
const InquirySubject = "Someone wants to adopt your pet!"

var inquiryBody = template.Must(template.New("inquiry").Parse(
	`Hello!

{{.Name}} is interested in {{.PetName}}! They said:

{{.Message}}

If you think they will make a good family for your pet, do contact them at {{.Email}}.

Cheers!
`))

var inquiriesSent = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "petadopt_listing_inquiries_total",
		Help: "Total number of adoption inquiries by outcome",
	},
	[]string{"outcome"},
)

// RegisterMetrics registers listing metrics with the given Prometheus registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(inquiriesSent)
}

// Dependencies are the collaborators of a Service.
type Dependencies struct {
	Repo         Repository
	Mailer       mail.Sender
	Logger       *slog.Logger     // optional
	Clock        func() time.Time // optional
	StoreTimeout time.Duration    // optional, defaults to 5s
}

// Service implements browsing, creating and inquiring about listings.
type Service struct {
	repo         Repository
	mailer       mail.Sender
	logger       *slog.Logger
	now          func() time.Time
	storeTimeout time.Duration
}

// NewService creates a Service.
func NewService(deps Dependencies) (*Service, error) {
	switch {
	case deps.Repo == nil:
		return nil, oops.Code("LISTING_CONFIG_INVALID").Errorf("listing repository is required")
	case deps.Mailer == nil:
		return nil, oops.Code("LISTING_CONFIG_INVALID").Errorf("mail sender is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.StoreTimeout <= 0 {
		deps.StoreTimeout = 5 * time.Second
	}
	return &Service{
		repo:         deps.Repo,
		mailer:       deps.Mailer,
		logger:       deps.Logger,
		now:          deps.Clock,
		storeTimeout: deps.StoreTimeout,
	}, nil
}

func (s *Service) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.storeTimeout)
}

// List returns the newest listings. A non-positive limit means DefaultListLimit.
func (s *Service) List(ctx context.Context, limit int) ([]*Listing, error) {
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	storeCtx, cancel := s.storeCtx(ctx)
	defer cancel()
	listings, err := s.repo.List(storeCtx, limit)
	if err != nil {
		return nil, transientError("list listings", err)
	}
	return listings, nil
}

// Get returns one listing, or a NOT_FOUND error.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Listing, error) {
	storeCtx, cancel := s.storeCtx(ctx)
	defer cancel()
	l, err := s.repo.Get(storeCtx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, oops.Code(auth.CodeNotFound).With("listing_id", id.String()).Errorf("listing not found")
	}
	if err != nil {
		return nil, transientError("get listing", err)
	}
	return l, nil
}

// Create stores a new listing owned by owner.
func (s *Service) Create(ctx context.Context, owner *auth.User, in Input) (*Listing, error) {
	if owner == nil {
		return nil, oops.Code(auth.CodeNotAuthenticated).Errorf("not authenticated")
	}
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	l := &Listing{
		ID:          uuid.New(),
		OwnerEmail:  owner.Email,
		PetName:     in.PetName,
		Species:     in.Species,
		Description: in.Description,
		CreatedAt:   s.now().UTC(),
	}
	storeCtx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.repo.Create(storeCtx, l); err != nil {
		return nil, transientError("create listing", err)
	}
	s.logger.InfoContext(ctx, "listing created", "listing_id", l.ID.String(), "owner", l.OwnerEmail)
	return l, nil
}

// ListByOwner returns the listings posted by email.
func (s *Service) ListByOwner(ctx context.Context, email string) ([]*Listing, error) {
	storeCtx, cancel := s.storeCtx(ctx)
	defer cancel()
	listings, err := s.repo.ListByOwner(storeCtx, auth.NormalizeEmail(email))
	if err != nil {
		return nil, transientError("list listings by owner", err)
	}
	return listings, nil
}

// ContactPoster emails the listing's owner on behalf of an adopter.
// Replies go to the adopter.
func (s *Service) ContactPoster(ctx context.Context, id uuid.UUID, q Inquiry) (err error) {
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = strings.ToLower(auth.ErrorCode(err))
		}
		inquiriesSent.WithLabelValues(outcome).Inc()
	}()

	q = q.Normalize()
	if err := q.Validate(); err != nil {
		return err
	}
	l, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	var body strings.Builder
	err = inquiryBody.Execute(&body, struct {
		Name, Email, Message, PetName string
	}{q.Name, q.Email, q.Message, l.PetName})
	if err != nil {
		return oops.With("operation", "render inquiry email").Wrap(err)
	}

	msg := mail.Message{
		To:      l.OwnerEmail,
		ReplyTo: q.Email,
		Subject: InquirySubject,
		Body:    body.String(),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		// mail errors carry their own codes; report a fresh transient one
		return oops.Code(auth.CodeTransient).
			With("operation", "send inquiry").
			With("cause", err.Error()).
			Errorf("your message could not be sent, please try again later")
	}
	s.logger.InfoContext(ctx, "inquiry sent", "listing_id", l.ID.String(), "from", q.Email)
	return nil
}

func transientError(operation string, err error) error {
	return oops.Code(auth.CodeTransient).With("operation", operation).Wrap(err)
}
