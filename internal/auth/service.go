// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PetAdopt Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/petadopt/petadopt/internal/mail"
	"github.com/petadopt/petadopt/pkg/errutil"
)

// Config holds the auth policy.
type Config struct {
	// BaseURL prefixes links in outgoing email, e.g. "https://petadopt.example".
	BaseURL         string
	VerificationTTL time.Duration
	SessionTTL      time.Duration
	RememberTTL     time.Duration
	RequireVerified bool
	StoreTimeout    time.Duration
}

// DefaultConfig returns the default auth policy.
func DefaultConfig() Config {
	return Config{
		BaseURL:         "http://localhost:8080",
		VerificationTTL: 24 * time.Hour,
		SessionTTL:      24 * time.Hour,
		RememberTTL:     30 * 24 * time.Hour,
		RequireVerified: true,
		StoreTimeout:    5 * time.Second,
	}
}

// Validate checks that every duration is positive and the base URL is set.
func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return oops.Code("AUTH_CONFIG_INVALID").Errorf("base URL is required")
	}
	for name, d := range map[string]time.Duration{
		"verification_ttl": c.VerificationTTL,
		"session_ttl":      c.SessionTTL,
		"remember_ttl":     c.RememberTTL,
		"store_timeout":    c.StoreTimeout,
	} {
		if d <= 0 {
			return oops.Code("AUTH_CONFIG_INVALID").With("field", name).Errorf("%s must be positive", name)
		}
	}
	return nil
}

// Dependencies are the collaborators of a Service.
type Dependencies struct {
	Users    UserRepository
	Sessions SessionRepository
	Hasher   PasswordHasher
	Tokens   VerificationTokens
	Mailer   mail.Sender
	Logger   *slog.Logger     // optional, defaults to slog.Default()
	Clock    func() time.Time // optional, defaults to time.Now
}

// Service implements signup, verification, login and session management.
type Service struct {
	cfg      Config
	users    UserRepository
	sessions SessionRepository
	hasher   PasswordHasher
	tokens   VerificationTokens
	mailer   mail.Sender
	logger   *slog.Logger
	now      func() time.Time

	// dummyHash is verified when the email is unknown so that login timing
	// does not reveal registered emails.
	dummyHash string
}

// NewService creates a Service, validating cfg and required dependencies.
func NewService(cfg Config, deps Dependencies) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch {
	case deps.Users == nil:
		return nil, oops.Code("AUTH_CONFIG_INVALID").Errorf("user repository is required")
	case deps.Sessions == nil:
		return nil, oops.Code("AUTH_CONFIG_INVALID").Errorf("session repository is required")
	case deps.Hasher == nil:
		return nil, oops.Code("AUTH_CONFIG_INVALID").Errorf("password hasher is required")
	case deps.Tokens == nil:
		return nil, oops.Code("AUTH_CONFIG_INVALID").Errorf("token issuer is required")
	case deps.Mailer == nil:
		return nil, oops.Code("AUTH_CONFIG_INVALID").Errorf("mail sender is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	// Hashed with the configured hasher so unknown emails cost the same
	// as known ones.
	dummyHash, err := deps.Hasher.Hash(ulid.Make().String())
	if err != nil {
		return nil, oops.Code("AUTH_CONFIG_INVALID").With("operation", "derive dummy hash").Wrap(err)
	}
	return &Service{
		cfg:       cfg,
		users:     deps.Users,
		sessions:  deps.Sessions,
		hasher:    deps.Hasher,
		tokens:    deps.Tokens,
		mailer:    deps.Mailer,
		logger:    deps.Logger,
		now:       deps.Clock,
		dummyHash: dummyHash,
	}, nil
}

func (s *Service) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.StoreTimeout)
}

// SignupRequest carries the signup form.
type SignupRequest struct {
	Email    string
	Name     string
	Password string
}

// Signup registers an unverified user and sends the verification email.
// It does not log the user in.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (user *User, err error) {
	defer func() { recordOutcome("signup", err) }()

	email := NormalizeEmail(req.Email)
	name := strings.TrimSpace(req.Name)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidateDisplayName(name); err != nil {
		return nil, err
	}
	if err := ValidatePassword(req.Password); err != nil {
		return nil, err
	}

	if err := s.ensureEmailFree(ctx, email); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, transientError("hash password", err)
	}
	user, err = NewUser(email, name, hash, s.now())
	if err != nil {
		return nil, err
	}

	storeCtx, cancel := s.storeCtx(ctx)
	err = s.users.Create(storeCtx, user)
	cancel()
	switch {
	case errors.Is(err, ErrDuplicateEmail):
		return nil, duplicateEmailError(email)
	case err != nil:
		return nil, transientError("create user", err)
	}

	s.logger.InfoContext(ctx, "user signed up", "user_id", user.ID.String())
	s.sendVerification(ctx, user)
	return user, nil
}

func (s *Service) ensureEmailFree(ctx context.Context, email string) error {
	storeCtx, cancel := s.storeCtx(ctx)
	defer cancel()
	_, err := s.users.GetByEmail(storeCtx, email)
	switch {
	case err == nil:
		return duplicateEmailError(email)
	case errors.Is(err, ErrNotFound):
		return nil
	default:
		return transientError("get user by email", err)
	}
}

func duplicateEmailError(email string) error {
	return oops.Code(CodeDuplicateEmail).
		With("field", "email").
		With("email", email).
		Errorf("an account with this email already exists")
}

// sendVerification issues a token and hands the email to the mailer.
// Failures are logged and never surface to the caller.
func (s *Service) sendVerification(ctx context.Context, user *User) {
	token, err := s.tokens.Issue(user.Email, s.cfg.VerificationTTL)
	if err != nil {
		errutil.LogErrorContext(ctx, s.logger, slog.LevelError, "issue verification token failed", err)
		return
	}
	msg, err := s.verificationMessage(user, token)
	if err != nil {
		errutil.LogErrorContext(ctx, s.logger, slog.LevelError, "render verification email failed", err)
		return
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		errutil.LogErrorContext(ctx, s.logger, slog.LevelWarn, "verification email not sent", err)
		return
	}
	s.logger.DebugContext(ctx, "verification email queued", "user_id", user.ID.String())
}

// RequestVerificationEmail resends the verification email. It succeeds for
// any well-formed address so callers cannot probe which emails are registered.
func (s *Service) RequestVerificationEmail(ctx context.Context, email string) (err error) {
	defer func() { recordOutcome("request_verification", err) }()

	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return err
	}

	storeCtx, cancel := s.storeCtx(ctx)
	user, lookupErr := s.users.GetByEmail(storeCtx, email)
	cancel()
	switch {
	case errors.Is(lookupErr, ErrNotFound):
		return nil
	case lookupErr != nil:
		errutil.LogErrorContext(ctx, s.logger, slog.LevelError, "resend lookup failed",
			transientError("get user by email", lookupErr))
		return nil
	case user.Verified:
		return nil
	}

	s.sendVerification(ctx, user)
	return nil
}

// VerifyAccount marks the token's user verified. Verifying an already
// verified account succeeds without changes.
func (s *Service) VerifyAccount(ctx context.Context, token string) (email string, err error) {
	defer func() { recordOutcome("verify", err) }()

	email, err = s.tokens.Validate(token)
	if err != nil {
		kind := TokenFailureKind(err)
		s.logger.DebugContext(ctx, "verification token rejected", "reason", string(kind))
		return "", tokenInvalidError(string(kind))
	}

	storeCtx, cancel := s.storeCtx(ctx)
	defer cancel()

	user, err := s.users.GetByEmail(storeCtx, email)
	switch {
	case errors.Is(err, ErrNotFound):
		return "", tokenInvalidError("UNKNOWN_USER")
	case err != nil:
		return "", transientError("get user by email", err)
	case user.Verified:
		return email, nil
	}

	err = s.users.MarkVerified(storeCtx, email)
	switch {
	case errors.Is(err, ErrNotFound):
		return "", tokenInvalidError("UNKNOWN_USER")
	case err != nil:
		return "", transientError("mark verified", err)
	}

	s.logger.InfoContext(ctx, "account verified", "user_id", user.ID.String())
	return email, nil
}

// LoginRequest carries the login form and client metadata.
type LoginRequest struct {
	Email     string
	Password  string
	Remember  bool
	UserAgent string
	IPAddress string
}

// Login authenticates a user and creates a session.
// Returns the session and the plaintext bearer token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (session *Session, token string, err error) {
	defer func() { recordOutcome("login", err) }()

	email := NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, "", validationError("credentials", "email and password are required")
	}

	storeCtx, cancel := s.storeCtx(ctx)
	user, lookupErr := s.users.GetByEmail(storeCtx, email)
	cancel()

	targetHash := s.dummyHash
	exists := false
	switch {
	case lookupErr == nil:
		targetHash = user.PasswordHash
		exists = true
	case !errors.Is(lookupErr, ErrNotFound):
		return nil, "", transientError("get user by email", lookupErr)
	}

	// Always verify so that unknown and known emails take the same time.
	valid, verifyErr := s.hasher.Verify(req.Password, targetHash)
	if verifyErr != nil && exists {
		errutil.LogErrorContext(ctx, s.logger, slog.LevelError, "stored password hash unreadable", verifyErr)
	}

	now := s.now()
	if !exists || !valid || verifyErr != nil {
		if exists {
			s.recordLoginFailure(ctx, user, now)
		}
		return nil, "", invalidCredentialsError()
	}

	if user.IsLocked(now) {
		return nil, "", oops.Code(CodeAccountLocked).
			With("retry_after", LockoutRemaining(user.LockedUntil, now).String()).
			Errorf("account is temporarily locked")
	}

	if user.FailedAttempts > 0 || user.LockedUntil != nil {
		s.resetLoginFailures(ctx, user, now)
	}
	if s.hasher.NeedsUpgrade(user.PasswordHash) {
		if newHash, hashErr := s.hasher.Hash(req.Password); hashErr == nil {
			user.PasswordHash = newHash
			user.UpdatedAt = now
			s.bestEffortUpdate(ctx, user)
		}
	}

	if s.cfg.RequireVerified && !user.Verified {
		return nil, "", oops.Code(CodeEmailNotVerified).
			With("field", "email").
			Errorf("please verify your email before logging in")
	}

	token, tokenHash, err := GenerateSessionToken()
	if err != nil {
		return nil, "", transientError("generate session token", err)
	}

	ttl := s.cfg.SessionTTL
	if req.Remember {
		ttl = s.cfg.RememberTTL
	}
	session, err = NewSession(user.ID, tokenHash, req.Remember, req.UserAgent, req.IPAddress, now, now.Add(ttl))
	if err != nil {
		return nil, "", err
	}

	storeCtx, cancel = s.storeCtx(ctx)
	defer cancel()
	if err := s.sessions.Create(storeCtx, session); err != nil {
		return nil, "", transientError("create session", err)
	}

	s.logger.InfoContext(ctx, "user logged in",
		"user_id", user.ID.String(),
		"session_id", session.ID.String(),
		"remember", req.Remember)
	return session, token, nil
}

// bestEffortUpdate persists a rehashed password. Login proceeds regardless.
func (s *Service) bestEffortUpdate(ctx context.Context, user *User) {
	storeCtx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.users.Update(storeCtx, user); err != nil {
		errutil.LogErrorContext(ctx, s.logger, slog.LevelWarn, "update user after login attempt failed",
			oops.With("user_id", user.ID.String()).Wrap(err))
	}
}

// recordLoginFailure counts a wrong password in the store. The count is
// kept by the store so that parallel guesses cannot overwrite each other.
func (s *Service) recordLoginFailure(ctx context.Context, user *User, now time.Time) {
	storeCtx, cancel := s.storeCtx(ctx)
	defer cancel()
	_, lockedUntil, err := s.users.RecordLoginFailure(storeCtx, user.Email, now)
	if err != nil {
		errutil.LogErrorContext(ctx, s.logger, slog.LevelWarn, "record login failure failed",
			oops.With("user_id", user.ID.String()).Wrap(err))
		return
	}
	if lockedUntil != nil && lockedUntil.After(now) && !IsLockedOut(user.LockedUntil, now) {
		s.logger.WarnContext(ctx, "account locked after repeated login failures",
			"user_id", user.ID.String(),
			"locked_until", lockedUntil.UTC().Format(time.RFC3339))
	}
}

func (s *Service) resetLoginFailures(ctx context.Context, user *User, now time.Time) {
	storeCtx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.users.ResetLoginFailures(storeCtx, user.Email, now); err != nil {
		errutil.LogErrorContext(ctx, s.logger, slog.LevelWarn, "reset login failures failed",
			oops.With("user_id", user.ID.String()).Wrap(err))
	}
}

// resolveSession finds the live session for token.
func (s *Service) resolveSession(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, notAuthenticatedError()
	}

	storeCtx, cancel := s.storeCtx(ctx)
	defer cancel()

	session, err := s.sessions.GetByTokenHash(storeCtx, HashSessionToken(token))
	switch {
	case errors.Is(err, ErrNotFound):
		return nil, notAuthenticatedError()
	case err != nil:
		return nil, transientError("get session by token hash", err)
	}

	if session.IsExpiredAt(s.now()) {
		if err := s.sessions.Delete(storeCtx, session.ID); err != nil && !errors.Is(err, ErrNotFound) {
			errutil.LogErrorContext(ctx, s.logger, slog.LevelWarn, "delete expired session failed", err)
		}
		return nil, notAuthenticatedError()
	}
	return session, nil
}

// Logout deletes the session identified by token.
func (s *Service) Logout(ctx context.Context, token string) (err error) {
	defer func() { recordOutcome("logout", err) }()

	session, err := s.resolveSession(ctx, token)
	if err != nil {
		return err
	}

	storeCtx, cancel := s.storeCtx(ctx)
	defer cancel()
	err = s.sessions.Delete(storeCtx, session.ID)
	switch {
	case errors.Is(err, ErrNotFound):
		return notAuthenticatedError()
	case err != nil:
		return transientError("delete session", err)
	}

	s.logger.InfoContext(ctx, "user logged out", "session_id", session.ID.String())
	return nil
}

// CurrentUser resolves a session token into its user and session and
// refreshes the session's LastSeenAt.
func (s *Service) CurrentUser(ctx context.Context, token string) (*User, *Session, error) {
	session, err := s.resolveSession(ctx, token)
	if err != nil {
		return nil, nil, err
	}

	storeCtx, cancel := s.storeCtx(ctx)
	defer cancel()

	user, err := s.users.GetByID(storeCtx, session.UserID)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil, nil, notAuthenticatedError()
	case err != nil:
		return nil, nil, transientError("get user by id", err)
	}

	now := s.now()
	if err := s.sessions.UpdateLastSeen(storeCtx, session.ID, now); err != nil {
		s.logger.DebugContext(ctx, "update session last seen failed", "session_id", session.ID.String(), "error", err)
	} else {
		session.LastSeenAt = now
	}
	return user, session, nil
}

// DeleteUser removes an account and its sessions.
func (s *Service) DeleteUser(ctx context.Context, email string) (err error) {
	defer func() { recordOutcome("delete_user", err) }()

	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return err
	}

	storeCtx, cancel := s.storeCtx(ctx)
	defer cancel()
	err = s.users.Delete(storeCtx, email)
	switch {
	case errors.Is(err, ErrNotFound):
		return oops.Code(CodeNotFound).With("email", email).Errorf("user not found")
	case err != nil:
		return transientError("delete user", err)
	}

	s.logger.InfoContext(ctx, "user deleted", "email", email)
	return nil
}

// SessionsForUser lists the sessions of a user.
func (s *Service) SessionsForUser(ctx context.Context, userID ulid.ULID) ([]*Session, error) {
	storeCtx, cancel := s.storeCtx(ctx)
	defer cancel()
	sessions, err := s.sessions.ListByUser(storeCtx, userID)
	if err != nil {
		return nil, transientError("list sessions", err)
	}
	return sessions, nil
}

// PruneSessions deletes expired sessions and returns how many were removed.
func (s *Service) PruneSessions(ctx context.Context) (int64, error) {
	storeCtx, cancel := s.storeCtx(ctx)
	defer cancel()
	n, err := s.sessions.DeleteExpired(storeCtx, s.now())
	if err != nil {
		return 0, transientError("delete expired sessions", err)
	}
	s.logger.InfoContext(ctx, "expired sessions pruned", "count", n)
	return n, nil
}
