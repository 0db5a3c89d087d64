// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PetAdopt Contributors

// Package mail delivers outbound notification email.
//
// Callers depend on the Sender interface. Production wiring puts a Dispatcher
// in front of an SMTPSender so request handlers only enqueue; delivery,
// per-attempt timeouts, and retries happen on the dispatcher's workers.
package mail

import (
	"context"
	"log/slog"
	"strings"

	"github.com/samber/oops"
)

// Message is a plain-text email.
type Message struct {
	To      string
	ReplyTo string
	Subject string
	Body    string
}

// Validate checks that the message has a recipient and a subject.
func (m Message) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return oops.Code("MAIL_INVALID_MESSAGE").Errorf("recipient cannot be empty")
	}
	if strings.TrimSpace(m.Subject) == "" {
		return oops.Code("MAIL_INVALID_MESSAGE").With("to", m.To).Errorf("subject cannot be empty")
	}
	return nil
}

// Sender sends a message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes messages to a logger instead of delivering them.
// Used when no SMTP host is configured.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

// Send logs the message at info level.
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "mail not delivered: no smtp host configured",
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Body,
	)
	return nil
}

var _ Sender = (*LogSender)(nil)
