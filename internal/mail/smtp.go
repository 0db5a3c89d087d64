// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PetAdopt Contributors

package mail

import (
	"context"
	"time"

	"github.com/samber/oops"
	gomail "github.com/wneessen/go-mail"
)

// SMTPConfig holds mail transport settings. Credentials come from the environment.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// StartTLS requires STARTTLS when true; false allows plaintext for local relays.
	StartTLS bool
	Timeout  time.Duration
}

// Validate checks the transport settings.
func (c SMTPConfig) Validate() error {
	if c.Host == "" {
		return oops.Code("MAIL_CONFIG_INVALID").Errorf("smtp host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return oops.Code("MAIL_CONFIG_INVALID").With("port", c.Port).Errorf("smtp port out of range")
	}
	if c.From == "" {
		return oops.Code("MAIL_CONFIG_INVALID").Errorf("sender address is required")
	}
	if c.Password != "" && c.Username == "" {
		return oops.Code("MAIL_CONFIG_INVALID").Errorf("smtp username is required when a password is set")
	}
	return nil
}

// SMTPSender delivers messages over SMTP, one connection per Send.
type SMTPSender struct {
	cfg SMTPConfig
}

// NewSMTPSender creates an SMTPSender after validating cfg.
func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &SMTPSender{cfg: cfg}, nil
}

// Send dials the relay and delivers msg. ctx bounds the whole exchange.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m, err := s.buildMsg(msg)
	if err != nil {
		return err
	}

	client, err := gomail.NewClient(s.cfg.Host, s.clientOptions()...)
	if err != nil {
		return oops.Code("MAIL_CLIENT_FAILED").
			With("host", s.cfg.Host).
			Wrap(err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return oops.Code("MAIL_SEND_FAILED").
			With("host", s.cfg.Host).
			With("to", msg.To).
			Wrap(err)
	}
	return nil
}

func (s *SMTPSender) clientOptions() []gomail.Option {
	opts := []gomail.Option{gomail.WithPort(s.cfg.Port)}
	if s.cfg.Timeout > 0 {
		opts = append(opts, gomail.WithTimeout(s.cfg.Timeout))
	}
	if s.cfg.StartTLS {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSMandatory))
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.NoTLS))
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.cfg.Username),
			gomail.WithPassword(s.cfg.Password),
		)
	}
	return opts
}

func (s *SMTPSender) buildMsg(msg Message) (*gomail.Msg, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	m := gomail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return nil, oops.Code("MAIL_INVALID_MESSAGE").With("from", s.cfg.From).Wrap(err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, oops.Code("MAIL_INVALID_MESSAGE").With("to", msg.To).Wrap(err)
	}
	if msg.ReplyTo != "" {
		if err := m.ReplyTo(msg.ReplyTo); err != nil {
			return nil, oops.Code("MAIL_INVALID_MESSAGE").With("reply_to", msg.ReplyTo).Wrap(err)
		}
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextPlain, msg.Body)
	return m, nil
}

var _ Sender = (*SMTPSender)(nil)
