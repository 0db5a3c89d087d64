// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PetAdopt Contributors

package auth

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/samber/oops"

	"github.com/petadopt/petadopt/internal/mail"
)

// VerificationSubject is the subject line of verification emails.
const VerificationSubject = "PetAdopt: Email Verification"

var verificationBody = template.Must(template.New("verification").Parse(
	`Hi {{.Name}},

Welcome to PetAdopt! Please click this link to verify your account:
    {{.VerifyURL}}

The link above will expire in {{.TTL}}. If you missed this email, please click the link below to request a new valid link:
    {{.ResendURL}}
`))

type verificationData struct {
	Name      string
	VerifyURL string
	ResendURL string
	TTL       string
}

// VerifyPath and ResendPath are the routes the verification email links to.
const (
	VerifyPath = "/verify-account/"
	ResendPath = "/request_verification_email"
)

func (s *Service) verificationMessage(user *User, token string) (mail.Message, error) {
	base := strings.TrimRight(s.cfg.BaseURL, "/")
	var body strings.Builder
	err := verificationBody.Execute(&body, verificationData{
		Name:      user.DisplayName,
		VerifyURL: base + VerifyPath + token,
		ResendURL: base + ResendPath,
		TTL:       humanDuration(s.cfg.VerificationTTL),
	})
	if err != nil {
		return mail.Message{}, oops.With("operation", "render verification email").Wrap(err)
	}
	return mail.Message{
		To:      user.Email,
		Subject: VerificationSubject,
		Body:    body.String(),
	}, nil
}

// humanDuration renders ttl as whole hours, or whole minutes below an hour.
func humanDuration(ttl time.Duration) string {
	if ttl < time.Hour {
		return plural(int(ttl/time.Minute), "minute")
	}
	return plural(int(ttl/time.Hour), "hour")
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
