// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PetAdopt Contributors

package web

import (
	"encoding/base64"
	"net/http"

	"github.com/petadopt/petadopt/internal/auth"
)

// Cookie names.
const (
	SessionCookie = "petadopt_session"
	FlashCookie   = "petadopt_flash"
)

const flashMaxAge = 60 // seconds

// setSessionCookie stores the bearer token. The cookie only outlives the
// browser session when the user asked to be remembered.
func (h *Handler) setSessionCookie(w http.ResponseWriter, token string, session *auth.Session) {
	c := &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.cfg.SecureCookies,
	}
	if session.Remember {
		c.Expires = session.ExpiresAt
		c.MaxAge = int(session.ExpiresAt.Sub(session.CreatedAt).Seconds())
	}
	http.SetCookie(w, c)
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.cfg.SecureCookies,
		MaxAge:   -1,
	})
}

func sessionToken(r *http.Request) string {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

// setFlash stores a one-shot message shown on the next rendered page.
func (h *Handler) setFlash(w http.ResponseWriter, msg string) {
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookie,
		Value:    base64.RawURLEncoding.EncodeToString([]byte(msg)),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.cfg.SecureCookies,
		MaxAge:   flashMaxAge,
	})
}

// takeFlash returns and clears the pending flash message.
func (h *Handler) takeFlash(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie(FlashCookie)
	if err != nil {
		return ""
	}
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.cfg.SecureCookies,
		MaxAge:   -1,
	})
	msg, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return ""
	}
	return string(msg)
}

// redirectWithFlash sets msg and redirects with 303 See Other.
func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, to, msg string) {
	if msg != "" {
		h.setFlash(w, msg)
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}
