// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PetAdopt Contributors

package web

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/petadopt/petadopt/internal/auth"
)

// Flash messages shown after redirects.
const (
	FlashSignedUp       = "Account created! Check your email for a link to verify your account."
	FlashVerified       = "Your email has been verified. You can now log in."
	FlashVerifyFailed   = "Your link has expired or is invalid! Request a new valid link!"
	FlashLinkSent       = "If that account needs verifying, a new link has been sent to your email."
	FlashLoggedOut      = "You have been logged out."
	FlashNeedsVerifying = "Please verify your email before logging in. You can request a new link below."
	FlashBadLogin       = "Please check your login details and try again."
)

func (h *Handler) loginPage(w http.ResponseWriter, r *http.Request) {
	if userFrom(r.Context()) != nil {
		http.Redirect(w, r, "/profile", http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, "login", pageData{})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	if userFrom(r.Context()) != nil {
		http.Redirect(w, r, "/profile", http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}

	session, token, err := h.auth.Login(r.Context(), auth.LoginRequest{
		Email:     r.PostForm.Get("email"),
		Password:  r.PostForm.Get("password"),
		Remember:  rememberRequested(r.PostForm),
		UserAgent: r.UserAgent(),
		IPAddress: clientIP(r),
	})
	switch {
	case err == nil:
		h.setSessionCookie(w, token, session)
		http.Redirect(w, r, "/profile", http.StatusSeeOther)
	case auth.IsCode(err, auth.CodeEmailNotVerified):
		h.redirectWithFlash(w, r, auth.ResendPath, FlashNeedsVerifying)
	default:
		h.logIfUnexpected(r, "login failed", err)
		status, msg := statusFor(err), userMessage(err)
		// A malformed login form looks the same as bad credentials.
		if auth.IsCode(err, auth.CodeValidation) {
			status, msg = http.StatusUnauthorized, FlashBadLogin
		}
		form := r.PostForm
		form.Del("password")
		h.render(w, r, status, "login", pageData{Flash: msg, Form: form})
	}
}

// rememberRequested reports whether the login should outlive the browser
// session. The form posts a hidden "off" ahead of the checkbox, so the last
// value is the user's choice. Clients that omit the field are remembered.
func rememberRequested(form url.Values) bool {
	values := form["remember"]
	return len(values) == 0 || values[len(values)-1] != "off"
}

func (h *Handler) signupPage(w http.ResponseWriter, r *http.Request) {
	if userFrom(r.Context()) != nil {
		http.Redirect(w, r, "/profile", http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, "signup", pageData{})
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	if userFrom(r.Context()) != nil {
		http.Redirect(w, r, "/profile", http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}

	_, err := h.auth.Signup(r.Context(), auth.SignupRequest{
		Email:    r.PostForm.Get("email"),
		Name:     r.PostForm.Get("name"),
		Password: r.PostForm.Get("password"),
	})
	if err != nil {
		h.logIfUnexpected(r, "signup failed", err)
		form := r.PostForm
		form.Del("password")
		h.render(w, r, statusFor(err), "signup", pageData{Flash: userMessage(err), Form: form})
		return
	}
	h.redirectWithFlash(w, r, "/login", FlashSignedUp)
}

func (h *Handler) verifyAccount(w http.ResponseWriter, r *http.Request) {
	_, err := h.auth.VerifyAccount(r.Context(), chi.URLParam(r, "token"))
	switch {
	case err == nil:
		h.redirectWithFlash(w, r, "/login", FlashVerified)
	case auth.IsCode(err, auth.CodeTokenInvalid):
		h.redirectWithFlash(w, r, auth.ResendPath, FlashVerifyFailed)
	default:
		h.logIfUnexpected(r, "verify account failed", err)
		h.renderError(w, r, statusFor(err), userMessage(err))
	}
}

func (h *Handler) resendPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "verify", pageData{})
}

func (h *Handler) resend(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	if err := h.auth.RequestVerificationEmail(r.Context(), r.PostForm.Get("email")); err != nil {
		h.render(w, r, statusFor(err), "verify", pageData{Flash: userMessage(err), Form: r.PostForm})
		return
	}
	h.redirectWithFlash(w, r, "/login", FlashLinkSent)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	err := h.auth.Logout(r.Context(), sessionToken(r))
	if err != nil && !auth.IsCode(err, auth.CodeNotAuthenticated) {
		h.logIfUnexpected(r, "logout failed", err)
	}
	h.clearSessionCookie(w)
	h.redirectWithFlash(w, r, "/", FlashLoggedOut)
}
