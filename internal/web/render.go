// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PetAdopt Contributors

package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/samber/oops"

	"github.com/petadopt/petadopt/internal/auth"
	"github.com/petadopt/petadopt/internal/listing"
	"github.com/petadopt/petadopt/pkg/errutil"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = []string{
	"index", "profile", "login", "signup", "verify", "new_listing", "adopt", "error",
}

// pageData is the model handed to every page template.
type pageData struct {
	User     *auth.User
	Flash    string
	Form     url.Values
	Listings []*listing.Listing
	Listing  *listing.Listing
	Sessions []*auth.Session
	// CurrentSession is the ID of the session making the request.
	CurrentSession string
	Status         string
	Message        string
}

type renderer struct {
	pages map[string]*template.Template
}

func newRenderer() (*renderer, error) {
	r := &renderer{pages: make(map[string]*template.Template, len(pages))}
	for _, page := range pages {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+page+".html")
		if err != nil {
			return nil, oops.Code("WEB_TEMPLATE_INVALID").With("page", page).Wrap(err)
		}
		r.pages[page] = t
	}
	return r, nil
}

// render writes page with status. The page is rendered into a buffer first so
// a template error never produces a half-written 200.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page string, data pageData) {
	if data.User == nil {
		data.User = userFrom(r.Context())
	}
	if data.Flash == "" {
		data.Flash = h.takeFlash(w, r)
	}

	var buf bytes.Buffer
	if err := h.tmpl.pages[page].ExecuteTemplate(&buf, "layout", data); err != nil {
		errutil.LogErrorContext(r.Context(), h.logger, slog.LevelError, "render page failed",
			oops.With("page", page).Wrap(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	//nolint:errcheck // client may have gone away
	w.Write(buf.Bytes())
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.render(w, r, status, "error", pageData{Status: http.StatusText(status), Message: message})
}

// statusFor maps an error code to an HTTP status.
func statusFor(err error) int {
	switch auth.ErrorCode(err) {
	case auth.CodeValidation:
		return http.StatusUnprocessableEntity
	case auth.CodeDuplicateEmail:
		return http.StatusConflict
	case auth.CodeInvalidCredentials, auth.CodeNotAuthenticated:
		return http.StatusUnauthorized
	case auth.CodeAccountLocked:
		return http.StatusTooManyRequests
	case auth.CodeEmailNotVerified:
		return http.StatusForbidden
	case auth.CodeNotFound:
		return http.StatusNotFound
	case auth.CodeTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// userMessage is the text shown for err. Only validation messages are
// passed through verbatim; everything else gets a fixed message.
func userMessage(err error) string {
	switch auth.ErrorCode(err) {
	case auth.CodeValidation:
		return err.Error()
	case auth.CodeDuplicateEmail:
		return "An account with that email already exists."
	case auth.CodeInvalidCredentials:
		return FlashBadLogin
	case auth.CodeAccountLocked:
		return "Too many failed login attempts. Please try again later."
	case auth.CodeEmailNotVerified:
		return "Please verify your email before logging in."
	case auth.CodeNotFound:
		return "We could not find that page."
	case auth.CodeTransient:
		return "Something went wrong on our side. Please try again."
	default:
		return "Something went wrong. Please try again."
	}
}

// logIfUnexpected logs errors that are not a normal user-facing outcome.
func (h *Handler) logIfUnexpected(r *http.Request, msg string, err error) {
	switch statusFor(err) {
	case http.StatusServiceUnavailable, http.StatusInternalServerError:
		errutil.LogErrorContext(r.Context(), h.logger, slog.LevelError, msg, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}

func writeJSONError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]any{
		"error": userMessage(err),
		"code":  auth.ErrorCode(err),
	})
}
