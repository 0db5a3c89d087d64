// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PetAdopt Contributors

package web

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/petadopt/petadopt/internal/listing"
)

// Flash messages for listing pages.
const (
	FlashListingCreated = "Your listing is live."
	FlashInquirySent    = "Your message has been sent to the poster."
)

func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	listings, err := h.listings.List(r.Context(), listing.DefaultListLimit)
	if err != nil {
		h.logIfUnexpected(r, "list listings failed", err)
		h.renderError(w, r, statusFor(err), userMessage(err))
		return
	}
	h.render(w, r, http.StatusOK, "index", pageData{Listings: listings})
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	listings, err := h.listings.ListByOwner(r.Context(), user.Email)
	if err != nil {
		h.logIfUnexpected(r, "list own listings failed", err)
		h.renderError(w, r, statusFor(err), userMessage(err))
		return
	}

	data := pageData{User: user, Listings: listings}
	if current := sessionFrom(r.Context()); current != nil {
		data.CurrentSession = current.ID.String()
	}
	// Sessions are informational; a failure only hides the list.
	if sessions, err := h.auth.SessionsForUser(r.Context(), user.ID); err == nil {
		data.Sessions = sessions
	} else {
		h.logIfUnexpected(r, "list sessions failed", err)
	}
	h.render(w, r, http.StatusOK, "profile", data)
}

func (h *Handler) newListingPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "new_listing", pageData{})
}

func (h *Handler) createListing(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	_, err := h.listings.Create(r.Context(), userFrom(r.Context()), listing.Input{
		PetName:     r.PostForm.Get("pet_name"),
		Species:     r.PostForm.Get("species"),
		Description: r.PostForm.Get("description"),
	})
	if err != nil {
		h.logIfUnexpected(r, "create listing failed", err)
		h.render(w, r, statusFor(err), "new_listing", pageData{Flash: userMessage(err), Form: r.PostForm})
		return
	}
	h.redirectWithFlash(w, r, "/profile", FlashListingCreated)
}

// listingFromURL loads the listing named by the {id} URL parameter, writing
// the error page itself when it can't.
func (h *Handler) listingFromURL(w http.ResponseWriter, r *http.Request) (*listing.Listing, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.renderError(w, r, http.StatusNotFound, "We could not find that pet.")
		return nil, false
	}
	l, err := h.listings.Get(r.Context(), id)
	if err != nil {
		h.logIfUnexpected(r, "get listing failed", err)
		h.renderError(w, r, statusFor(err), userMessage(err))
		return nil, false
	}
	return l, true
}

func (h *Handler) adoptPage(w http.ResponseWriter, r *http.Request) {
	l, ok := h.listingFromURL(w, r)
	if !ok {
		return
	}
	data := pageData{Listing: l}
	if u := userFrom(r.Context()); u != nil {
		data.Form = map[string][]string{"name": {u.DisplayName}, "email": {u.Email}}
	}
	h.render(w, r, http.StatusOK, "adopt", data)
}

func (h *Handler) adopt(w http.ResponseWriter, r *http.Request) {
	l, ok := h.listingFromURL(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}

	err := h.listings.ContactPoster(r.Context(), l.ID, listing.Inquiry{
		Name:    r.PostForm.Get("name"),
		Email:   r.PostForm.Get("email"),
		Message: r.PostForm.Get("message"),
	})
	if err != nil {
		h.logIfUnexpected(r, "contact poster failed", err)
		h.render(w, r, statusFor(err), "adopt", pageData{Listing: l, Flash: userMessage(err), Form: r.PostForm})
		return
	}
	h.redirectWithFlash(w, r, "/", FlashInquirySent)
}

// apiListings serves GET /api/listings?limit=N.
func (h *Handler) apiListings(w http.ResponseWriter, r *http.Request) {
	limit := listing.DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	listings, err := h.listings.List(r.Context(), limit)
	if err != nil {
		h.logIfUnexpected(r, "api list listings failed", err)
		writeJSONError(w, err)
		return
	}
	if listings == nil {
		listings = []*listing.Listing{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"listings": listings})
}

// apiListing serves GET /api/listings/{id}.
func (h *Handler) apiListing(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "listing not found"})
		return
	}
	l, err := h.listings.Get(r.Context(), id)
	if err != nil {
		h.logIfUnexpected(r, "api get listing failed", err)
		writeJSONError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}
