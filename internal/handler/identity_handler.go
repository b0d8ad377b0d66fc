package handler

import (
	"net/http"

	"wot-api/internal/domain"
	"wot-api/internal/middleware"
	"wot-api/internal/service"
	"wot-api/pkg/errors"
	"wot-api/pkg/logger"
)

// anonCookieMaxAge keeps the anonymous id for a year.
const anonCookieMaxAge = 365 * 24 * 60 * 60

// IdentityHandler serves anonymous identity bootstrap and identity
// introspection.
type IdentityHandler struct {
	identities   service.IdentityService
	logger       *logger.Logger
	cookieDomain string
	cookieSecure bool
}

// NewIdentityHandler creates the identity handler.
func NewIdentityHandler(identities service.IdentityService, logger *logger.Logger, cookieDomain string, cookieSecure bool) *IdentityHandler {
	return &IdentityHandler{
		identities:   identities,
		logger:       logger,
		cookieDomain: cookieDomain,
		cookieSecure: cookieSecure,
	}
}

// GetAnonymousID handles GET /api/identity/anonymous. It returns a stable
// opaque id for this browser, setting a long-lived HttpOnly cookie on the
// first call; thereafter it echoes the cookie back, so the call is
// idempotent.
func (h *IdentityHandler) GetAnonymousID(w http.ResponseWriter, r *http.Request) {
	existing := ""
	if c, err := r.Cookie(middleware.AnonCookieName); err == nil {
		existing = c.Value
	}

	id, isNew := h.identities.IssueAnonymousID(existing)
	if isNew {
		http.SetCookie(w, &http.Cookie{
			Name:     middleware.AnonCookieName,
			Value:    id,
			Path:     "/",
			Domain:   h.cookieDomain,
			MaxAge:   anonCookieMaxAge,
			HttpOnly: true,
			Secure:   h.cookieSecure,
			SameSite: http.SameSiteLaxMode,
		})
	}

	respondJSON(w, http.StatusOK, domain.AnonymousID{AnonID: id})
}

// CreateSession handles POST /api/identity/session: mint a backend
// anonymous session for this device. Concurrent first-load requests from
// the same device collapse to one creation; losers get 202 and retry.
func (h *IdentityHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	deviceID := ""
	if c, err := r.Cookie(middleware.AnonCookieName); err == nil {
		deviceID = c.Value
	}

	session, err := h.identities.CreateAnonymousSession(r.Context(), deviceID)
	if err != nil {
		if err == service.ErrIdentityPending {
			respondJSON(w, http.StatusAccepted, map[string]string{"status": "pending"})
			return
		}
		respondError(w, r, err, h.logger)
		return
	}

	respondJSON(w, http.StatusCreated, session)
}

// Me handles GET /api/identity/me.
func (h *IdentityHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, r, errors.NewAuthenticationError("No identity established"), h.logger)
		return
	}
	respondJSON(w, http.StatusOK, identity)
}
