package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"wot-api/internal/domain"
	"wot-api/internal/middleware"
	"wot-api/internal/service"
	"wot-api/pkg/errors"
	"wot-api/pkg/logger"
)

// AuthHandler serves signup, signin, signout and profile lookup.
type AuthHandler struct {
	auth   service.AuthService
	logger *logger.Logger
}

// NewAuthHandler creates the auth handler.
func NewAuthHandler(auth service.AuthService, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

// SignUp handles POST /api/auth/signup.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req domain.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, errors.NewValidationError("Invalid request body", nil), h.logger)
		return
	}

	if req.Email == "" || req.Password == "" {
		respondError(w, r, errors.NewValidationError("Email and password are required", nil), h.logger)
		return
	}

	// The route resolves the caller's identity when one is present, so an
	// anonymous visitor's history follows them onto the new account.
	var anon *domain.Identity
	if identity, ok := middleware.IdentityFromContext(r.Context()); ok {
		anon = &identity
	}

	session, err := h.auth.SignUp(r.Context(), &req, anon)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	respondJSON(w, http.StatusCreated, session)
}

// SignIn handles POST /api/auth/signin.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req domain.SigninRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, errors.NewValidationError("Invalid request body", nil), h.logger)
		return
	}

	session, err := h.auth.SignIn(r.Context(), &req)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	respondJSON(w, http.StatusOK, session)
}

// SignOut handles POST /api/auth/signout.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" || token == header {
		respondError(w, r, errors.NewAuthenticationError("Authorization header is required"), h.logger)
		return
	}

	if err := h.auth.SignOut(r.Context(), token); err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

// GetProfile handles GET /api/auth/profile.
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, r, errors.NewAuthenticationError("Authentication required"), h.logger)
		return
	}

	if identity.IsAnonymous() {
		// Anonymous sessions have no profile yet; not an error.
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"identity": identity,
			"profile":  nil,
		})
		return
	}

	profile, err := h.auth.GetProfile(r.Context(), identity.ID)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"identity": identity,
		"profile":  profile,
	})
}
