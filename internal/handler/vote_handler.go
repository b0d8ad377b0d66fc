package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"wot-api/internal/domain"
	"wot-api/internal/middleware"
	"wot-api/internal/service"
	"wot-api/pkg/errors"
	"wot-api/pkg/logger"
)

// VoteHandler serves vote casting and prior-vote lookup.
type VoteHandler struct {
	votes  service.VoteService
	logger *logger.Logger
}

// NewVoteHandler creates the vote handler.
func NewVoteHandler(votes service.VoteService, logger *logger.Logger) *VoteHandler {
	return &VoteHandler{votes: votes, logger: logger}
}

// Cast handles POST /api/polls/{pollID}/votes. A duplicate vote is a 200
// with already_voted set, not an error status: it is an expected outcome.
func (h *VoteHandler) Cast(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, r, errors.NewAuthenticationError("Authentication required"), h.logger)
		return
	}

	var req domain.VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, errors.NewValidationError("Invalid request body", nil), h.logger)
		return
	}
	if !domain.ValidSide(req.Choice) {
		respondError(w, r, errors.NewValidationError("Choice must be A or B", nil), h.logger)
		return
	}
	if !domain.ValidGender(req.VoterGender) {
		respondError(w, r, errors.NewValidationError("Invalid voter gender", nil), h.logger)
		return
	}

	pollID := chi.URLParam(r, "pollID")
	result, err := h.votes.CastVote(r.Context(), pollID, identity, &req)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	status := http.StatusCreated
	if result.AlreadyVoted {
		status = http.StatusOK
	}
	respondJSON(w, status, result)
}

// Status handles GET /api/polls/{pollID}/vote.
func (h *VoteHandler) Status(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, r, errors.NewAuthenticationError("Authentication required"), h.logger)
		return
	}

	pollID := chi.URLParam(r, "pollID")
	status, err := h.votes.HasVoted(r.Context(), pollID, identity)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	respondJSON(w, http.StatusOK, status)
}
