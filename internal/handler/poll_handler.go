package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"wot-api/internal/domain"
	"wot-api/internal/middleware"
	"wot-api/internal/service"
	"wot-api/pkg/errors"
	"wot-api/pkg/logger"
)

// PollHandler serves poll creation, lookup, feeds and lifecycle.
type PollHandler struct {
	polls  service.PollService
	logger *logger.Logger
}

// NewPollHandler creates the poll handler.
func NewPollHandler(polls service.PollService, logger *logger.Logger) *PollHandler {
	return &PollHandler{polls: polls, logger: logger}
}

// Create handles POST /api/polls.
func (h *PollHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, r, errors.NewAuthenticationError("Authentication required"), h.logger)
		return
	}

	var req domain.CreatePollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, errors.NewValidationError("Invalid request body", nil), h.logger)
		return
	}

	pollID, err := h.polls.CreatePoll(r.Context(), identity, &req)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"id": pollID})
}

// GetByID handles GET /api/polls/{pollID}.
func (h *PollHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	pollID := chi.URLParam(r, "pollID")

	poll, err := h.polls.GetPollByID(r.Context(), pollID)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	if poll == nil {
		respondError(w, r, errors.NewNotFoundError("Poll not found"), h.logger)
		return
	}

	respondJSON(w, http.StatusOK, poll)
}

// Feed handles GET /api/polls. Query parameters:
//
//	genders     comma-separated subset of male,female,nonbinary
//	expires     soon | hour | 4hours | all
//	limit       max results
//	exclude     comma-separated locally-reported poll ids
func (h *PollHandler) Feed(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, r, errors.NewAuthenticationError("Authentication required"), h.logger)
		return
	}

	filter, appErr := parseFeedFilter(r)
	if appErr != nil {
		respondError(w, r, appErr, h.logger)
		return
	}

	polls, err := h.polls.GetFilteredPolls(r.Context(), identity, filter)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"polls": polls})
}

func parseFeedFilter(r *http.Request) (*domain.PollFilter, *errors.AppError) {
	filter := &domain.PollFilter{TimeFilter: domain.TimeFilterAll}
	q := r.URL.Query()

	if raw := q.Get("genders"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			g := domain.Gender(strings.TrimSpace(part))
			if !domain.ValidGender(g) {
				return nil, errors.NewValidationError("Invalid gender filter", map[string]interface{}{"value": part})
			}
			filter.Genders = append(filter.Genders, g)
		}
	}

	if raw := q.Get("expires"); raw != "" {
		switch domain.TimeFilter(raw) {
		case domain.TimeFilterSoon, domain.TimeFilterHour, domain.TimeFilter4Hours, domain.TimeFilterAll:
			filter.TimeFilter = domain.TimeFilter(raw)
		default:
			return nil, errors.NewValidationError("Invalid expires filter", map[string]interface{}{"value": raw})
		}
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 100 {
			return nil, errors.NewValidationError("Limit must be between 1 and 100", nil)
		}
		filter.Limit = limit
	}

	if raw := q.Get("exclude"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(id); trimmed != "" {
				filter.ExcludeIDs = append(filter.ExcludeIDs, trimmed)
			}
		}
	}

	return filter, nil
}

// RateLimit handles GET /api/polls/rate-limit, the optimistic pre-check the
// client runs before compressing images.
func (h *PollHandler) RateLimit(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, r, errors.NewAuthenticationError("Authentication required"), h.logger)
		return
	}

	status, err := h.polls.CheckRateLimit(r.Context(), identity)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	respondJSON(w, http.StatusOK, status)
}

// MyPolls handles GET /api/polls/mine.
func (h *PollHandler) MyPolls(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, r, errors.NewAuthenticationError("Authentication required"), h.logger)
		return
	}

	polls, err := h.polls.GetUserCreatedPolls(r.Context(), identity, parseLimit(r, 50))
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"polls": polls})
}

// MyVotes handles GET /api/polls/voted.
func (h *PollHandler) MyVotes(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, r, errors.NewAuthenticationError("Authentication required"), h.logger)
		return
	}

	polls, err := h.polls.GetUserVotedPolls(r.Context(), identity, parseLimit(r, 50))
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"polls": polls})
}

// Close handles POST /api/polls/{pollID}/close.
func (h *PollHandler) Close(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, r, errors.NewAuthenticationError("Authentication required"), h.logger)
		return
	}

	pollID := chi.URLParam(r, "pollID")
	if err := h.polls.ClosePoll(r.Context(), identity, pollID); err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": string(domain.PollClosed)})
}

func parseLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > 100 {
		return fallback
	}
	return limit
}
