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

// ReportHandler serves poll reporting.
type ReportHandler struct {
	reports service.ReportService
	logger  *logger.Logger
}

// NewReportHandler creates the report handler.
func NewReportHandler(reports service.ReportService, logger *logger.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, logger: logger}
}

// Report handles POST /api/polls/{pollID}/reports. Success and
// already-reported both succeed from the client's point of view; either
// way it adds the poll to its local exclusion set and hides it.
func (h *ReportHandler) Report(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, r, errors.NewAuthenticationError("Authentication required"), h.logger)
		return
	}

	var req domain.ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, errors.NewValidationError("Invalid request body", nil), h.logger)
		return
	}
	if !domain.ValidReportReason(req.Reason) {
		respondError(w, r, errors.NewValidationError("Invalid report reason", map[string]interface{}{
			"allowed": []domain.ReportReason{
				domain.ReasonInappropriate,
				domain.ReasonSpam,
				domain.ReasonOffensive,
				domain.ReasonOther,
			},
		}), h.logger)
		return
	}

	pollID := chi.URLParam(r, "pollID")
	result, err := h.reports.ReportPoll(r.Context(), pollID, identity, req.Reason)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	status := http.StatusCreated
	if result.AlreadyReported {
		status = http.StatusOK
	}
	respondJSON(w, status, result)
}
