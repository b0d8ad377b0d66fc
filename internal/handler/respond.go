package handler

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"wot-api/internal/middleware"
	"wot-api/pkg/errors"
	"wot-api/pkg/logger"
)

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// respondError maps any error onto the JSON error envelope. Typed AppErrors
// keep their status and details; everything else becomes an opaque 500.
func respondError(w http.ResponseWriter, r *http.Request, err error, log *logger.Logger) {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		appErr = errors.NewInternalError("Something went wrong", err)
	}
	middleware.WriteError(w, r, appErr, log)
}
