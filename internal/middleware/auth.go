package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"wot-api/internal/domain"
	"wot-api/internal/service"
	"wot-api/pkg/errors"
	"wot-api/pkg/logger"
)

// ContextKey represents keys used in request context.
type ContextKey string

const (
	// IdentityContextKey is the key for the resolved identity in context.
	IdentityContextKey ContextKey = "identity"
	// RequestIDContextKey is the key for the request ID in context.
	RequestIDContextKey ContextKey = "request_id"
)

// AnonCookieName is the cookie carrying the server-issued anonymous id.
const AnonCookieName = "anon_id"

// Identity resolves the caller's identity from the bearer token or the
// anonymous-id cookie and requires one to be present. Handlers behind it
// can assume IdentityFromContext returns a value.
func Identity(identities service.IdentityService, logger *logger.Logger) func(http.Handler) http.Handler {
	return identityMiddleware(identities, logger, true)
}

// OptionalIdentity resolves the identity when present but lets
// unauthenticated requests through. "No identity yet" is a valid state for
// read endpoints during first-load bootstrap.
func OptionalIdentity(identities service.IdentityService, logger *logger.Logger) func(http.Handler) http.Handler {
	return identityMiddleware(identities, logger, false)
}

func identityMiddleware(identities service.IdentityService, logger *logger.Logger, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			anonCookie := ""
			if c, err := r.Cookie(AnonCookieName); err == nil {
				anonCookie = c.Value
			}

			identity, err := identities.Resolve(r.Context(), token, anonCookie)
			if err != nil {
				if !required && err == service.ErrNoIdentity {
					next.ServeHTTP(w, r)
					return
				}
				appErr, ok := err.(*errors.AppError)
				if !ok {
					appErr = errors.NewAuthenticationError("Failed to resolve identity")
				}
				WriteError(w, r, appErr, logger)
				return
			}

			ctx := context.WithValue(r.Context(), IdentityContextKey, *identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

// IdentityFromContext returns the resolved identity, if any.
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(IdentityContextKey).(domain.Identity)
	return identity, ok
}

// RequestID attaches a unique id to each request and echoes it in the
// response headers.
func RequestID(logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := uuid.NewString()

			ctx := context.WithValue(r.Context(), RequestIDContextKey, requestID)
			w.Header().Set("X-Request-ID", requestID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDFromContext returns the request id, or an empty string.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDContextKey).(string); ok {
		return id
	}
	return ""
}

// WriteError writes an AppError as the standard JSON error envelope.
func WriteError(w http.ResponseWriter, r *http.Request, appErr *errors.AppError, logger *logger.Logger) {
	if appErr.StatusCode >= http.StatusInternalServerError {
		logger.WithError(appErr).Error("Request failed")
	} else {
		logger.WithError(appErr).Debug("Request rejected")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)
	_ = json.NewEncoder(w).Encode(errors.NewErrorResponse(appErr, RequestIDFromContext(r.Context())))
}
