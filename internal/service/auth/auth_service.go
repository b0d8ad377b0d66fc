package auth

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"wot-api/internal/domain"
	"wot-api/internal/repository"
	"wot-api/internal/service"
	"wot-api/pkg/database"
	"wot-api/pkg/errors"
	"wot-api/pkg/logger"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// Service implements service.AuthService against a GoTrue-compatible auth
// backend. Tokens are verified locally with the backend's HS256 secret;
// account and session management goes over HTTP.
type Service struct {
	authURL     string
	anonKey     string
	jwtSecret   []byte
	httpClient  *http.Client
	profileRepo repository.ProfileRepository
	migration   service.MigrationService
	logger      *logger.Logger
}

// NewService creates the auth service.
func NewService(authURL, anonKey, jwtSecret string, profileRepo repository.ProfileRepository, migration service.MigrationService, logger *logger.Logger) service.AuthService {
	return &Service{
		authURL:    strings.TrimRight(authURL, "/"),
		anonKey:    anonKey,
		jwtSecret:  []byte(jwtSecret),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		profileRepo: profileRepo,
		migration:   migration,
		logger:      logger,
	}
}

type sessionClaims struct {
	IsAnonymous bool `json:"is_anonymous"`
	jwt.RegisteredClaims
}

// ValidateToken verifies the HS256 signature and expiry, then maps the
// is_anonymous claim onto the identity kind. Anonymous sessions carry a
// real account id, so both kinds resolve to the same id shape.
func (s *Service) ValidateToken(ctx context.Context, token string) (*domain.Identity, error) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, errors.NewAuthenticationError("Invalid or expired token")
	}

	if claims.Subject == "" {
		return nil, errors.NewAuthenticationError("Token carries no subject")
	}

	kind := domain.IdentityPermanent
	if claims.IsAnonymous {
		kind = domain.IdentityAnonymous
	}

	return &domain.Identity{ID: claims.Subject, Kind: kind}, nil
}

// SignUp creates a permanent account. The username is pre-checked for
// availability and then inserted under a unique index; the pre-check gives
// a friendly early answer, the index closes the race. The backend mints a
// fresh account id, so any history recorded under the caller's anonymous
// identity is re-pointed onto the new id before the session is returned.
func (s *Service) SignUp(ctx context.Context, req *domain.SignupRequest, anon *domain.Identity) (*domain.Session, error) {
	if err := ValidateUsername(req.Username); err != nil {
		return nil, err
	}

	taken, err := s.profileRepo.UsernameTaken(ctx, req.Username)
	if err != nil {
		return nil, errors.NewInternalError("Failed to check username availability", err)
	}
	if taken {
		return nil, errors.NewConflictError("Username is already taken")
	}

	session, err := s.tokenRequest(ctx, "/signup", map[string]string{
		"email":    req.Email,
		"password": req.Password,
	})
	if err != nil {
		return nil, err
	}

	profile := &domain.UserProfile{ID: session.UserID, Username: req.Username}
	if err := s.profileRepo.Insert(ctx, profile); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, errors.NewConflictError("Username is already taken")
		}
		return nil, errors.NewInternalError("Failed to create user profile", err)
	}

	// Re-point the caller's anonymous history onto the new account id.
	// Without an anonymous identity the ids are equal and migration
	// degrades to a no-op; either way it must never block the signup.
	oldID := session.UserID
	if anon != nil && anon.IsAnonymous() {
		oldID = anon.ID
	}
	result := s.migration.MigrateAnonymousHistory(ctx, oldID, session.UserID)
	if result.MigratedPolls > 0 || result.MigratedVotes > 0 {
		s.logger.WithFields(map[string]interface{}{
			"user_id":        session.UserID,
			"anon_id":        oldID,
			"migrated_polls": result.MigratedPolls,
			"migrated_votes": result.MigratedVotes,
		}).Info("Migrated anonymous history at signup")
	}

	return session, nil
}

// SignIn authenticates an existing account.
func (s *Service) SignIn(ctx context.Context, req *domain.SigninRequest) (*domain.Session, error) {
	session, err := s.tokenRequest(ctx, "/token?grant_type=password", map[string]string{
		"email":    req.Email,
		"password": req.Password,
	})
	if err != nil {
		var appErr *errors.AppError
		if stderrors.As(err, &appErr) && appErr.Type == errors.ErrorTypeExternal {
			return nil, errors.NewAuthenticationError("Invalid email or password")
		}
		return nil, err
	}
	return session, nil
}

// SignOut revokes the session behind the token.
func (s *Service) SignOut(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.authURL+"/logout", nil)
	if err != nil {
		return errors.NewInternalError("Failed to create logout request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("apikey", s.anonKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return errors.NewExternalError("Failed to reach auth backend", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return errors.NewExternalError(fmt.Sprintf("Auth backend returned status %d", resp.StatusCode), nil)
	}
	return nil
}

// CreateAnonymousSession mints an anonymous session. The backend issues a
// real account id with the is_anonymous claim set.
func (s *Service) CreateAnonymousSession(ctx context.Context) (*domain.Session, error) {
	return s.tokenRequest(ctx, "/signup", map[string]string{})
}

// GetProfile returns the profile for a permanent account.
func (s *Service) GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	return s.profileRepo.GetByID(ctx, userID)
}

// authResponse is the token payload shape GoTrue returns.
type authResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         struct {
		ID          string `json:"id"`
		IsAnonymous bool   `json:"is_anonymous"`
	} `json:"user"`
}

func (s *Service) tokenRequest(ctx context.Context, path string, body map[string]string) (*domain.Session, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, errors.NewInternalError("Failed to marshal auth request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.authURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, errors.NewInternalError("Failed to create auth request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", s.anonKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewExternalError("Failed to reach auth backend", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewExternalError("Failed to read auth response", err)
	}

	if resp.StatusCode >= 300 {
		s.logger.WithFields(map[string]interface{}{
			"status": resp.StatusCode,
			"path":   path,
		}).Warn("Auth backend rejected request")
		return nil, errors.NewExternalError(fmt.Sprintf("Auth backend returned status %d", resp.StatusCode), nil)
	}

	var parsed authResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, errors.NewExternalError("Failed to parse auth response", err)
	}

	return &domain.Session{
		AccessToken:  parsed.AccessToken,
		RefreshToken: parsed.RefreshToken,
		ExpiresIn:    parsed.ExpiresIn,
		UserID:       parsed.User.ID,
		IsAnonymous:  parsed.User.IsAnonymous,
	}, nil
}

// ValidateUsername checks the signup username format: 3-30 characters,
// letters, digits and underscores only.
func ValidateUsername(username string) *errors.AppError {
	if username == "" {
		return errors.NewValidationError("Username is required", nil)
	}
	if len(username) < 3 {
		return errors.NewValidationError("Username must be at least 3 characters", nil)
	}
	if len(username) > 30 {
		return errors.NewValidationError("Username must be 30 characters or less", nil)
	}
	if !usernamePattern.MatchString(username) {
		return errors.NewValidationError("Username can only contain letters, numbers, and underscores", nil)
	}
	return nil
}
