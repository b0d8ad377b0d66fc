package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"wot-api/internal/domain"
	"wot-api/pkg/errors"
	"wot-api/pkg/logger"
)

const testSecret = "test-jwt-secret"

func testLogger() *logger.Logger {
	return &logger.Logger{Logger: zap.NewNop()}
}

type mockProfileRepo struct {
	mock.Mock
}

func (m *mockProfileRepo) Insert(ctx context.Context, profile *domain.UserProfile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *mockProfileRepo) GetByID(ctx context.Context, id string) (*domain.UserProfile, error) {
	args := m.Called(ctx, id)
	if profile := args.Get(0); profile != nil {
		return profile.(*domain.UserProfile), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProfileRepo) UsernameTaken(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

type mockMigration struct {
	mock.Mock
}

func (m *mockMigration) MigrateAnonymousHistory(ctx context.Context, oldAnonID, newPermanentID string) *domain.MigrationResult {
	args := m.Called(ctx, oldAnonID, newPermanentID)
	return args.Get(0).(*domain.MigrationResult)
}

func signToken(t *testing.T, subject string, isAnonymous bool, expiresAt time.Time) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub":          subject,
		"is_anonymous": isAnonymous,
		"exp":          expiresAt.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	assert.NoError(t, err)
	return token
}

func TestService_ValidateToken(t *testing.T) {
	svc := NewService("http://auth.local", "anon-key", testSecret, new(mockProfileRepo), new(mockMigration), testLogger())

	t.Run("permanent account token", func(t *testing.T) {
		token := signToken(t, "user-1", false, time.Now().Add(time.Hour))

		identity, err := svc.ValidateToken(context.Background(), token)
		assert.NoError(t, err)
		assert.Equal(t, "user-1", identity.ID)
		assert.Equal(t, domain.IdentityPermanent, identity.Kind)
	})

	t.Run("anonymous session token", func(t *testing.T) {
		token := signToken(t, "anon-user", true, time.Now().Add(time.Hour))

		identity, err := svc.ValidateToken(context.Background(), token)
		assert.NoError(t, err)
		assert.Equal(t, "anon-user", identity.ID)
		assert.Equal(t, domain.IdentityAnonymous, identity.Kind)
		assert.True(t, identity.IsAnonymous())
	})

	t.Run("expired token", func(t *testing.T) {
		token := signToken(t, "user-1", false, time.Now().Add(-time.Hour))

		_, err := svc.ValidateToken(context.Background(), token)
		assert.Error(t, err)
	})

	t.Run("wrong secret", func(t *testing.T) {
		claims := jwt.MapClaims{"sub": "user-1", "exp": time.Now().Add(time.Hour).Unix()}
		token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))

		_, err := svc.ValidateToken(context.Background(), token)
		assert.Error(t, err)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := svc.ValidateToken(context.Background(), "not-a-jwt")
		assert.Error(t, err)
	})
}

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"valid", "outfit_fan_99", false},
		{"minimum length", "abc", false},
		{"empty", "", true},
		{"too short", "ab", true},
		{"too long", "a_very_long_username_over_thirty_chars", true},
		{"spaces", "my name", true},
		{"special characters", "name!", true},
		{"unicode", "ชื่อผู้ใช้", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if tt.wantErr {
				assert.NotNil(t, err)
				assert.Equal(t, errors.ErrorTypeValidation, err.Type)
			} else {
				assert.Nil(t, err)
			}
		})
	}
}

func TestService_SignUp(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/signup", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"access_token": "new-token",
			"refresh_token": "refresh",
			"expires_in": 3600,
			"user": {"id": "user-new", "is_anonymous": false}
		}`))
	}))
	defer backend.Close()

	profileRepo := new(mockProfileRepo)
	migration := new(mockMigration)
	svc := NewService(backend.URL, "anon-key", testSecret, profileRepo, migration, testLogger())

	profileRepo.On("UsernameTaken", mock.Anything, "new_user").Return(false, nil)
	profileRepo.On("Insert", mock.Anything, mock.MatchedBy(func(p *domain.UserProfile) bool {
		return p.ID == "user-new" && p.Username == "new_user"
	})).Return(nil)
	migration.On("MigrateAnonymousHistory", mock.Anything, "user-new", "user-new").
		Return(&domain.MigrationResult{})

	session, err := svc.SignUp(context.Background(), &domain.SignupRequest{
		Email:    "new@example.com",
		Password: "password123",
		Username: "new_user",
	}, nil)

	assert.NoError(t, err)
	assert.Equal(t, "new-token", session.AccessToken)
	assert.Equal(t, "user-new", session.UserID)
	profileRepo.AssertExpectations(t)
	migration.AssertExpectations(t)
}

func TestService_SignUp_MigratesAnonymousHistory(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"access_token": "new-token",
			"expires_in": 3600,
			"user": {"id": "user-new", "is_anonymous": false}
		}`))
	}))
	defer backend.Close()

	profileRepo := new(mockProfileRepo)
	migration := new(mockMigration)
	svc := NewService(backend.URL, "anon-key", testSecret, profileRepo, migration, testLogger())

	profileRepo.On("UsernameTaken", mock.Anything, "new_user").Return(false, nil)
	profileRepo.On("Insert", mock.Anything, mock.Anything).Return(nil)

	// History recorded under the anonymous id must land on the new
	// account id, not on itself.
	migration.On("MigrateAnonymousHistory", mock.Anything, "anon-123", "user-new").
		Return(&domain.MigrationResult{MigratedPolls: 2, MigratedVotes: 5}).Once()

	anon := &domain.Identity{ID: "anon-123", Kind: domain.IdentityAnonymous}
	session, err := svc.SignUp(context.Background(), &domain.SignupRequest{
		Email:    "new@example.com",
		Password: "password123",
		Username: "new_user",
	}, anon)

	assert.NoError(t, err)
	assert.Equal(t, "user-new", session.UserID)
	migration.AssertExpectations(t)
	migration.AssertNotCalled(t, "MigrateAnonymousHistory", mock.Anything, "user-new", "user-new")
}

func TestService_SignUp_PermanentIdentityDoesNotMigrate(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"access_token": "new-token",
			"expires_in": 3600,
			"user": {"id": "user-new", "is_anonymous": false}
		}`))
	}))
	defer backend.Close()

	profileRepo := new(mockProfileRepo)
	migration := new(mockMigration)
	svc := NewService(backend.URL, "anon-key", testSecret, profileRepo, migration, testLogger())

	profileRepo.On("UsernameTaken", mock.Anything, "new_user").Return(false, nil)
	profileRepo.On("Insert", mock.Anything, mock.Anything).Return(nil)

	// A permanent caller has no anonymous history; equal ids make the
	// migration call a no-op contract point.
	migration.On("MigrateAnonymousHistory", mock.Anything, "user-new", "user-new").
		Return(&domain.MigrationResult{}).Once()

	permanent := &domain.Identity{ID: "user-old", Kind: domain.IdentityPermanent}
	_, err := svc.SignUp(context.Background(), &domain.SignupRequest{
		Email:    "new@example.com",
		Password: "password123",
		Username: "new_user",
	}, permanent)

	assert.NoError(t, err)
	migration.AssertExpectations(t)
}

func TestService_SignUp_UsernameTaken(t *testing.T) {
	profileRepo := new(mockProfileRepo)
	svc := NewService("http://auth.local", "anon-key", testSecret, profileRepo, new(mockMigration), testLogger())

	profileRepo.On("UsernameTaken", mock.Anything, "taken_name").Return(true, nil)

	_, err := svc.SignUp(context.Background(), &domain.SignupRequest{
		Email:    "new@example.com",
		Password: "password123",
		Username: "taken_name",
	}, nil)

	var appErr *errors.AppError
	if assert.ErrorAs(t, err, &appErr) {
		assert.Equal(t, errors.ErrorTypeConflict, appErr.Type)
	}
}

func TestService_SignIn_BadCredentials(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer backend.Close()

	svc := NewService(backend.URL, "anon-key", testSecret, new(mockProfileRepo), new(mockMigration), testLogger())

	_, err := svc.SignIn(context.Background(), &domain.SigninRequest{
		Email:    "who@example.com",
		Password: "wrong",
	})

	// Upstream rejection reads as bad credentials, not a gateway failure.
	var appErr *errors.AppError
	if assert.ErrorAs(t, err, &appErr) {
		assert.Equal(t, errors.ErrorTypeAuthentication, appErr.Type)
	}
}

func TestService_CreateAnonymousSession(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/signup", r.URL.Path)
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"access_token": "anon-token",
			"expires_in": 3600,
			"user": {"id": "anon-id", "is_anonymous": true}
		}`))
	}))
	defer backend.Close()

	svc := NewService(backend.URL, "anon-key", testSecret, new(mockProfileRepo), new(mockMigration), testLogger())

	session, err := svc.CreateAnonymousSession(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "anon-id", session.UserID)
	assert.True(t, session.IsAnonymous)
}
