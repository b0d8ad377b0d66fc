package service

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"wot-api/internal/domain"
	"wot-api/pkg/redis"
)

type mockAuthService struct {
	mock.Mock
}

func (m *mockAuthService) ValidateToken(ctx context.Context, token string) (*domain.Identity, error) {
	args := m.Called(ctx, token)
	if identity := args.Get(0); identity != nil {
		return identity.(*domain.Identity), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuthService) SignUp(ctx context.Context, req *domain.SignupRequest, anon *domain.Identity) (*domain.Session, error) {
	args := m.Called(ctx, req, anon)
	if session := args.Get(0); session != nil {
		return session.(*domain.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuthService) SignIn(ctx context.Context, req *domain.SigninRequest) (*domain.Session, error) {
	args := m.Called(ctx, req)
	if session := args.Get(0); session != nil {
		return session.(*domain.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuthService) SignOut(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *mockAuthService) CreateAnonymousSession(ctx context.Context) (*domain.Session, error) {
	args := m.Called(ctx)
	if session := args.Get(0); session != nil {
		return session.(*domain.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuthService) GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	args := m.Called(ctx, userID)
	if profile := args.Get(0); profile != nil {
		return profile.(*domain.UserProfile), args.Error(1)
	}
	return nil, args.Error(1)
}

func setupIdentityRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	assert.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := redis.NewClient("redis://"+mr.Addr(), "test", zap.NewNop())
	assert.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return mr, client
}

func TestIdentityService_Resolve(t *testing.T) {
	auth := new(mockAuthService)
	svc := NewIdentityService(auth, nil, testLogger())

	auth.On("ValidateToken", mock.Anything, "good-token").
		Return(&domain.Identity{ID: "user-1", Kind: domain.IdentityPermanent}, nil)

	t.Run("bearer token wins over cookie", func(t *testing.T) {
		identity, err := svc.Resolve(context.Background(), "good-token", "anon-1")
		assert.NoError(t, err)
		assert.Equal(t, "user-1", identity.ID)
		assert.Equal(t, domain.IdentityPermanent, identity.Kind)
	})

	t.Run("cookie fallback", func(t *testing.T) {
		identity, err := svc.Resolve(context.Background(), "", "anon-1")
		assert.NoError(t, err)
		assert.Equal(t, "anon-1", identity.ID)
		assert.Equal(t, domain.IdentityAnonymous, identity.Kind)
	})

	t.Run("neither is the renderable no-identity state", func(t *testing.T) {
		identity, err := svc.Resolve(context.Background(), "", "")
		assert.Nil(t, identity)
		assert.Equal(t, ErrNoIdentity, err)
	})
}

func TestIdentityService_IssueAnonymousID(t *testing.T) {
	svc := NewIdentityService(new(mockAuthService), nil, testLogger())

	id, isNew := svc.IssueAnonymousID("existing-id")
	assert.Equal(t, "existing-id", id)
	assert.False(t, isNew)

	id, isNew = svc.IssueAnonymousID("")
	assert.NotEmpty(t, id)
	assert.True(t, isNew)

	// A second first-time browser gets a different id.
	id2, _ := svc.IssueAnonymousID("")
	assert.NotEqual(t, id, id2)
}

// Concurrent first-load requests from one device collapse into a single
// backend session creation; the loser gets the pending signal.
func TestIdentityService_CreateAnonymousSession_Lock(t *testing.T) {
	_, client := setupIdentityRedis(t)

	auth := new(mockAuthService)
	svc := NewIdentityService(auth, client, testLogger())

	auth.On("CreateAnonymousSession", mock.Anything).
		Return(&domain.Session{UserID: "anon-user", IsAnonymous: true}, nil).Once()

	session, err := svc.CreateAnonymousSession(context.Background(), "device-1")
	assert.NoError(t, err)
	assert.Equal(t, "anon-user", session.UserID)

	// Second request while the lock TTL holds.
	_, err = svc.CreateAnonymousSession(context.Background(), "device-1")
	assert.Equal(t, ErrIdentityPending, err)

	auth.AssertNumberOfCalls(t, "CreateAnonymousSession", 1)
}

// A failed backend creation releases the lock so the next attempt is not
// stuck behind it for the full TTL.
func TestIdentityService_CreateAnonymousSession_ReleasesLockOnFailure(t *testing.T) {
	_, client := setupIdentityRedis(t)

	auth := new(mockAuthService)
	svc := NewIdentityService(auth, client, testLogger())

	auth.On("CreateAnonymousSession", mock.Anything).
		Return(nil, assert.AnError).Once()
	auth.On("CreateAnonymousSession", mock.Anything).
		Return(&domain.Session{UserID: "anon-user", IsAnonymous: true}, nil).Once()

	_, err := svc.CreateAnonymousSession(context.Background(), "device-1")
	assert.Error(t, err)

	session, err := svc.CreateAnonymousSession(context.Background(), "device-1")
	assert.NoError(t, err)
	assert.Equal(t, "anon-user", session.UserID)
}

// Redis being down must not block identity creation.
func TestIdentityService_CreateAnonymousSession_FailsOpenWithoutRedis(t *testing.T) {
	mr, client := setupIdentityRedis(t)
	mr.Close()

	auth := new(mockAuthService)
	svc := NewIdentityService(auth, client, testLogger())

	auth.On("CreateAnonymousSession", mock.Anything).
		Return(&domain.Session{UserID: "anon-user", IsAnonymous: true}, nil)

	session, err := svc.CreateAnonymousSession(context.Background(), "device-1")
	assert.NoError(t, err)
	assert.Equal(t, "anon-user", session.UserID)
}
