package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"wot-api/internal/domain"
	"wot-api/internal/middleware"
	"wot-api/pkg/logger"
)

type mockVoteService struct {
	mock.Mock
}

func (m *mockVoteService) CastVote(ctx context.Context, pollID string, identity domain.Identity, req *domain.VoteRequest) (*domain.VoteResult, error) {
	args := m.Called(ctx, pollID, identity, req)
	if result := args.Get(0); result != nil {
		return result.(*domain.VoteResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockVoteService) HasVoted(ctx context.Context, pollID string, identity domain.Identity) (*domain.VoteStatus, error) {
	args := m.Called(ctx, pollID, identity)
	if status := args.Get(0); status != nil {
		return status.(*domain.VoteStatus), args.Error(1)
	}
	return nil, args.Error(1)
}

func castRequest(body string, identity *domain.Identity) *http.Request {
	r := httptest.NewRequest("POST", "/api/polls/poll-1/votes", strings.NewReader(body))
	if identity != nil {
		ctx := context.WithValue(r.Context(), middleware.IdentityContextKey, *identity)
		r = r.WithContext(ctx)
	}
	return r
}

func TestVoteHandler_Cast(t *testing.T) {
	log := &logger.Logger{Logger: zap.NewNop()}
	identity := &domain.Identity{ID: "user-1", Kind: domain.IdentityAnonymous}

	t.Run("first vote returns 201", func(t *testing.T) {
		votes := new(mockVoteService)
		h := NewVoteHandler(votes, log)

		votes.On("CastVote", mock.Anything, mock.Anything, *identity, mock.Anything).
			Return(&domain.VoteResult{Success: true}, nil)

		w := httptest.NewRecorder()
		h.Cast(w, castRequest(`{"choice":"A","voter_gender":"female"}`, identity))

		assert.Equal(t, http.StatusCreated, w.Code)

		var result domain.VoteResult
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.True(t, result.Success)
	})

	t.Run("duplicate vote returns 200 with already_voted", func(t *testing.T) {
		votes := new(mockVoteService)
		h := NewVoteHandler(votes, log)

		votes.On("CastVote", mock.Anything, mock.Anything, *identity, mock.Anything).
			Return(&domain.VoteResult{Success: false, AlreadyVoted: true}, nil)

		w := httptest.NewRecorder()
		h.Cast(w, castRequest(`{"choice":"A","voter_gender":"female"}`, identity))

		assert.Equal(t, http.StatusOK, w.Code)

		var result domain.VoteResult
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.False(t, result.Success)
		assert.True(t, result.AlreadyVoted)
	})

	t.Run("no identity returns 401", func(t *testing.T) {
		h := NewVoteHandler(new(mockVoteService), log)

		w := httptest.NewRecorder()
		h.Cast(w, castRequest(`{"choice":"A","voter_gender":"female"}`, nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("invalid choice returns 400", func(t *testing.T) {
		h := NewVoteHandler(new(mockVoteService), log)

		w := httptest.NewRecorder()
		h.Cast(w, castRequest(`{"choice":"C","voter_gender":"female"}`, identity))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("malformed body returns 400", func(t *testing.T) {
		h := NewVoteHandler(new(mockVoteService), log)

		w := httptest.NewRecorder()
		h.Cast(w, castRequest(`{"choice":`, identity))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
