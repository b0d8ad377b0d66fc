package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"wot-api/internal/domain"
	"wot-api/pkg/database"
)

type voteRepository struct {
	db *database.PostgresDB
}

// NewVoteRepository creates a Postgres-backed vote ledger.
func NewVoteRepository(db *database.PostgresDB) VoteRepository {
	return &voteRepository{db: db}
}

// Insert writes a vote. The (poll_id, user_id) unique constraint violation
// is passed through for the service to interpret as "already voted"; the
// vote_counts row is maintained by a trigger on this insert.
func (r *voteRepository) Insert(ctx context.Context, vote *domain.Vote) error {
	query := `
		INSERT INTO votes (poll_id, user_id, voted_for, voter_gender)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	return r.db.Pool.QueryRow(ctx, query,
		vote.PollID,
		vote.UserID,
		vote.VotedFor,
		vote.VoterGender,
	).Scan(&vote.ID, &vote.CreatedAt)
}

func (r *voteRepository) GetByPollAndUser(ctx context.Context, pollID, userID string) (*domain.Vote, error) {
	var vote domain.Vote
	query := `
		SELECT id, poll_id, user_id, voted_for, voter_gender, created_at
		FROM votes
		WHERE poll_id = $1 AND user_id = $2
	`

	err := r.db.Pool.QueryRow(ctx, query, pollID, userID).Scan(
		&vote.ID,
		&vote.PollID,
		&vote.UserID,
		&vote.VotedFor,
		&vote.VoterGender,
		&vote.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vote: %w", err)
	}

	return &vote, nil
}

func (r *voteRepository) ListPollIDsVotedBy(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT poll_id FROM votes WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list voted poll ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan poll id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *voteRepository) ListVotedPolls(ctx context.Context, userID string, limit int) ([]*domain.Poll, error) {
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`
		SELECT %s, v.voted_for, v.created_at
		FROM votes v
		JOIN polls p ON p.id = v.poll_id
		LEFT JOIN vote_counts vc ON vc.poll_id = p.id
		WHERE v.user_id = $1
		ORDER BY v.created_at DESC
		LIMIT $2
	`, pollColumns)

	rows, err := r.db.Pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list voted polls: %w", err)
	}
	defer rows.Close()

	var polls []*domain.Poll
	for rows.Next() {
		var poll domain.Poll
		err := rows.Scan(
			&poll.ID,
			&poll.PosterGender,
			&poll.BodyType,
			&poll.Context,
			&poll.ImageAURL,
			&poll.ImageBURL,
			&poll.UserID,
			&poll.Status,
			&poll.CreatedAt,
			&poll.ExpiresAt,
			&poll.VotesA,
			&poll.VotesB,
			&poll.TotalVotes,
			&poll.UserVote,
			&poll.VotedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan voted poll: %w", err)
		}
		polls = append(polls, &poll)
	}
	return polls, rows.Err()
}

func (r *voteRepository) GetCounts(ctx context.Context, pollID string) (*domain.VoteCounts, error) {
	counts := domain.VoteCounts{PollID: pollID}
	query := `
		SELECT votes_a, votes_b, total_votes
		FROM vote_counts
		WHERE poll_id = $1
	`

	err := r.db.Pool.QueryRow(ctx, query, pollID).Scan(
		&counts.VotesA,
		&counts.VotesB,
		&counts.TotalVotes,
	)
	if err == pgx.ErrNoRows {
		// No votes yet; the trigger creates the row on first insert.
		return &counts, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vote counts: %w", err)
	}

	return &counts, nil
}

func (r *voteRepository) ReassignVoter(ctx context.Context, fromID, toID string) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE votes SET user_id = $2 WHERE user_id = $1`, fromID, toID)
	if err != nil {
		return 0, fmt.Errorf("failed to reassign votes: %w", err)
	}
	return tag.RowsAffected(), nil
}
