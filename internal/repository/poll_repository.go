package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"wot-api/internal/domain"
	"wot-api/pkg/database"
)

type pollRepository struct {
	db *database.PostgresDB
}

// NewPollRepository creates a Postgres-backed poll repository.
func NewPollRepository(db *database.PostgresDB) PollRepository {
	return &pollRepository{db: db}
}

const pollColumns = `
	p.id, p.poster_gender, p.body_type, p.context, p.image_a_url, p.image_b_url,
	p.user_id, p.status, p.created_at, p.expires_at,
	COALESCE(vc.votes_a, 0), COALESCE(vc.votes_b, 0), COALESCE(vc.total_votes, 0)
`

func (r *pollRepository) Create(ctx context.Context, poll *domain.Poll) error {
	query := `
		INSERT INTO polls (poster_gender, body_type, context, image_a_url, image_b_url, user_id, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		poll.PosterGender,
		poll.BodyType,
		poll.Context,
		poll.ImageAURL,
		poll.ImageBURL,
		poll.UserID,
		poll.Status,
		poll.ExpiresAt,
	).Scan(&poll.ID, &poll.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create poll: %w", err)
	}

	return nil
}

func (r *pollRepository) GetByID(ctx context.Context, id string) (*domain.Poll, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM polls p
		LEFT JOIN vote_counts vc ON vc.poll_id = p.id
		WHERE p.id = $1
	`, pollColumns)

	poll, err := scanPoll(r.db.Pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get poll: %w", err)
	}

	return poll, nil
}

func (r *pollRepository) ListOpen(ctx context.Context, q OpenPollQuery) ([]*domain.Poll, error) {
	var (
		conds = []string{"p.status = 'active'", "p.expires_at > $1"}
		args  = []interface{}{q.Now}
	)

	if len(q.Genders) > 0 {
		genders := make([]string, len(q.Genders))
		for i, g := range q.Genders {
			genders[i] = string(g)
		}
		args = append(args, genders)
		conds = append(conds, fmt.Sprintf("p.poster_gender = ANY($%d)", len(args)))
	}

	if q.MaxExpiresAt != nil {
		args = append(args, *q.MaxExpiresAt)
		conds = append(conds, fmt.Sprintf("p.expires_at < $%d", len(args)))
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT %s
		FROM polls p
		LEFT JOIN vote_counts vc ON vc.poll_id = p.id
		WHERE %s
		ORDER BY p.created_at DESC
		LIMIT $%d
	`, pollColumns, strings.Join(conds, " AND "), len(args))

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list open polls: %w", err)
	}
	defer rows.Close()

	return collectPolls(rows)
}

func (r *pollRepository) ListByCreator(ctx context.Context, userID string, limit int) ([]*domain.Poll, error) {
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM polls p
		LEFT JOIN vote_counts vc ON vc.poll_id = p.id
		WHERE p.user_id = $1
		ORDER BY p.created_at DESC
		LIMIT $2
	`, pollColumns)

	rows, err := r.db.Pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list created polls: %w", err)
	}
	defer rows.Close()

	return collectPolls(rows)
}

func (r *pollRepository) Close(ctx context.Context, pollID, userID string) (bool, error) {
	query := `
		UPDATE polls
		SET status = 'closed'
		WHERE id = $1 AND user_id = $2 AND status = 'active'
	`

	tag, err := r.db.Pool.Exec(ctx, query, pollID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to close poll: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

func (r *pollRepository) CloseExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE polls
		SET status = 'closed'
		WHERE status = 'active' AND expires_at <= $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to close expired polls: %w", err)
	}

	return tag.RowsAffected(), nil
}

func (r *pollRepository) ReassignCreator(ctx context.Context, fromID, toID string) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE polls SET user_id = $2 WHERE user_id = $1`, fromID, toID)
	if err != nil {
		return 0, fmt.Errorf("failed to reassign polls: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanPoll(row pgx.Row) (*domain.Poll, error) {
	var poll domain.Poll
	err := row.Scan(
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
	)
	if err != nil {
		return nil, err
	}
	return &poll, nil
}

func collectPolls(rows pgx.Rows) ([]*domain.Poll, error) {
	var polls []*domain.Poll
	for rows.Next() {
		poll, err := scanPoll(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan poll: %w", err)
		}
		polls = append(polls, poll)
	}
	return polls, rows.Err()
}
