package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	// Get database URL
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	// Get command
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run main.go [drop|up|seed]")
		os.Exit(1)
	}

	command := os.Args[1]

	// Connect to database
	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close(ctx)

	switch command {
	case "drop":
		if err := dropTables(ctx, conn); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		fmt.Println("✅ All tables dropped successfully")

	case "up":
		if err := createTables(ctx, conn); err != nil {
			log.Fatalf("Failed to create tables: %v", err)
		}
		fmt.Println("✅ All tables created successfully")

	case "seed":
		if err := seedData(ctx, conn); err != nil {
			log.Fatalf("Failed to seed data: %v", err)
		}
		fmt.Println("✅ Data seeded successfully")

	default:
		fmt.Printf("Unknown command: %s\n", command)
		fmt.Println("Usage: go run main.go [drop|up|seed]")
		os.Exit(1)
	}
}

func dropTables(ctx context.Context, conn *pgx.Conn) error {
	queries := []string{
		`DROP TABLE IF EXISTS vote_counts CASCADE`,
		`DROP TABLE IF EXISTS votes CASCADE`,
		`DROP TABLE IF EXISTS poll_reports CASCADE`,
		`DROP TABLE IF EXISTS poll_creation_log CASCADE`,
		`DROP TABLE IF EXISTS polls CASCADE`,
		`DROP TABLE IF EXISTS user_profiles CASCADE`,
		`DROP FUNCTION IF EXISTS apply_vote_to_counts CASCADE`,
	}

	for _, query := range queries {
		if _, err := conn.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
		fmt.Printf("  Dropped: %s\n", query)
	}

	return nil
}

func createTables(ctx context.Context, conn *pgx.Conn) error {
	queries := []string{
		// Polls. user_id is a plain string: both anonymous and permanent
		// identities own polls under the same column.
		`CREATE TABLE IF NOT EXISTS polls (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			poster_gender VARCHAR(20) NOT NULL,
			body_type VARCHAR(50),
			context VARCHAR(100),
			image_a_url TEXT NOT NULL,
			image_b_url TEXT NOT NULL,
			user_id VARCHAR(255) NOT NULL,
			status VARCHAR(10) NOT NULL DEFAULT 'active',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			expires_at TIMESTAMPTZ NOT NULL
		)`,

		// Votes. The unique constraint is the duplicate-vote guard; the
		// application inserts blind and interprets violations.
		`CREATE TABLE IF NOT EXISTS votes (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			poll_id UUID NOT NULL REFERENCES polls(id) ON DELETE CASCADE,
			user_id VARCHAR(255) NOT NULL,
			voted_for CHAR(1) NOT NULL CHECK (voted_for IN ('A', 'B')),
			voter_gender VARCHAR(20) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(poll_id, user_id)
		)`,

		// Aggregates maintained only by the trigger below. The application
		// reads this table and never computes counts itself.
		`CREATE TABLE IF NOT EXISTS vote_counts (
			poll_id UUID PRIMARY KEY REFERENCES polls(id) ON DELETE CASCADE,
			votes_a INTEGER NOT NULL DEFAULT 0,
			votes_b INTEGER NOT NULL DEFAULT 0,
			total_votes INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE OR REPLACE FUNCTION apply_vote_to_counts() RETURNS TRIGGER AS $fn$
		BEGIN
			INSERT INTO vote_counts (poll_id, votes_a, votes_b, total_votes)
			VALUES (
				NEW.poll_id,
				CASE WHEN NEW.voted_for = 'A' THEN 1 ELSE 0 END,
				CASE WHEN NEW.voted_for = 'B' THEN 1 ELSE 0 END,
				1
			)
			ON CONFLICT (poll_id) DO UPDATE SET
				votes_a = vote_counts.votes_a + EXCLUDED.votes_a,
				votes_b = vote_counts.votes_b + EXCLUDED.votes_b,
				total_votes = vote_counts.total_votes + 1,
				updated_at = NOW();
			RETURN NEW;
		END;
		$fn$ LANGUAGE plpgsql`,

		`DROP TRIGGER IF EXISTS votes_apply_counts ON votes`,

		`CREATE TRIGGER votes_apply_counts
			AFTER INSERT ON votes
			FOR EACH ROW EXECUTE FUNCTION apply_vote_to_counts()`,

		// Reports. Same one-per-identity constraint shape as votes.
		`CREATE TABLE IF NOT EXISTS poll_reports (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			poll_id UUID NOT NULL REFERENCES polls(id) ON DELETE CASCADE,
			user_id VARCHAR(255) NOT NULL,
			reason VARCHAR(20) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(poll_id, user_id)
		)`,

		// Creation log backing the sliding-window rate limit. Rows are
		// append-only and queried by (user_id, created_at).
		`CREATE TABLE IF NOT EXISTS poll_creation_log (
			id BIGSERIAL PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		// Profiles for permanent accounts. Usernames are stored lowercased.
		`CREATE TABLE IF NOT EXISTS user_profiles (
			id VARCHAR(255) PRIMARY KEY,
			username VARCHAR(30) UNIQUE NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_polls_user_id ON polls(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_polls_status_expires ON polls(status, expires_at)`,
		`CREATE INDEX IF NOT EXISTS idx_polls_created_at ON polls(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_votes_user_id ON votes(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_user_id ON poll_reports(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_creation_log_user_time ON poll_creation_log(user_id, created_at)`,
	}

	for _, query := range queries {
		if _, err := conn.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w\nQuery: %s", err, query)
		}
		fmt.Printf("  Created: %s\n", getStatementName(query))
	}

	return nil
}

func seedData(ctx context.Context, conn *pgx.Conn) error {
	query := `
		INSERT INTO polls (poster_gender, body_type, context, image_a_url, image_b_url, user_id, status, expires_at) VALUES
		('female', 'average', 'date night', 'https://example.com/seed/1/a.webp', 'https://example.com/seed/1/b.webp', 'seed-user-1', 'active', NOW() + INTERVAL '4 hours'),
		('male', 'athletic', 'office', 'https://example.com/seed/2/a.webp', 'https://example.com/seed/2/b.webp', 'seed-user-2', 'active', NOW() + INTERVAL '1 hour'),
		('nonbinary', NULL, 'casual', 'https://example.com/seed/3/a.webp', 'https://example.com/seed/3/b.webp', 'seed-user-1', 'active', NOW() + INTERVAL '15 minutes')
	`

	if _, err := conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to seed polls: %w", err)
	}

	fmt.Println("  Seeded 3 polls")

	return nil
}

func getStatementName(query string) string {
	if len(query) > 50 {
		return query[:50] + "..."
	}
	return query
}
