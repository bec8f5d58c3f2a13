package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresStore is a PostgreSQL-backed ProgressStore, WeakTopicStore and
// ProblemProgress. Tables are created by database.Migrate.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed progress store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) List(ctx context.Context, userID string) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT user_id, topic_id, subtopic_id, status, quiz_score, last_accessed
		 FROM user_progress
		 WHERE user_id = $1
		 ORDER BY created_at ASC, topic_id ASC, subtopic_id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progress: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, userID, topicID, subtopicID string) (Record, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	row := s.pool.QueryRow(ctx,
		`SELECT user_id, topic_id, subtopic_id, status, quiz_score, last_accessed
		 FROM user_progress
		 WHERE user_id = $1 AND topic_id = $2 AND subtopic_id = $3`,
		userID, topicID, subtopicID,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, rec Record) error {
	if rec.UserID == "" || rec.TopicID == "" {
		return fmt.Errorf("user_id and topic_id are required")
	}
	if rec.LastAccessed.IsZero() {
		rec.LastAccessed = time.Now()
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_progress (user_id, topic_id, subtopic_id, status, quiz_score, last_accessed)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id, topic_id, subtopic_id) DO UPDATE
		 SET status = EXCLUDED.status,
		     quiz_score = COALESCE(EXCLUDED.quiz_score, user_progress.quiz_score),
		     last_accessed = EXCLUDED.last_accessed`,
		rec.UserID,
		rec.TopicID,
		rec.SubtopicID,
		string(rec.Status),
		rec.QuizScore,
		rec.LastAccessed,
	)
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListWeak(ctx context.Context, userID string) ([]WeakTopicEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT user_id, topic_id, quiz_score, last_attempt
		 FROM weak_topics
		 WHERE user_id = $1
		 ORDER BY topic_id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query weak topics: %w", err)
	}
	defer rows.Close()

	var out []WeakTopicEntry
	for rows.Next() {
		var e WeakTopicEntry
		if err := rows.Scan(&e.UserID, &e.TopicID, &e.QuizScore, &e.LastAttempt); err != nil {
			return nil, fmt.Errorf("scan weak topic: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate weak topics: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) UpsertWeak(ctx context.Context, entry WeakTopicEntry) error {
	if entry.UserID == "" || entry.TopicID == "" {
		return fmt.Errorf("user_id and topic_id are required")
	}
	if entry.LastAttempt.IsZero() {
		entry.LastAttempt = time.Now()
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO weak_topics (user_id, topic_id, quiz_score, last_attempt)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, topic_id) DO UPDATE
		 SET quiz_score = EXCLUDED.quiz_score,
		     last_attempt = EXCLUDED.last_attempt`,
		entry.UserID,
		entry.TopicID,
		entry.QuizScore,
		entry.LastAttempt,
	)
	if err != nil {
		return fmt.Errorf("upsert weak topic: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemoveWeak(ctx context.Context, userID, topicID string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if _, err := s.pool.Exec(ctx,
		`DELETE FROM weak_topics WHERE user_id = $1 AND topic_id = $2`,
		userID, topicID,
	); err != nil {
		return fmt.Errorf("remove weak topic: %w", err)
	}
	return nil
}

// Ratio returns solved/total for the user's problems in a topic, or 0 when
// nothing is recorded.
func (s *PostgresStore) Ratio(ctx context.Context, userID, topicID string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var solved, total int
	err := s.pool.QueryRow(ctx,
		`SELECT solved, total FROM problem_progress WHERE user_id = $1 AND topic_id = $2`,
		userID, topicID,
	).Scan(&solved, &total)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query problem progress: %w", err)
	}
	if total <= 0 {
		return 0, nil
	}
	if solved >= total {
		return 1, nil
	}
	return float64(solved) / float64(total), nil
}

// RecordProblems sets the solved and total problem counts for a topic.
func (s *PostgresStore) RecordProblems(ctx context.Context, userID, topicID string, solved, total int) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO problem_progress (user_id, topic_id, solved, total, updated_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (user_id, topic_id) DO UPDATE
		 SET solved = EXCLUDED.solved, total = EXCLUDED.total, updated_at = NOW()`,
		userID, topicID, solved, total,
	)
	if err != nil {
		return fmt.Errorf("record problems: %w", err)
	}
	return nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	var status string
	var score *int
	if err := row.Scan(&rec.UserID, &rec.TopicID, &rec.SubtopicID, &status, &score, &rec.LastAccessed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("scan progress: %w", err)
	}
	rec.Status = Status(status)
	rec.QuizScore = score
	return rec, nil
}
