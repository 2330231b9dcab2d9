// Package store persists survey submissions and the lists returned for them.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/sphinxnet/recommender/internal/contract"
	"github.com/sphinxnet/recommender/policy"
	"github.com/sphinxnet/recommender/survey"
)

// Record is one stored submission.
type Record struct {
	ID              int64                     `json:"id"`
	RequestID       string                    `json:"request_id"`
	Survey          survey.Response           `json:"survey"`
	Recommendations []contract.Recommendation `json:"recommendations"`
	ModelUsed       bool                      `json:"model_used"`
	CreatedAt       time.Time                 `json:"created_at"`
}

// Sink accepts records.
type Sink interface {
	Save(ctx context.Context, rec Record) error
}

const schema = `
CREATE TABLE IF NOT EXISTS survey_responses (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id TEXT NOT NULL,
	survey_data TEXT NOT NULL,
	recommendations TEXT NOT NULL,
	model_used INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_survey_responses_created_at ON survey_responses(created_at);
`

// SQLite stores records in a single SQLite file. Writes pass through a
// circuit breaker so a failing disk degrades to dropped records.
type SQLite struct {
	db      *sql.DB
	breaker *policy.CircuitBreaker
	now     func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path. A nil breaker
// gets a default one.
func OpenSQLite(path string, breaker *policy.CircuitBreaker) (*SQLite, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	if breaker == nil {
		breaker = policy.NewCircuitBreaker("store", policy.CircuitBreakerConfig{}, nil)
	}
	return &SQLite{db: db, breaker: breaker, now: time.Now}, nil
}

// Save inserts rec. It fails fast with policy.ErrCircuitOpen while the
// breaker is open.
func (s *SQLite) Save(ctx context.Context, rec Record) error {
	surveyJSON, err := json.Marshal(rec.Survey)
	if err != nil {
		return fmt.Errorf("encode survey: %w", err)
	}
	recsJSON, err := json.Marshal(rec.Recommendations)
	if err != nil {
		return fmt.Errorf("encode recommendations: %w", err)
	}
	created := rec.CreatedAt
	if created.IsZero() {
		created = s.now()
	}

	return s.breaker.Do(func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO survey_responses (request_id, survey_data, recommendations, model_used, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			rec.RequestID, string(surveyJSON), string(recsJSON), rec.ModelUsed, created.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("insert survey response: %w", err)
		}
		return nil
	})
}

// Recent returns up to limit records, newest first.
func (s *SQLite) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, request_id, survey_data, recommendations, model_used, created_at
		FROM survey_responses
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query survey responses: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec                      Record
			surveyData, recsData, ts string
		)
		if err := rows.Scan(&rec.ID, &rec.RequestID, &surveyData, &recsData, &rec.ModelUsed, &ts); err != nil {
			return nil, fmt.Errorf("scan survey response: %w", err)
		}
		if err := json.Unmarshal([]byte(surveyData), &rec.Survey); err != nil {
			return nil, fmt.Errorf("decode survey %d: %w", rec.ID, err)
		}
		if err := json.Unmarshal([]byte(recsData), &rec.Recommendations); err != nil {
			return nil, fmt.Errorf("decode recommendations %d: %w", rec.ID, err)
		}
		if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("parse created_at %d: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Count returns the number of stored records.
func (s *SQLite) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM survey_responses`).Scan(&n)
	return n, err
}

// Ping checks the database connection.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
