// Package analytics computes admin-area aggregates with SQL against the
// hosted backend's Postgres over a direct connection, bypassing the REST
// layer for queries that would otherwise fetch whole tables.
package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
)

// Service wraps a direct PostgreSQL connection for analytics queries
type Service struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewService opens a direct connection to the backend's Postgres. The
// connection string comes from the project settings, not from user tokens.
func NewService(connectionString string, logger zerolog.Logger) (*Service, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Service{db: db, logger: logger}, nil
}

// Close closes the database connection
func (s *Service) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping tests the database connection
func (s *Service) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// MoodCount is one slice of the mood distribution.
type MoodCount struct {
	Mood  string `json:"mood"`
	Count int64  `json:"count"`
}

// MoodDistribution returns how often each mood was recorded over a trailing
// window.
func (s *Service) MoodDistribution(ctx context.Context, days int) ([]MoodCount, error) {
	query := `
		SELECT mood, COUNT(*) AS count
		FROM moods
		WHERE created_at >= NOW() - ($1 || ' days')::interval
		GROUP BY mood
		ORDER BY count DESC`

	rows, err := s.db.QueryContext(ctx, query, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query mood distribution: %w", err)
	}
	defer rows.Close()

	var out []MoodCount
	for rows.Next() {
		var mc MoodCount
		if err := rows.Scan(&mc.Mood, &mc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan mood row: %w", err)
		}
		out = append(out, mc)
	}
	return out, rows.Err()
}

// DailyCount is one day's activity count.
type DailyCount struct {
	Day   time.Time `json:"day"`
	Count int64     `json:"count"`
}

// SessionsPerDay returns practice session counts per day over a trailing
// window, for the admin practice chart.
func (s *Service) SessionsPerDay(ctx context.Context, days int) ([]DailyCount, error) {
	query := `
		SELECT date_trunc('day', created_at) AS day, COUNT(*) AS count
		FROM practice_sessions
		WHERE created_at >= NOW() - ($1 || ' days')::interval
		GROUP BY day
		ORDER BY day`

	return s.queryDailyCounts(ctx, query, days)
}

// SignupsPerDay returns profile creation counts per day over a trailing
// window, for the engagement timeline.
func (s *Service) SignupsPerDay(ctx context.Context, days int) ([]DailyCount, error) {
	query := `
		SELECT date_trunc('day', created_at) AS day, COUNT(*) AS count
		FROM user_profiles
		WHERE created_at >= NOW() - ($1 || ' days')::interval
		GROUP BY day
		ORDER BY day`

	return s.queryDailyCounts(ctx, query, days)
}

// NewsletterGrowth returns new active subscriptions per day over a trailing
// window.
func (s *Service) NewsletterGrowth(ctx context.Context, days int) ([]DailyCount, error) {
	query := `
		SELECT date_trunc('day', subscribed_at) AS day, COUNT(*) AS count
		FROM newsletter_subscribers
		WHERE status = 'active'
		  AND subscribed_at >= NOW() - ($1 || ' days')::interval
		GROUP BY day
		ORDER BY day`

	return s.queryDailyCounts(ctx, query, days)
}

// HeartRateTrend is one day's average heart rate across sessions.
type HeartRateTrend struct {
	Day     time.Time `json:"day"`
	Average float64   `json:"average"`
}

// HeartRateTrends returns daily average heart rates from sessions that
// recorded one.
func (s *Service) HeartRateTrends(ctx context.Context, days int) ([]HeartRateTrend, error) {
	query := `
		SELECT date_trunc('day', created_at) AS day, AVG(heart_rate_avg) AS average
		FROM practice_sessions
		WHERE heart_rate_avg IS NOT NULL
		  AND created_at >= NOW() - ($1 || ' days')::interval
		GROUP BY day
		ORDER BY day`

	rows, err := s.db.QueryContext(ctx, query, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query heart rate trends: %w", err)
	}
	defer rows.Close()

	var out []HeartRateTrend
	for rows.Next() {
		var t HeartRateTrend
		if err := rows.Scan(&t.Day, &t.Average); err != nil {
			return nil, fmt.Errorf("failed to scan heart rate row: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Service) queryDailyCounts(ctx context.Context, query string, days int) ([]DailyCount, error) {
	rows, err := s.db.QueryContext(ctx, query, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily counts: %w", err)
	}
	defer rows.Close()

	var out []DailyCount
	for rows.Next() {
		var dc DailyCount
		if err := rows.Scan(&dc.Day, &dc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan daily count row: %w", err)
		}
		out = append(out, dc)
	}
	return out, rows.Err()
}
