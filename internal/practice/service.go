// Package practice serves the personal dashboard data: practice sessions,
// mood records, achievements, and profiles. Everything lives in the hosted
// backend's tables, scoped to the caller's token so row level security
// applies per user.
package practice

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/vayu-prana/vayu/internal/supabase"
)

// PracticeSession is one completed guided breathing session.
type PracticeSession struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Technique       string    `json:"technique"`
	DurationSeconds int       `json:"duration_seconds"`
	BreathCount     int       `json:"breath_count"`
	HeartRateAvg    *int      `json:"heart_rate_avg,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Mood is one recorded mood entry.
type Mood struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Mood      string    `json:"mood"` // calm, focused, energized, anxious, tired
	CreatedAt time.Time `json:"created_at"`
}

// Achievement is an unlocked milestone.
type Achievement struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Key        string    `json:"key"`
	UnlockedAt time.Time `json:"unlocked_at"`
}

// Profile is a user's public profile row.
type Profile struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProfileInput is the payload for profile updates.
type ProfileInput struct {
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

// Service serves per-user practice data
type Service struct {
	client *supabase.Client
	logger zerolog.Logger
}

// NewService creates a new practice service
func NewService(client *supabase.Client, logger zerolog.Logger) *Service {
	return &Service{client: client, logger: logger}
}

// ListSessions returns the user's practice sessions over a trailing window.
func (s *Service) ListSessions(ctx context.Context, accessToken, userID string, days int) ([]PracticeSession, error) {
	since := time.Now().AddDate(0, 0, -days).UTC().Format(time.RFC3339)

	var sessions []PracticeSession
	err := s.client.From("practice_sessions").
		Eq("user_id", userID).
		Gte("created_at", since).
		Order("created_at", false).
		WithToken(accessToken).
		Execute(ctx, &sessions)
	if err != nil {
		return nil, fmt.Errorf("failed to list practice sessions: %w", err)
	}
	return sessions, nil
}

// RecordSession stores a completed session.
func (s *Service) RecordSession(ctx context.Context, accessToken, userID, technique string, durationSeconds, breathCount int) (*PracticeSession, error) {
	row := map[string]any{
		"user_id":          userID,
		"technique":        technique,
		"duration_seconds": durationSeconds,
		"breath_count":     breathCount,
	}

	var created []PracticeSession
	err := s.client.From("practice_sessions").
		WithToken(accessToken).
		Insert(ctx, []map[string]any{row}, &created)
	if err != nil {
		return nil, fmt.Errorf("failed to record practice session: %w", err)
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("no session returned after insert")
	}
	return &created[0], nil
}

// RecordMood stores a mood entry for the user.
func (s *Service) RecordMood(ctx context.Context, accessToken, userID, mood string) (*Mood, error) {
	row := map[string]any{
		"user_id": userID,
		"mood":    mood,
	}

	var created []Mood
	err := s.client.From("moods").
		WithToken(accessToken).
		Insert(ctx, []map[string]any{row}, &created)
	if err != nil {
		return nil, fmt.Errorf("failed to record mood: %w", err)
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("no mood returned after insert")
	}
	return &created[0], nil
}

// ListMoods returns the user's moods over a trailing window, newest first.
func (s *Service) ListMoods(ctx context.Context, accessToken, userID string, days int) ([]Mood, error) {
	since := time.Now().AddDate(0, 0, -days).UTC().Format(time.RFC3339)

	var moods []Mood
	err := s.client.From("moods").
		Eq("user_id", userID).
		Gte("created_at", since).
		Order("created_at", false).
		WithToken(accessToken).
		Execute(ctx, &moods)
	if err != nil {
		return nil, fmt.Errorf("failed to list moods: %w", err)
	}
	return moods, nil
}

// ListAchievements returns the user's unlocked achievements.
func (s *Service) ListAchievements(ctx context.Context, accessToken, userID string) ([]Achievement, error) {
	var achievements []Achievement
	err := s.client.From("achievements").
		Eq("user_id", userID).
		Order("unlocked_at", false).
		WithToken(accessToken).
		Execute(ctx, &achievements)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	return achievements, nil
}

// GetProfile loads the user's profile, creating it through the backend's
// create_profile_for_user procedure when missing.
func (s *Service) GetProfile(ctx context.Context, accessToken, userID string) (*Profile, error) {
	var profiles []Profile
	err := s.client.From("user_profiles").
		Eq("user_id", userID).
		WithToken(accessToken).
		Execute(ctx, &profiles)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if len(profiles) > 0 {
		return &profiles[0], nil
	}

	return s.CreateProfile(ctx, accessToken, userID)
}

// CreateProfile creates a profile through the backend RPC, which runs with
// the proper security context.
func (s *Service) CreateProfile(ctx context.Context, accessToken, userID string) (*Profile, error) {
	args := map[string]string{"input_user_id": userID}

	var profile Profile
	if err := s.client.RPC(ctx, "create_profile_for_user", args, accessToken, &profile); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	return &profile, nil
}

// UpdateProfile patches the user's profile.
func (s *Service) UpdateProfile(ctx context.Context, accessToken, userID string, input ProfileInput) (*Profile, error) {
	values := map[string]any{
		"display_name": input.DisplayName,
		"avatar_url":   input.AvatarURL,
		"updated_at":   time.Now().UTC().Format(time.RFC3339),
	}

	var updated []Profile
	err := s.client.From("user_profiles").
		Eq("user_id", userID).
		WithToken(accessToken).
		Update(ctx, values, &updated)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	if len(updated) == 0 {
		return nil, fmt.Errorf("no profile returned after update")
	}
	return &updated[0], nil
}

// DeleteUserData removes the user's rows ahead of account deletion.
func (s *Service) DeleteUserData(ctx context.Context, accessToken, userID string) error {
	for _, table := range []string{"practice_sessions", "moods", "achievements", "user_profiles"} {
		err := s.client.From(table).
			Eq("user_id", userID).
			WithToken(accessToken).
			Delete(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Str("table", table).Msg("Failed to delete user rows")
		}
	}
	return nil
}
