// Package messages stores contact form submissions in the hosted backend's
// messages table.
package messages

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/vayu-prana/vayu/internal/supabase"
)

// Message is one contact form submission.
type Message struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Service manages contact messages
type Service struct {
	client *supabase.Client
	logger zerolog.Logger
}

// NewService creates a new messages service
func NewService(client *supabase.Client, logger zerolog.Logger) *Service {
	return &Service{client: client, logger: logger}
}

// Submit stores a contact form submission.
func (s *Service) Submit(ctx context.Context, name, email, body string) (*Message, error) {
	row := map[string]any{
		"name":    name,
		"email":   email,
		"message": body,
	}

	var created []Message
	err := s.client.From("messages").Insert(ctx, []map[string]any{row}, &created)
	if err != nil {
		return nil, fmt.Errorf("failed to store message from %s: %w", email, err)
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("no message returned after insert")
	}
	return &created[0], nil
}

// ListRecent returns the newest messages. Requires the service role since the
// messages table is write-only for anonymous tokens.
func (s *Service) ListRecent(ctx context.Context, limit int) ([]Message, error) {
	var msgs []Message
	err := s.client.From("messages").
		Order("created_at", false).
		Limit(limit).
		AsServiceRole().
		Execute(ctx, &msgs)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return msgs, nil
}
