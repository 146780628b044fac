// Package newsletter manages newsletter subscriptions in the hosted backend's
// newsletter_subscribers table.
package newsletter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/vayu-prana/vayu/internal/supabase"
)

// ErrAlreadySubscribed is returned when the email already has a subscription.
var ErrAlreadySubscribed = errors.New("this email is already subscribed to our newsletter")

// Subscriber is one newsletter subscription.
type Subscriber struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	SubscribedAt   time.Time  `json:"subscribed_at"`
	UnsubscribedAt *time.Time `json:"unsubscribed_at,omitempty"`
	Status         string     `json:"status"` // active, unsubscribed
	GDPRConsent    bool       `json:"gdpr_consent"`
	GDPRConsentAt  time.Time  `json:"gdpr_consent_at"`
}

// Service manages newsletter subscriptions
type Service struct {
	client *supabase.Client
	logger zerolog.Logger
}

// NewService creates a new newsletter service
func NewService(client *supabase.Client, logger zerolog.Logger) *Service {
	return &Service{client: client, logger: logger}
}

// Subscribe registers an email address with GDPR consent recorded.
func (s *Service) Subscribe(ctx context.Context, email string) (*Subscriber, error) {
	row := map[string]any{
		"email":           email,
		"gdpr_consent":    true,
		"gdpr_consent_at": time.Now().UTC().Format(time.RFC3339),
	}

	var created []Subscriber
	err := s.client.From("newsletter_subscribers").Insert(ctx, []map[string]any{row}, &created)
	if err != nil {
		var supaErr *supabase.Error
		if errors.As(err, &supaErr) && supaErr.IsUniqueViolation() {
			return nil, ErrAlreadySubscribed
		}
		return nil, fmt.Errorf("failed to subscribe %s: %w", email, err)
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("no subscriber returned after insert")
	}
	return &created[0], nil
}

// Unsubscribe marks a subscription inactive.
func (s *Service) Unsubscribe(ctx context.Context, email string) error {
	values := map[string]any{
		"status":          "unsubscribed",
		"unsubscribed_at": time.Now().UTC().Format(time.RFC3339),
	}

	err := s.client.From("newsletter_subscribers").
		Eq("email", email).
		Update(ctx, values, nil)
	if err != nil {
		return fmt.Errorf("failed to unsubscribe %s: %w", email, err)
	}
	return nil
}

// ListActive returns active subscribers. Requires the service role since the
// subscriber table is not readable by anonymous or user tokens.
func (s *Service) ListActive(ctx context.Context) ([]Subscriber, error) {
	var subscribers []Subscriber
	err := s.client.From("newsletter_subscribers").
		Eq("status", "active").
		Order("subscribed_at", false).
		AsServiceRole().
		Execute(ctx, &subscribers)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscribers: %w", err)
	}
	return subscribers, nil
}
