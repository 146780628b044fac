package workers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/vayu-prana/vayu/internal/blog"
	"github.com/vayu-prana/vayu/internal/newsletter"
	"github.com/vayu-prana/vayu/internal/tasks"
)

// StartDigestScheduler runs a periodic check (every minute) for the newsletter
// digest schedule and enqueues a digest task when a run is due.
func StartDigestScheduler(client *asynq.Client, schedule string, logger zerolog.Logger) {
	if schedule == "" {
		logger.Debug().Msg("No digest schedule configured")
		return
	}

	next := calculateNextDigestTime(schedule, time.Now())
	if next == nil {
		logger.Error().Str("schedule", schedule).Msg("Invalid digest schedule")
		return
	}

	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		if next.After(time.Now()) {
			continue
		}

		if _, err := client.Enqueue(tasks.NewNewsletterDigestTask(), asynq.Queue("low")); err != nil {
			logger.Error().Err(err).Msg("Failed to enqueue digest task")
			// Leave next unchanged so the enqueue is retried next minute.
			continue
		}

		logger.Info().Time("scheduled_for", *next).Msg("Newsletter digest enqueued")
		next = calculateNextDigestTime(schedule, time.Now())
		if next == nil {
			return
		}
	}
}

// calculateNextDigestTime calculates the next digest run from a cron schedule
func calculateNextDigestTime(cronExpr string, from time.Time) *time.Time {
	if cronExpr == "" {
		return nil
	}

	// Standard 5-field format: minute hour day-of-month month day-of-week
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(cronExpr)
	if err != nil {
		return nil
	}

	next := schedule.Next(from)
	return &next
}

// HandleNewsletterDigest assembles the digest of the past week's posts and
// enqueues one email per active subscriber. A week with no posts sends
// nothing.
func HandleNewsletterDigest(ctx context.Context, t *asynq.Task, asynqClient *asynq.Client, blogService *blog.Service, newsService *newsletter.Service, siteURL string, logger zerolog.Logger) error {
	posts, err := blogService.ListPublished(ctx)
	if err != nil {
		return fmt.Errorf("failed to load posts for digest: %w", err)
	}

	cutoff := time.Now().AddDate(0, 0, -7)
	var recent []blog.BlogPost
	for _, post := range posts {
		if post.CreatedAt.After(cutoff) {
			recent = append(recent, post)
		}
	}
	if len(recent) == 0 {
		logger.Info().Msg("No posts this week, skipping digest")
		return nil
	}

	subscribers, err := newsService.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list subscribers: %w", err)
	}

	body := renderDigestEmail(recent, siteURL)
	enqueued := 0
	for _, sub := range subscribers {
		emailTask, err := tasks.NewSendEmailTask(sub.Email, "Your weekly Vayu digest", body)
		if err != nil {
			logger.Error().Err(err).Str("email", sub.Email).Msg("Failed to create digest email task")
			continue
		}
		if _, err := asynqClient.Enqueue(emailTask, asynq.Queue("low"), asynq.MaxRetry(3)); err != nil {
			logger.Error().Err(err).Str("email", sub.Email).Msg("Failed to enqueue digest email task")
			continue
		}
		enqueued++
	}

	logger.Info().
		Int("posts", len(recent)).
		Int("recipients", enqueued).
		Msg("Newsletter digest fan-out complete")
	return nil
}

func renderDigestEmail(posts []blog.BlogPost, siteURL string) string {
	var b strings.Builder
	b.WriteString("<h1>This week on Vayu</h1>")
	for _, post := range posts {
		fmt.Fprintf(&b, `<h2><a href="%s/blog/%s">%s</a></h2><p>%s</p>`,
			siteURL, post.Slug, post.Title, post.Excerpt)
	}
	return b.String()
}
