// Package workers holds the asynq task handlers and the digest scheduler for
// the background email pipeline.
package workers

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/vayu-prana/vayu/internal/blog"
	"github.com/vayu-prana/vayu/internal/newsletter"
	"github.com/vayu-prana/vayu/internal/supabase"
	"github.com/vayu-prana/vayu/internal/tasks"
)

// HandleSendEmail delivers one email through the backend's email-sender
// function.
func HandleSendEmail(ctx context.Context, t *asynq.Task, client *supabase.Client, logger zerolog.Logger) error {
	payload, err := tasks.ParseEmailPayload(t)
	if err != nil {
		return err
	}

	req := map[string]string{
		"to":      payload.To,
		"subject": payload.Subject,
		"html":    payload.Body,
	}
	if err := client.InvokeFunction(ctx, "email-sender", req, nil); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", payload.To, err)
	}

	logger.Info().Str("to", payload.To).Str("subject", payload.Subject).Msg("Email sent")
	return nil
}

// HandleNotifyBlogPost fans a published post out to every active newsletter
// subscriber by enqueueing one email task per recipient.
func HandleNotifyBlogPost(ctx context.Context, t *asynq.Task, asynqClient *asynq.Client, blogService *blog.Service, newsService *newsletter.Service, siteURL string, logger zerolog.Logger) error {
	payload, err := tasks.ParseNotifyBlogPostPayload(t)
	if err != nil {
		return err
	}

	posts, err := blogService.ListPublished(ctx)
	if err != nil {
		return fmt.Errorf("failed to load posts for notification: %w", err)
	}
	var post *blog.BlogPost
	for i := range posts {
		if posts[i].ID == payload.PostID {
			post = &posts[i]
			break
		}
	}
	if post == nil {
		// Unpublished or deleted since enqueueing; nothing to announce.
		logger.Warn().Str("post_id", payload.PostID).Msg("Post not published, skipping notification")
		return nil
	}

	subscribers, err := newsService.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list subscribers: %w", err)
	}

	subject := fmt.Sprintf("New on the Vayu blog: %s", post.Title)
	body := renderPostEmail(post, siteURL)

	enqueued := 0
	for _, sub := range subscribers {
		emailTask, err := tasks.NewSendEmailTask(sub.Email, subject, body)
		if err != nil {
			logger.Error().Err(err).Str("email", sub.Email).Msg("Failed to create email task")
			continue
		}
		if _, err := asynqClient.Enqueue(emailTask, asynq.Queue("low"), asynq.MaxRetry(3)); err != nil {
			logger.Error().Err(err).Str("email", sub.Email).Msg("Failed to enqueue email task")
			continue
		}
		enqueued++
	}

	logger.Info().
		Str("post_id", post.ID).
		Str("title", post.Title).
		Int("recipients", enqueued).
		Msg("Blog notification fan-out complete")
	return nil
}

func renderPostEmail(post *blog.BlogPost, siteURL string) string {
	return fmt.Sprintf(
		`<h1>%s</h1><p>%s</p><p><a href="%s/blog/%s">Read the full post</a></p>`,
		post.Title, post.Excerpt, siteURL, post.Slug,
	)
}
