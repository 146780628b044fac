package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	// Email delivery through the backend's email-sender function
	TypeSendEmail = "email:send"
	// Fan-out of a published blog post to newsletter subscribers
	TypeNotifyBlogPost = "blog:notify"
	// Periodic newsletter digest
	TypeNewsletterDigest = "newsletter:digest"
)

// EmailPayload is the payload for a single outbound email.
type EmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NotifyBlogPostPayload identifies the post to fan out.
type NotifyBlogPostPayload struct {
	PostID string `json:"post_id"`
}

// NewSendEmailTask creates a task to deliver one email.
func NewSendEmailTask(to, subject, body string) (*asynq.Task, error) {
	payload, err := json.Marshal(EmailPayload{To: to, Subject: subject, Body: body})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeSendEmail, payload), nil
}

// NewNotifyBlogPostTask creates a task to notify subscribers about a post.
func NewNotifyBlogPostTask(postID string) (*asynq.Task, error) {
	payload, err := json.Marshal(NotifyBlogPostPayload{PostID: postID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeNotifyBlogPost, payload), nil
}

// NewNewsletterDigestTask creates a task to assemble and send the digest.
func NewNewsletterDigestTask() *asynq.Task {
	return asynq.NewTask(TypeNewsletterDigest, nil)
}

// ParseEmailPayload parses an email task payload.
func ParseEmailPayload(task *asynq.Task) (EmailPayload, error) {
	var payload EmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return payload, nil
}

// ParseNotifyBlogPostPayload parses a blog notification task payload.
func ParseNotifyBlogPostPayload(task *asynq.Task) (NotifyBlogPostPayload, error) {
	var payload NotifyBlogPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return payload, nil
}
