// Package blog serves blog posts and categories from the hosted backend's
// blog_posts, blog_categories, and blog_post_categories tables.
package blog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vayu-prana/vayu/internal/supabase"
)

// publicDomain is the public origin that storage URLs are rewritten to.
const publicDomain = "https://breathe.vayu-prana.com"

// postColumns is the PostgREST select with embedded categories.
const postColumns = "*,categories:blog_post_categories(category:blog_categories(*))"

// BlogPost is a post as exposed to the API.
type BlogPost struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Slug         string         `json:"slug"`
	Content      string         `json:"content"`
	Excerpt      string         `json:"excerpt"`
	ThumbnailURL string         `json:"thumbnail_url"`
	AuthorID     string         `json:"author_id"`
	Published    bool           `json:"published"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	Categories   []BlogCategory `json:"categories,omitempty"`
}

// BlogCategory is a post category.
type BlogCategory struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

// PostInput is the payload for creating or updating a post.
type PostInput struct {
	Title        string `json:"title"`
	Slug         string `json:"slug"`
	Content      string `json:"content"`
	Excerpt      string `json:"excerpt"`
	ThumbnailURL string `json:"thumbnail_url"`
	Published    bool   `json:"published"`
}

// postRow matches the embedded-resource shape PostgREST returns.
type postRow struct {
	BlogPost
	Categories []struct {
		Category *BlogCategory `json:"category"`
	} `json:"categories"`
}

func (r postRow) flatten() BlogPost {
	post := r.BlogPost
	post.ThumbnailURL = FormatImageURL(post.ThumbnailURL)
	post.Categories = nil
	for _, link := range r.Categories {
		if link.Category != nil {
			post.Categories = append(post.Categories, *link.Category)
		}
	}
	return post
}

// Service serves blog content from the hosted backend
type Service struct {
	client *supabase.Client
	logger zerolog.Logger
}

// NewService creates a new blog service
func NewService(client *supabase.Client, logger zerolog.Logger) *Service {
	return &Service{client: client, logger: logger}
}

// ListPublished returns published posts, newest first.
func (s *Service) ListPublished(ctx context.Context) ([]BlogPost, error) {
	var rows []postRow
	err := s.client.From("blog_posts").
		Select(postColumns).
		Eq("published", true).
		Order("created_at", false).
		Execute(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to list blog posts: %w", err)
	}

	posts := make([]BlogPost, len(rows))
	for i, row := range rows {
		posts[i] = row.flatten()
	}
	return posts, nil
}

// GetBySlug returns one post by slug.
func (s *Service) GetBySlug(ctx context.Context, slug string) (*BlogPost, error) {
	var row postRow
	err := s.client.From("blog_posts").
		Select(postColumns).
		Eq("slug", slug).
		Single().
		Execute(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("failed to load blog post %s: %w", slug, err)
	}

	post := row.flatten()
	return &post, nil
}

// ListAll returns every post, drafts included, for the admin area. The
// caller's token scopes the query so RLS enforces admin access.
func (s *Service) ListAll(ctx context.Context, accessToken string) ([]BlogPost, error) {
	var rows []postRow
	err := s.client.From("blog_posts").
		Select(postColumns).
		Order("created_at", false).
		WithToken(accessToken).
		Execute(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to list all blog posts: %w", err)
	}

	posts := make([]BlogPost, len(rows))
	for i, row := range rows {
		posts[i] = row.flatten()
	}
	return posts, nil
}

// Create inserts a new post authored by the caller.
func (s *Service) Create(ctx context.Context, accessToken, authorID string, input PostInput) (*BlogPost, error) {
	row := map[string]any{
		"title":         input.Title,
		"slug":          input.Slug,
		"content":       input.Content,
		"excerpt":       input.Excerpt,
		"thumbnail_url": input.ThumbnailURL,
		"published":     input.Published,
		"author_id":     authorID,
	}

	var created []BlogPost
	err := s.client.From("blog_posts").
		WithToken(accessToken).
		Insert(ctx, []map[string]any{row}, &created)
	if err != nil {
		return nil, fmt.Errorf("failed to create blog post: %w", err)
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("no post returned after create")
	}
	return &created[0], nil
}

// Update patches an existing post.
func (s *Service) Update(ctx context.Context, accessToken, id string, input PostInput) (*BlogPost, error) {
	values := map[string]any{
		"title":         input.Title,
		"slug":          input.Slug,
		"content":       input.Content,
		"excerpt":       input.Excerpt,
		"thumbnail_url": input.ThumbnailURL,
		"published":     input.Published,
		"updated_at":    time.Now().UTC().Format(time.RFC3339),
	}

	var updated []BlogPost
	err := s.client.From("blog_posts").
		Eq("id", id).
		WithToken(accessToken).
		Update(ctx, values, &updated)
	if err != nil {
		return nil, fmt.Errorf("failed to update blog post %s: %w", id, err)
	}
	if len(updated) == 0 {
		return nil, fmt.Errorf("blog post %s not found", id)
	}
	return &updated[0], nil
}

// Delete removes a post.
func (s *Service) Delete(ctx context.Context, accessToken, id string) error {
	err := s.client.From("blog_posts").
		Eq("id", id).
		WithToken(accessToken).
		Delete(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete blog post %s: %w", id, err)
	}
	return nil
}

// Publish flips a post to published and returns it.
func (s *Service) Publish(ctx context.Context, accessToken, id string) (*BlogPost, error) {
	values := map[string]any{
		"published":  true,
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	}

	var updated []BlogPost
	err := s.client.From("blog_posts").
		Eq("id", id).
		WithToken(accessToken).
		Update(ctx, values, &updated)
	if err != nil {
		return nil, fmt.Errorf("failed to publish blog post %s: %w", id, err)
	}
	if len(updated) == 0 {
		return nil, fmt.Errorf("blog post %s not found", id)
	}
	return &updated[0], nil
}

// FormatImageURL rewrites storage URLs to the public domain and leaves
// already-correct URLs untouched.
func FormatImageURL(url string) string {
	if url == "" {
		return ""
	}
	if strings.Contains(url, "breathe.vayu-prana.com") {
		return url
	}
	if idx := strings.Index(url, ".supabase.co"); idx >= 0 {
		rest := url[idx+len(".supabase.co"):]
		return publicDomain + rest
	}
	return url
}
