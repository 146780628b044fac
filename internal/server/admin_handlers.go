package server

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/oklog/ulid/v2"

	"github.com/vayu-prana/vayu/internal/blog"
	"github.com/vayu-prana/vayu/internal/tasks"
)

const blogImageBucket = "blog-images"

// @Router /api/admin/blog/posts [get]
// @Success 200 {array} blog.BlogPost
func (s *Server) adminListBlogPosts(c *gin.Context) {
	session, _ := GetSessionData(c)

	posts, err := s.blogService.ListAll(c.Request.Context(), session.AccessToken)
	if err != nil {
		respondWithError(c, s.logger, http.StatusBadGateway, err, "Failed to list blog posts")
		return
	}

	c.JSON(http.StatusOK, posts)
}

// @Router /api/admin/blog/posts [post]
// @Param request body blog.PostInput true "Post fields"
// @Success 201 {object} blog.BlogPost
func (s *Server) adminCreateBlogPost(c *gin.Context) {
	var input blog.PostInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondWithError(c, s.logger, http.StatusBadRequest, err, "Invalid request body")
		return
	}
	if err := s.validator.Var(input.Slug, "slug"); err != nil {
		respondWithError(c, s.logger, http.StatusBadRequest, err, "Invalid post slug")
		return
	}

	session, _ := GetSessionData(c)
	post, err := s.blogService.Create(c.Request.Context(), session.AccessToken, session.UserID, input)
	if err != nil {
		respondWithError(c, s.logger, http.StatusBadGateway, err, "Failed to create blog post")
		return
	}

	s.logger.Info().Str("post_id", post.ID).Str("slug", post.Slug).Msg("Blog post created")
	c.JSON(http.StatusCreated, post)
}

// @Router /api/admin/blog/posts/{id} [put]
// @Param id path string true "Post ID"
// @Param request body blog.PostInput true "Post fields"
// @Success 200 {object} blog.BlogPost
func (s *Server) adminUpdateBlogPost(c *gin.Context) {
	var input blog.PostInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondWithError(c, s.logger, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	session, _ := GetSessionData(c)
	post, err := s.blogService.Update(c.Request.Context(), session.AccessToken, c.Param("id"), input)
	if err != nil {
		respondWithError(c, s.logger, http.StatusBadGateway, err, "Failed to update blog post")
		return
	}

	c.JSON(http.StatusOK, post)
}

// @Router /api/admin/blog/posts/{id} [delete]
// @Param id path string true "Post ID"
// @Success 200 {object} map[string]interface{}
func (s *Server) adminDeleteBlogPost(c *gin.Context) {
	session, _ := GetSessionData(c)

	if err := s.blogService.Delete(c.Request.Context(), session.AccessToken, c.Param("id")); err != nil {
		respondWithError(c, s.logger, http.StatusBadGateway, err, "Failed to delete blog post")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Post deleted"})
}

// @Router /api/admin/blog/posts/{id}/publish [post]
// @Param id path string true "Post ID"
// @Success 200 {object} blog.BlogPost
func (s *Server) adminPublishBlogPost(c *gin.Context) {
	session, _ := GetSessionData(c)
	id := c.Param("id")

	post, err := s.blogService.Publish(c.Request.Context(), session.AccessToken, id)
	if err != nil {
		respondWithError(c, s.logger, http.StatusBadGateway, err, "Failed to publish blog post")
		return
	}

	// Fan the announcement out to subscribers in the background
	task, err := tasks.NewNotifyBlogPostTask(post.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("post_id", post.ID).Msg("Failed to create notification task")
	} else if _, err := s.asynqClient.Enqueue(task, asynq.Queue("default"), asynq.MaxRetry(3)); err != nil {
		s.logger.Error().Err(err).Str("post_id", post.ID).Msg("Failed to enqueue notification task")
	}

	s.logger.Info().Str("post_id", post.ID).Str("slug", post.Slug).Msg("Blog post published")
	c.JSON(http.StatusOK, post)
}

// @Router /api/admin/blog/upload [post]
// @Param file formData file true "Image file"
// @Success 200 {object} map[string]interface{}
func (s *Server) adminUploadImage(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		respondWithError(c, s.logger, http.StatusBadRequest, err, "Missing file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondWithError(c, s.logger, http.StatusBadRequest, err, "Failed to read file")
		return
	}

	session, _ := GetSessionData(c)
	objectPath := fmt.Sprintf("%s%s", ulid.Make().String(), filepath.Ext(header.Filename))
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	err = s.supabase.UploadObject(c.Request.Context(), session.AccessToken, blogImageBucket, objectPath, contentType, data)
	if err != nil {
		respondWithError(c, s.logger, http.StatusBadGateway, err, "Upload failed")
		return
	}

	url := blog.FormatImageURL(s.supabase.PublicURL(blogImageBucket, objectPath))
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// requireAnalytics aborts with 503 when the direct database connection is not
// configured.
func (s *Server) requireAnalytics(c *gin.Context) bool {
	if s.analyticsService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Analytics is not configured"})
		c.Abort()
		return false
	}
	return true
}

// @Router /api/admin/analytics/moods [get]
// @Param days query int false "Trailing window in days"
// @Success 200 {array} analytics.MoodCount
func (s *Server) adminMoodDistribution(c *gin.Context) {
	if !s.requireAnalytics(c) {
		return
	}

	counts, err := s.analyticsService.MoodDistribution(c.Request.Context(), trailingDays(c, 30))
	if err != nil {
		respondWithError(c, s.logger, http.StatusInternalServerError, err, "Failed to load mood distribution")
		return
	}

	c.JSON(http.StatusOK, counts)
}

// @Router /api/admin/analytics/sessions [get]
// @Param days query int false "Trailing window in days"
// @Success 200 {array} analytics.DailyCount
func (s *Server) adminSessionsPerDay(c *gin.Context) {
	if !s.requireAnalytics(c) {
		return
	}

	counts, err := s.analyticsService.SessionsPerDay(c.Request.Context(), trailingDays(c, 30))
	if err != nil {
		respondWithError(c, s.logger, http.StatusInternalServerError, err, "Failed to load session counts")
		return
	}

	c.JSON(http.StatusOK, counts)
}

// @Router /api/admin/analytics/signups [get]
// @Param days query int false "Trailing window in days"
// @Success 200 {array} analytics.DailyCount
func (s *Server) adminSignupsPerDay(c *gin.Context) {
	if !s.requireAnalytics(c) {
		return
	}

	counts, err := s.analyticsService.SignupsPerDay(c.Request.Context(), trailingDays(c, 30))
	if err != nil {
		respondWithError(c, s.logger, http.StatusInternalServerError, err, "Failed to load signup counts")
		return
	}

	c.JSON(http.StatusOK, counts)
}

// @Router /api/admin/analytics/newsletter [get]
// @Param days query int false "Trailing window in days"
// @Success 200 {array} analytics.DailyCount
func (s *Server) adminNewsletterGrowth(c *gin.Context) {
	if !s.requireAnalytics(c) {
		return
	}

	counts, err := s.analyticsService.NewsletterGrowth(c.Request.Context(), trailingDays(c, 30))
	if err != nil {
		respondWithError(c, s.logger, http.StatusInternalServerError, err, "Failed to load newsletter growth")
		return
	}

	c.JSON(http.StatusOK, counts)
}

// @Router /api/admin/analytics/heart-rate [get]
// @Param days query int false "Trailing window in days"
// @Success 200 {array} analytics.HeartRateTrend
func (s *Server) adminHeartRateTrends(c *gin.Context) {
	if !s.requireAnalytics(c) {
		return
	}

	trends, err := s.analyticsService.HeartRateTrends(c.Request.Context(), trailingDays(c, 30))
	if err != nil {
		respondWithError(c, s.logger, http.StatusInternalServerError, err, "Failed to load heart rate trends")
		return
	}

	c.JSON(http.StatusOK, trends)
}

// @Router /api/admin/newsletter/subscribers [get]
// @Success 200 {array} newsletter.Subscriber
func (s *Server) adminListSubscribers(c *gin.Context) {
	subscribers, err := s.newsletterService.ListActive(c.Request.Context())
	if err != nil {
		respondWithError(c, s.logger, http.StatusBadGateway, err, "Failed to list subscribers")
		return
	}

	c.JSON(http.StatusOK, subscribers)
}

// TestEmailRequest sends a one-off email through the delivery pipeline
type TestEmailRequest struct {
	To string `json:"to" binding:"required,email"`
}

// @Router /api/admin/email/test [post]
// @Param request body TestEmailRequest true "Recipient"
// @Success 200 {object} map[string]interface{}
func (s *Server) adminSendTestEmail(c *gin.Context) {
	var req TestEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, s.logger, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	body := fmt.Sprintf("<p>Test email from Vayu at %s</p>", time.Now().UTC().Format(time.RFC3339))
	task, err := tasks.NewSendEmailTask(req.To, "Vayu test email", body)
	if err != nil {
		respondWithError(c, s.logger, http.StatusInternalServerError, err, "Failed to create email task")
		return
	}

	if _, err := s.asynqClient.Enqueue(task, asynq.Queue("default")); err != nil {
		respondWithError(c, s.logger, http.StatusInternalServerError, err, "Failed to enqueue email task")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Test email queued"})
}
