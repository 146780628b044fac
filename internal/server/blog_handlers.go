package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vayu-prana/vayu/internal/auth"
	"github.com/vayu-prana/vayu/internal/newsletter"
	"github.com/vayu-prana/vayu/internal/supabase"
)

// @Router /api/blog/posts [get]
// @Success 200 {array} blog.BlogPost
func (s *Server) listBlogPosts(c *gin.Context) {
	posts, err := s.blogService.ListPublished(c.Request.Context())
	if err != nil {
		respondWithError(c, s.logger, http.StatusBadGateway, err, "Failed to list blog posts")
		return
	}

	c.JSON(http.StatusOK, posts)
}

// @Router /api/blog/posts/{slug} [get]
// @Param slug path string true "Post slug"
// @Success 200 {object} blog.BlogPost
func (s *Server) getBlogPost(c *gin.Context) {
	slug := c.Param("slug")

	post, err := s.blogService.GetBySlug(c.Request.Context(), slug)
	if err != nil {
		var supaErr *supabase.Error
		if errors.As(err, &supaErr) && supaErr.StatusCode == http.StatusNotAcceptable {
			// PostgREST returns 406 when a Single() query matches no rows
			c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
			return
		}
		respondWithError(c, s.logger, http.StatusBadGateway, err, "Failed to load blog post")
		return
	}
	if post == nil || !post.Published {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	c.JSON(http.StatusOK, post)
}

// SubscribeRequest represents a newsletter signup
type SubscribeRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// @Router /api/newsletter/subscribe [post]
// @Param request body SubscribeRequest true "Subscriber email"
// @Success 200 {object} map[string]interface{}
func (s *Server) subscribeNewsletter(c *gin.Context) {
	var req SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, s.logger, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	_, err := s.newsletterService.Subscribe(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, newsletter.ErrAlreadySubscribed) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		respondWithError(c, s.logger, http.StatusBadGateway, err, "Subscription failed")
		return
	}

	s.logger.Info().Str("email", req.Email).Msg("Newsletter subscription")
	c.JSON(http.StatusOK, gin.H{"message": "Subscribed"})
}

// @Router /api/newsletter/unsubscribe [post]
// @Param request body SubscribeRequest true "Subscriber email"
// @Success 200 {object} map[string]interface{}
func (s *Server) unsubscribeNewsletter(c *gin.Context) {
	var req SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, s.logger, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	if err := s.newsletterService.Unsubscribe(c.Request.Context(), req.Email); err != nil {
		respondWithError(c, s.logger, http.StatusBadGateway, err, "Unsubscribe failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Unsubscribed"})
}

// InvestorAccessRequest carries the access code for the investor deck
type InvestorAccessRequest struct {
	Code string `json:"code" binding:"required"`
}

// @Router /api/investor/access [post]
// @Param request body InvestorAccessRequest true "Access code"
// @Success 200 {object} map[string]interface{}
func (s *Server) verifyInvestorAccess(c *gin.Context) {
	var req InvestorAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, s.logger, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	if s.config.Site.InvestorAccessHash == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Investor access is not configured"})
		return
	}

	if err := auth.VerifyAccessCode(req.Code, s.config.Site.InvestorAccessHash); err != nil {
		respondWithError(c, s.logger, http.StatusUnauthorized, err, "Invalid access code")
		return
	}

	c.JSON(http.StatusOK, gin.H{"granted": true})
}
