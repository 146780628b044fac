package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ContactRequest is a contact form submission
type ContactRequest struct {
	Name    string `json:"name" binding:"required,max=200"`
	Email   string `json:"email" binding:"required,email"`
	Message string `json:"message" binding:"required,max=5000"`
}

// @Router /api/contact [post]
// @Param request body ContactRequest true "Contact message"
// @Success 200 {object} map[string]interface{}
func (s *Server) submitContactMessage(c *gin.Context) {
	var req ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, s.logger, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	if _, err := s.messagesService.Submit(c.Request.Context(), req.Name, req.Email, req.Message); err != nil {
		respondWithError(c, s.logger, http.StatusBadGateway, err, "Failed to send message")
		return
	}

	s.logger.Info().Str("email", req.Email).Msg("Contact message received")
	c.JSON(http.StatusOK, gin.H{"message": "Thanks for reaching out, we will get back to you soon"})
}

// @Router /api/admin/messages [get]
// @Param limit query int false "Maximum number of messages" default(100)
// @Success 200 {array} messages.Message
func (s *Server) adminListMessages(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit < 1 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}

	msgs, err := s.messagesService.ListRecent(c.Request.Context(), limit)
	if err != nil {
		respondWithError(c, s.logger, http.StatusBadGateway, err, "Failed to list messages")
		return
	}

	c.JSON(http.StatusOK, msgs)
}
