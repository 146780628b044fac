package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// @Router /api/techniques [get]
// @Success 200 {array} content.Technique
func (s *Server) listTechniques(c *gin.Context) {
	techniques, err := s.contentService.ListTechniques()
	if err != nil {
		respondWithError(c, s.logger, http.StatusInternalServerError, err, "Failed to list techniques")
		return
	}

	c.JSON(http.StatusOK, techniques)
}

// @Router /api/techniques/{slug} [get]
// @Param slug path string true "Technique slug"
// @Success 200 {object} content.Technique
func (s *Server) getTechnique(c *gin.Context) {
	slug := c.Param("slug")
	if err := s.validator.Var(slug, "slug"); err != nil {
		respondWithError(c, s.logger, http.StatusBadRequest, err, "Invalid technique slug")
		return
	}

	technique, err := s.contentService.GetTechnique(slug)
	if err != nil {
		respondWithError(c, s.logger, http.StatusInternalServerError, err, "Failed to load technique")
		return
	}
	if technique == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Technique not found"})
		return
	}

	c.JSON(http.StatusOK, technique)
}

// @Router /api/faq [get]
// @Success 200 {array} content.FAQEntry
func (s *Server) listFAQ(c *gin.Context) {
	entries, err := s.contentService.ListFAQ()
	if err != nil {
		respondWithError(c, s.logger, http.StatusInternalServerError, err, "Failed to list FAQ entries")
		return
	}

	c.JSON(http.StatusOK, entries)
}
