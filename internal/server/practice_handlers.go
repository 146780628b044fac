package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vayu-prana/vayu/internal/practice"
)

// trailingDays parses the ?days query parameter with a sane default and cap.
func trailingDays(c *gin.Context, def int) int {
	days, err := strconv.Atoi(c.DefaultQuery("days", strconv.Itoa(def)))
	if err != nil || days < 1 {
		return def
	}
	if days > 365 {
		return 365
	}
	return days
}

// @Router /api/practice/sessions [get]
// @Param days query int false "Trailing window in days"
// @Success 200 {array} practice.PracticeSession
func (s *Server) listPracticeSessions(c *gin.Context) {
	session, _ := GetSessionData(c)
	days := trailingDays(c, 30)

	sessions, err := s.practiceService.ListSessions(c.Request.Context(), session.AccessToken, session.UserID, days)
	if err != nil {
		respondWithError(c, s.logger, http.StatusBadGateway, err, "Failed to list practice sessions")
		return
	}

	c.JSON(http.StatusOK, sessions)
}

// RecordSessionRequest represents a completed breathing session
type RecordSessionRequest struct {
	Technique       string `json:"technique" binding:"required"`
	DurationSeconds int    `json:"duration_seconds" binding:"required,min=1"`
	BreathCount     int    `json:"breath_count" binding:"min=0"`
}

// @Router /api/practice/sessions [post]
// @Param request body RecordSessionRequest true "Session details"
// @Success 201 {object} practice.PracticeSession
func (s *Server) recordPracticeSession(c *gin.Context) {
	var req RecordSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, s.logger, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	session, _ := GetSessionData(c)
	created, err := s.practiceService.RecordSession(c.Request.Context(),
		session.AccessToken, session.UserID, req.Technique, req.DurationSeconds, req.BreathCount)
	if err != nil {
		respondWithError(c, s.logger, http.StatusBadGateway, err, "Failed to record practice session")
		return
	}

	c.JSON(http.StatusCreated, created)
}

// @Router /api/practice/moods [get]
// @Param days query int false "Trailing window in days"
// @Success 200 {array} practice.Mood
func (s *Server) listMoods(c *gin.Context) {
	session, _ := GetSessionData(c)
	days := trailingDays(c, 30)

	moods, err := s.practiceService.ListMoods(c.Request.Context(), session.AccessToken, session.UserID, days)
	if err != nil {
		respondWithError(c, s.logger, http.StatusBadGateway, err, "Failed to list moods")
		return
	}

	c.JSON(http.StatusOK, moods)
}

// RecordMoodRequest represents a mood entry
type RecordMoodRequest struct {
	Mood string `json:"mood" binding:"required,oneof=calm focused energized anxious tired"`
}

// @Router /api/practice/moods [post]
// @Param request body RecordMoodRequest true "Mood"
// @Success 201 {object} practice.Mood
func (s *Server) recordMood(c *gin.Context) {
	var req RecordMoodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, s.logger, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	session, _ := GetSessionData(c)
	created, err := s.practiceService.RecordMood(c.Request.Context(), session.AccessToken, session.UserID, req.Mood)
	if err != nil {
		respondWithError(c, s.logger, http.StatusBadGateway, err, "Failed to record mood")
		return
	}

	c.JSON(http.StatusCreated, created)
}

// @Router /api/practice/achievements [get]
// @Success 200 {array} practice.Achievement
func (s *Server) listAchievements(c *gin.Context) {
	session, _ := GetSessionData(c)

	achievements, err := s.practiceService.ListAchievements(c.Request.Context(), session.AccessToken, session.UserID)
	if err != nil {
		respondWithError(c, s.logger, http.StatusBadGateway, err, "Failed to list achievements")
		return
	}

	c.JSON(http.StatusOK, achievements)
}

// @Router /api/profile [get]
// @Success 200 {object} practice.Profile
func (s *Server) getProfile(c *gin.Context) {
	session, _ := GetSessionData(c)

	profile, err := s.practiceService.GetProfile(c.Request.Context(), session.AccessToken, session.UserID)
	if err != nil {
		respondWithError(c, s.logger, http.StatusBadGateway, err, "Failed to load profile")
		return
	}

	c.JSON(http.StatusOK, profile)
}

// @Router /api/profile [put]
// @Param request body practice.ProfileInput true "Profile fields"
// @Success 200 {object} practice.Profile
func (s *Server) updateProfile(c *gin.Context) {
	var input practice.ProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondWithError(c, s.logger, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	session, _ := GetSessionData(c)
	profile, err := s.practiceService.UpdateProfile(c.Request.Context(), session.AccessToken, session.UserID, input)
	if err != nil {
		respondWithError(c, s.logger, http.StatusBadGateway, err, "Failed to update profile")
		return
	}

	c.JSON(http.StatusOK, profile)
}

// @Router /api/profile/data [delete]
// @Success 200 {object} map[string]interface{}
func (s *Server) deleteUserData(c *gin.Context) {
	session, _ := GetSessionData(c)

	if err := s.practiceService.DeleteUserData(c.Request.Context(), session.AccessToken, session.UserID); err != nil {
		respondWithError(c, s.logger, http.StatusBadGateway, err, "Failed to delete user data")
		return
	}

	s.logger.Info().Str("user_id", session.UserID).Msg("User data deleted")
	c.JSON(http.StatusOK, gin.H{"message": "Your data has been deleted"})
}
