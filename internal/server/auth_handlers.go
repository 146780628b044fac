package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vayu-prana/vayu/internal/supabase"
)

// SignUpRequest represents the registration request
type SignUpRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginRequest represents the login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest carries a refresh token to exchange
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// ForgotPasswordRequest asks for a recovery email
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest sets a new password using a recovery token
type ResetPasswordRequest struct {
	RecoveryToken string `json:"recovery_token" binding:"required"`
	Password      string `json:"password" binding:"required,min=8"`
}

// @Router /api/auth/signup [post]
// @Param request body SignUpRequest true "Registration details"
// @Success 200 {object} map[string]interface{}
func (s *Server) signUp(c *gin.Context) {
	var req SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, s.logger, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	session, err := s.supabase.SignUp(c.Request.Context(), supabase.SignUpRequest{
		Email:    req.Email,
		Password: req.Password,
	}, s.config.Site.URL)
	if err != nil {
		respondWithError(c, s.logger, http.StatusBadGateway, err, "Registration failed")
		return
	}

	s.logger.Info().Str("email", req.Email).Msg("User registered")
	c.JSON(http.StatusOK, gin.H{
		"message": "Check your email to confirm your account",
		"session": session,
	})
}

// @Router /api/auth/login [post]
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} supabase.Session
func (s *Server) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, s.logger, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	session, err := s.supabase.SignInWithPassword(c.Request.Context(), supabase.SignInRequest{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondWithError(c, s.logger, http.StatusUnauthorized, err, "Invalid email or password")
		return
	}

	s.logger.Info().Str("email", req.Email).Msg("User logged in")
	c.JSON(http.StatusOK, session)
}

// @Router /api/auth/refresh [post]
// @Param request body RefreshRequest true "Refresh token"
// @Success 200 {object} supabase.Session
func (s *Server) refreshToken(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, s.logger, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	session, err := s.supabase.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondWithError(c, s.logger, http.StatusUnauthorized, err, "Failed to refresh session")
		return
	}

	c.JSON(http.StatusOK, session)
}

// CallbackRequest carries the token pair an OAuth redirect delivered to the
// frontend in the URL fragment
type CallbackRequest struct {
	AccessToken  string `form:"access_token" binding:"required"`
	RefreshToken string `form:"refresh_token"`
}

// @Router /api/auth/callback [get]
// @Param access_token query string true "Access token from the redirect fragment"
// @Param refresh_token query string false "Refresh token from the redirect fragment"
// @Success 200 {object} supabase.Session
func (s *Server) authCallback(c *gin.Context) {
	var req CallbackRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondWithError(c, s.logger, http.StatusBadRequest, err, "Missing callback tokens")
		return
	}

	// With a refresh token the pair is exchanged for a fresh session;
	// otherwise the access token is validated as-is.
	session, err := s.supabase.SetSession(c.Request.Context(), req.AccessToken, req.RefreshToken)
	if err != nil {
		respondWithError(c, s.logger, http.StatusUnauthorized, err, "Callback tokens were rejected")
		return
	}

	if session.User != nil {
		s.logger.Info().Str("user_id", session.User.ID).Msg("Session established from OAuth callback")
	}
	c.JSON(http.StatusOK, session)
}

// @Router /api/auth/logout [post]
// @Success 200 {object} map[string]interface{}
func (s *Server) logout(c *gin.Context) {
	session, _ := GetSessionData(c)

	// Revocation is best effort; the client discards its tokens regardless
	if err := s.supabase.SignOut(c.Request.Context(), session.AccessToken); err != nil {
		s.logger.Warn().Err(err).Str("user_id", session.UserID).Msg("Failed to revoke session")
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// @Router /api/auth/me [get]
// @Success 200 {object} map[string]interface{}
func (s *Server) getCurrentUser(c *gin.Context) {
	session, exists := GetSessionData(c)
	if !exists {
		respondWithError(c, s.logger, http.StatusUnauthorized, ErrInvalidToken, "Unauthorized")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":  session.UserID,
		"email":    session.Email,
		"is_admin": session.IsAdmin,
	})
}

// @Router /api/auth/forgot-password [post]
// @Param request body ForgotPasswordRequest true "Account email"
// @Success 200 {object} map[string]interface{}
func (s *Server) forgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, s.logger, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	redirectTo := s.config.Site.URL + "/auth/reset-password"
	if err := s.supabase.ResetPasswordForEmail(c.Request.Context(), req.Email, redirectTo); err != nil {
		// Do not reveal whether the account exists
		s.logger.Warn().Err(err).Msg("Password recovery request failed")
	}

	c.JSON(http.StatusOK, gin.H{"message": "If that account exists, a recovery email is on its way"})
}

// @Router /api/auth/reset-password [post]
// @Param request body ResetPasswordRequest true "Recovery token and new password"
// @Success 200 {object} map[string]interface{}
func (s *Server) resetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, s.logger, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	// The recovery fragment token authenticates the password change
	if err := s.supabase.UpdateUserPassword(c.Request.Context(), req.RecoveryToken, req.Password); err != nil {
		respondWithError(c, s.logger, http.StatusUnauthorized, err, "Recovery link is invalid or expired")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}

// UpdatePasswordRequest changes the authenticated user's password
type UpdatePasswordRequest struct {
	Password string `json:"password" binding:"required,min=8"`
}

// @Router /api/auth/password [put]
// @Param request body UpdatePasswordRequest true "New password"
// @Success 200 {object} map[string]interface{}
func (s *Server) updatePassword(c *gin.Context) {
	var req UpdatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, s.logger, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	session, _ := GetSessionData(c)
	if err := s.supabase.UpdateUserPassword(c.Request.Context(), session.AccessToken, req.Password); err != nil {
		respondWithError(c, s.logger, http.StatusBadGateway, err, "Failed to update password")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}
