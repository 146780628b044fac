package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vayu-prana/vayu/internal/auth"
	"github.com/vayu-prana/vayu/internal/supabase"
)

const (
	bearerPrefix = "Bearer "
)

var (
	ErrMissingAuthHeader = errors.New("missing authorization header")
	ErrInvalidAuthFormat = errors.New("invalid authorization header format")
	ErrEmptyToken        = errors.New("empty token")
	ErrInvalidToken      = errors.New("invalid token")
)

func setSession(c *gin.Context, sessionData *auth.SessionData) {
	c.Set("session", sessionData)
}

func GetSessionData(c *gin.Context) (*auth.SessionData, bool) {
	session, exists := c.Get("session")
	if !exists {
		return nil, false
	}

	sessionData, ok := session.(*auth.SessionData)
	return sessionData, ok
}

func extractBearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrMissingAuthHeader
	}

	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", ErrInvalidAuthFormat
	}

	token := strings.TrimPrefix(authHeader, bearerPrefix)
	if token == "" {
		return "", ErrEmptyToken
	}

	return token, nil
}

func respondWithError(c *gin.Context, log zerolog.Logger, statusCode int, err error, message string) {
	log.Warn().Err(err).Msg(message)
	c.JSON(statusCode, gin.H{"error": message})
	c.Abort()
}

// JWTAuthMiddleware validates Supabase access tokens. With the project JWT
// secret configured, tokens verify locally; otherwise the auth backend is
// asked. Admin status derives from the allow-listed email, not from a claim.
func JWTAuthMiddleware(client *supabase.Client, adminEmail string, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		token, err := extractBearerToken(authHeader)
		if err != nil {
			var message string
			switch err {
			case ErrMissingAuthHeader:
				message = "Missing authorization header"
			case ErrInvalidAuthFormat:
				message = "Invalid authorization header format"
			case ErrEmptyToken:
				message = "Empty token"
			}
			respondWithError(c, log, http.StatusUnauthorized, err, message)
			return
		}

		userID, email, err := resolveToken(c, client, token)
		if err != nil {
			log.Error().Err(err).Msg("Failed to validate access token")
			respondWithError(c, log, http.StatusUnauthorized, ErrInvalidToken, "Invalid or expired token")
			return
		}

		sessionData := &auth.SessionData{
			UserID:      userID,
			Email:       email,
			IsAdmin:     email != "" && email == adminEmail,
			AccessToken: token,
		}
		setSession(c, sessionData)

		c.Next()
	}
}

func resolveToken(c *gin.Context, client *supabase.Client, token string) (userID, email string, err error) {
	claims, err := auth.ValidateToken(token)
	if err == nil {
		return claims.Subject, claims.Email, nil
	}
	if !errors.Is(err, auth.ErrSecretNotConfigured) {
		return "", "", err
	}

	user, err := client.GetUser(c.Request.Context(), token)
	if err != nil {
		return "", "", err
	}
	return user.ID, user.Email, nil
}

// AdminOnlyMiddleware ensures the authenticated user is the admin
func AdminOnlyMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionData, exists := GetSessionData(c)
		if !exists {
			respondWithError(c, log, http.StatusUnauthorized, errors.New("no session"), "Unauthorized")
			return
		}

		if !sessionData.IsAdmin {
			respondWithError(c, log, http.StatusForbidden, errors.New("not admin"), "Admin access required")
			return
		}

		c.Next()
	}
}
