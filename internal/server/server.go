// Package server
//
// @title Vayu API
// @version 1.0
// @description Breathing and wellness platform API
// @host localhost:8080
// @BasePath /
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vayu-prana/vayu/internal/analytics"
	"github.com/vayu-prana/vayu/internal/auth"
	"github.com/vayu-prana/vayu/internal/blog"
	"github.com/vayu-prana/vayu/internal/config"
	"github.com/vayu-prana/vayu/internal/content"
	"github.com/vayu-prana/vayu/internal/messages"
	"github.com/vayu-prana/vayu/internal/newsletter"
	"github.com/vayu-prana/vayu/internal/practice"
	"github.com/vayu-prana/vayu/internal/supabase"
)

// Server represents the HTTP server
type Server struct {
	router            *gin.Engine
	db                *gorm.DB
	config            *config.Config
	logger            zerolog.Logger
	validator         *validator.Validate
	asynqClient       *asynq.Client
	supabase          *supabase.Client
	contentService    *content.Service
	blogService       *blog.Service
	practiceService   *practice.Service
	newsletterService *newsletter.Service
	messagesService   *messages.Service
	analyticsService  *analytics.Service
	version           string
}

// New creates a new server instance
func New(cfg *config.Config, zlog zerolog.Logger, version string) (*Server, error) {
	// Local content database (techniques, FAQ)
	db, err := initDatabase(cfg, zlog)
	if err != nil {
		return nil, err
	}

	if err := content.AutoMigrate(db); err != nil {
		return nil, err
	}

	// Verify access tokens locally when the project JWT secret is configured;
	// without it every authenticated request falls back to a backend round trip.
	if cfg.Supabase.JWTSecret != "" {
		auth.InitializeJWT(cfg.Supabase.JWTSecret)
		zlog.Debug().Msg("JWT verification enabled")
	} else {
		zlog.Warn().Msg("SUPABASE_JWT_SECRET not set - tokens will be verified against the auth backend")
	}

	// Initialize validator
	validate := validator.New()
	validate.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		for _, char := range value {
			if !((char >= 'a' && char <= 'z') ||
				(char >= '0' && char <= '9') ||
				char == '-') {
				return false
			}
		}
		return value != ""
	})

	// Initialize Asynq client for enqueueing tasks
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr: cfg.Redis.Address,
	})

	supaClient, err := supabase.New(supabase.Config{
		URL:        cfg.Supabase.URL,
		AnonKey:    cfg.Supabase.AnonKey,
		ServiceKey: cfg.Supabase.ServiceKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create backend client: %w", err)
	}

	contentService := content.NewService(db, zlog)
	if err := contentService.Seed(); err != nil {
		return nil, err
	}

	// Analytics needs a direct Postgres connection; skip when not configured
	var analyticsService *analytics.Service
	if cfg.Supabase.DatabaseURL != "" {
		analyticsService, err = analytics.NewService(cfg.Supabase.DatabaseURL, zlog)
		if err != nil {
			zlog.Warn().Err(err).Msg("Failed to initialize analytics - admin charts will be disabled")
			analyticsService = nil
		}
	}

	server := &Server{
		db:                db,
		config:            cfg,
		logger:            zlog,
		validator:         validate,
		asynqClient:       asynqClient,
		supabase:          supaClient,
		contentService:    contentService,
		blogService:       blog.NewService(supaClient, zlog),
		practiceService:   practice.NewService(supaClient, zlog),
		newsletterService: newsletter.NewService(supaClient, zlog),
		messagesService:   messages.NewService(supaClient, zlog),
		analyticsService:  analyticsService,
		version:           version,
	}

	// Setup router
	server.setupRouter()

	return server, nil
}

// initDatabase initializes the content database with production settings
func initDatabase(cfg *config.Config, zlog zerolog.Logger) (*gorm.DB, error) {
	const (
		maxOpenConns    = 8
		maxIdleConns    = 4
		connMaxLifetime = 300  // 5 minutes
		busyTimeout     = 5000 // 5 seconds
	)

	db, err := gorm.Open(sqlite.Open(cfg.Content.URL), &gorm.Config{
		Logger: logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{
				LogLevel:                  logger.Error,
				IgnoreRecordNotFoundError: true,
				SlowThreshold:             200 * time.Millisecond,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(connMaxLifetime) * time.Second)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// WAL mode must be set first for optimal concurrency
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout),
		"PRAGMA foreign_keys=1",
	}

	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			zlog.Warn().Str("pragma", pragma).Err(err).Msg("Failed to apply pragma")
		}
	}

	return db, nil
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()

	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	// CORS middleware
	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", s.config.Site.URL},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint (no auth required)
	s.router.GET("/health", s.healthCheck)

	// Public auth endpoints
	s.router.POST("/api/auth/signup", s.signUp)
	s.router.POST("/api/auth/login", s.login)
	s.router.POST("/api/auth/refresh", s.refreshToken)
	s.router.GET("/api/auth/callback", s.authCallback)
	s.router.POST("/api/auth/forgot-password", s.forgotPassword)
	s.router.POST("/api/auth/reset-password", s.resetPassword)

	// Public content (marketing pages)
	s.router.GET("/api/techniques", s.listTechniques)
	s.router.GET("/api/techniques/:slug", s.getTechnique)
	s.router.GET("/api/faq", s.listFAQ)

	// Public blog
	s.router.GET("/api/blog/posts", s.listBlogPosts)
	s.router.GET("/api/blog/posts/:slug", s.getBlogPost)

	// Newsletter
	s.router.POST("/api/newsletter/subscribe", s.subscribeNewsletter)
	s.router.POST("/api/newsletter/unsubscribe", s.unsubscribeNewsletter)

	// Contact form
	s.router.POST("/api/contact", s.submitContactMessage)

	// Investor deck access gate
	s.router.POST("/api/investor/access", s.verifyInvestorAccess)

	// Authenticated API routes (Supabase access token required)
	api := s.router.Group("/api")
	api.Use(JWTAuthMiddleware(s.supabase, s.config.Site.AdminEmail, s.logger))
	{
		// Auth endpoints
		api.GET("/auth/me", s.getCurrentUser)
		api.POST("/auth/logout", s.logout)
		api.PUT("/auth/password", s.updatePassword)

		// Personal dashboard
		api.GET("/practice/sessions", s.listPracticeSessions)
		api.POST("/practice/sessions", s.recordPracticeSession)
		api.GET("/practice/moods", s.listMoods)
		api.POST("/practice/moods", s.recordMood)
		api.GET("/practice/achievements", s.listAchievements)

		// Profile
		api.GET("/profile", s.getProfile)
		api.PUT("/profile", s.updateProfile)
		api.DELETE("/profile/data", s.deleteUserData)

		// Admin area
		admin := api.Group("/admin")
		admin.Use(AdminOnlyMiddleware(s.logger))
		{
			admin.GET("/blog/posts", s.adminListBlogPosts)
			admin.POST("/blog/posts", s.adminCreateBlogPost)
			admin.PUT("/blog/posts/:id", s.adminUpdateBlogPost)
			admin.DELETE("/blog/posts/:id", s.adminDeleteBlogPost)
			admin.POST("/blog/posts/:id/publish", s.adminPublishBlogPost)
			admin.POST("/blog/upload", s.adminUploadImage)

			admin.GET("/analytics/moods", s.adminMoodDistribution)
			admin.GET("/analytics/sessions", s.adminSessionsPerDay)
			admin.GET("/analytics/signups", s.adminSignupsPerDay)
			admin.GET("/analytics/newsletter", s.adminNewsletterGrowth)
			admin.GET("/analytics/heart-rate", s.adminHeartRateTrends)

			admin.GET("/newsletter/subscribers", s.adminListSubscribers)
			admin.GET("/messages", s.adminListMessages)
			admin.POST("/email/test", s.adminSendTestEmail)
		}
	}
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)

		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

// @Router /health [get]
// @Success 200 {object} map[string]interface{}
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "vayu-api",
		"version":   s.version,
	})
}

// GetDB returns the content database connection for use by workers
func (s *Server) GetDB() *gorm.DB {
	return s.db
}

// Start starts the HTTP server
func (s *Server) Start() error {
	port := ":8080"

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{
		Addr:              port,
		Handler:           s.router,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		ReadHeaderTimeout: 30 * time.Second,
		IdleTimeout:       300 * time.Second,
	}

	// Start server in goroutine
	go func() {
		s.logger.Info().Str("port", port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")

	if err := s.asynqClient.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("Error closing Asynq client")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	s.logger.Info().Msg("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	if s.analyticsService != nil {
		if err := s.analyticsService.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("Error closing analytics connection")
		}
	}

	// Close the content database to flush WAL writes
	if sqlDB, err := s.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			s.logger.Error().Err(err).Msg("Error closing database")
		}
	}

	s.logger.Info().Msg("Server shutdown complete")
	return nil
}
