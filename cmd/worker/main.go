package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/vayu-prana/vayu/internal/blog"
	"github.com/vayu-prana/vayu/internal/config"
	"github.com/vayu-prana/vayu/internal/logger"
	"github.com/vayu-prana/vayu/internal/newsletter"
	"github.com/vayu-prana/vayu/internal/supabase"
	"github.com/vayu-prana/vayu/internal/tasks"
	"github.com/vayu-prana/vayu/internal/workers"
)

var version = "dev" // Will be set during build with -ldflags

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.GetLogger()

	log.Info().Str("version", version).Msg("Starting Vayu Asynq worker")

	supaClient, err := supabase.New(supabase.Config{
		URL:        cfg.Supabase.URL,
		AnonKey:    cfg.Supabase.AnonKey,
		ServiceKey: cfg.Supabase.ServiceKey,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create backend client")
	}

	blogService := blog.NewService(supaClient, log)
	newsService := newsletter.NewService(supaClient, log)

	// Initialize Asynq client (for enqueueing fan-out tasks)
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr: cfg.Redis.Address,
	})
	defer asynqClient.Close()

	// Initialize Asynq server
	asynqServer := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr: cfg.Redis.Address,
		},
		asynq.Config{
			Concurrency: 10, // Number of concurrent workers
			Queues: map[string]int{
				"critical": 6, // 60% of workers for critical tasks
				"default":  3, // 30% of workers for default queue
				"low":      1, // 10% of workers for low priority
			},
			// Logging
			Logger: &asynqLogger{log: log},
		},
	)

	// Register task handlers
	mux := asynq.NewServeMux()

	mux.HandleFunc(tasks.TypeSendEmail, func(ctx context.Context, t *asynq.Task) error {
		return workers.HandleSendEmail(ctx, t, supaClient, log)
	})
	mux.HandleFunc(tasks.TypeNotifyBlogPost, func(ctx context.Context, t *asynq.Task) error {
		return workers.HandleNotifyBlogPost(ctx, t, asynqClient, blogService, newsService, cfg.Site.URL, log)
	})
	mux.HandleFunc(tasks.TypeNewsletterDigest, func(ctx context.Context, t *asynq.Task) error {
		return workers.HandleNewsletterDigest(ctx, t, asynqClient, blogService, newsService, cfg.Site.URL, log)
	})

	// Start digest scheduler goroutine (checks every minute whether a digest is due)
	go workers.StartDigestScheduler(asynqClient, cfg.Site.DigestSchedule, log)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		log.Info().Msg("Starting Asynq worker server...")
		if err := asynqServer.Run(mux); err != nil {
			log.Fatal().Err(err).Msg("Asynq worker server failed")
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Info().Msg("Received shutdown signal, shutting down gracefully...")

	// Shutdown Asynq server gracefully
	log.Info().Msg("Stopping Asynq worker - waiting for tasks to finish (30s timeout)...")
	asynqServer.Shutdown()

	log.Info().Msg("Worker shutdown complete")
}

// asynqLogger is a wrapper to make zerolog compatible with Asynq's logger interface
type asynqLogger struct {
	log zerolog.Logger
}

func (l *asynqLogger) Debug(args ...interface{}) {
	l.log.Debug().Msg(fmt.Sprint(args...))
}

func (l *asynqLogger) Info(args ...interface{}) {
	l.log.Info().Msg(fmt.Sprint(args...))
}

func (l *asynqLogger) Warn(args ...interface{}) {
	l.log.Warn().Msg(fmt.Sprint(args...))
}

func (l *asynqLogger) Error(args ...interface{}) {
	l.log.Error().Msg(fmt.Sprint(args...))
}

func (l *asynqLogger) Fatal(args ...interface{}) {
	l.log.Fatal().Msg(fmt.Sprint(args...))
}
