package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/muhammadolammi/resumeparser/internal/config"
	"github.com/muhammadolammi/resumeparser/internal/database"
	"github.com/muhammadolammi/resumeparser/internal/logger"
	"github.com/muhammadolammi/resumeparser/internal/matcher"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	workerConfig := &WorkerConfig{
		RABBITMQUrl: cfg.RabbitMQURL,
		Matcher: matcher.New(matcher.Config{
			TopKeywords:       cfg.TopKeywords,
			SpellingThreshold: cfg.SpellingThreshold,
		}),
		Logger: log,
	}

	if cfg.ReviewerEnabled() {
		reviewer, err := newAgentReviewer(ctx, cfg.GoogleAPIKey, cfg.ReviewModel)
		if err != nil {
			log.Warn("reviewer disabled", zap.Error(err))
		} else {
			workerConfig.Reviewer = reviewer
			log.Info("reviewer enabled", zap.String("model", cfg.ReviewModel))
		}
	}

	async := cfg.AsyncEnabled()
	if async {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("error opening db: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("error connecting to db: %w", err)
		}
		if err := database.Migrate(db); err != nil {
			return err
		}
		workerConfig.DB = database.New(db)

		r2Config := &R2Config{
			AccountID: cfg.R2AccountID,
			Bucket:    cfg.R2Bucket,
			AccessKey: cfg.R2AccessKey,
			SecretKey: cfg.R2SecretKey,
		}
		awsConfig, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(r2Config.AccessKey, r2Config.SecretKey, "")),
			awsconfig.WithRegion("auto"),
		)
		if err != nil {
			return fmt.Errorf("error creating aws config: %w", err)
		}
		workerConfig.Storage = newR2Storage(awsConfig, r2Config)

		conn, err := amqp.Dial(cfg.RabbitMQURL)
		if err != nil {
			return fmt.Errorf("error connecting to RabbitMQ: %w", err)
		}
		defer conn.Close()
		workerConfig.Broker = &rabbitBroker{conn: conn}
	} else {
		log.Info("DB_URL, RABBITMQ_URL or R2 settings missing, serving /parse-resumes/ only")
	}

	handler := NewHandler(workerConfig, async)
	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      SetupRouter(cfg, handler),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	if async {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Info("starting consumer worker pool", zap.Int("workers", cfg.Workers))
			workerConfig.StartConsumerWorkerPool(ctx, cfg.Workers)
		}()
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("starting resume parser", zap.String("address", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	wg.Wait()
	log.Info("server stopped")
	return nil
}
