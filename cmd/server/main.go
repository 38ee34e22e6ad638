package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	_ "github.com/lib/pq"

	"github.com/brightpath/campaign-monitor/internal/analysis"
	"github.com/brightpath/campaign-monitor/internal/api"
	"github.com/brightpath/campaign-monitor/internal/config"
	"github.com/brightpath/campaign-monitor/internal/notify"
	"github.com/brightpath/campaign-monitor/internal/ratelimit"
	"github.com/brightpath/campaign-monitor/internal/recommend"
	"github.com/brightpath/campaign-monitor/internal/repository/postgres"
)

func main() {
	log.Println("Starting campaign monitor server...")

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := db.PingContext(ctx); err != nil {
		cancel()
		log.Fatalf("Failed to ping database: %v", err)
	}
	cancel()
	log.Println("Connected to database")

	cache, err := api.NewAlertCache(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to configure alert cache: %v", err)
	}
	if cache != nil {
		log.Println("Alert cache enabled")
	}

	var publisher analysis.Publisher
	if cfg.Queue.QueueURL != "" {
		client, err := newSQSClient(context.Background(), cfg.Queue)
		if err != nil {
			log.Fatalf("Failed to configure queue client: %v", err)
		}
		publisher = notify.NewPublisher(client, cfg.Queue.QueueURL)
		log.Println("Notification publisher enabled")
	} else {
		log.Println("NOTIFICATION_QUEUE_URL not set - alerts will not be delivered")
	}

	var enricher analysis.Enricher
	if cfg.Recommend.BaseURL != "" {
		bucket := ratelimit.NewBucket(cfg.Recommend.RateCapacity, cfg.Recommend.RateRefillPerSec)
		enricher = recommend.NewClient(cfg.Recommend, bucket)
		log.Println("Recommendation enrichment enabled")
	} else {
		log.Println("RECOMMEND_BASE_URL not set - using built-in recommendations only")
	}

	results := postgres.NewResultRepo(db)
	service := analysis.NewService(
		postgres.NewCampaignRepo(db),
		postgres.NewMetricRepo(db),
		results,
		enricher,
		publisher,
		analysis.Config{
			DaysBack:     cfg.Analysis.DaysBack,
			MaxAttempts:  cfg.Analysis.MaxAttempts,
			Backoff:      cfg.Analysis.Backoff(),
			DashboardURL: cfg.Analysis.DashboardURL,
		},
	)

	handlers := api.NewHandlers(service, results, cache, db)
	router := api.NewRouter(handlers, cfg.Analysis.DashboardURL)
	server := api.NewServer(cfg.Server, router)

	go func() {
		log.Printf("Listening on %s", server.Addr())
		if err := server.ListenAndServe(); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	log.Println("Server stopped")
}

func newSQSClient(ctx context.Context, cfg config.QueueConfig) (*sqs.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return sqs.NewFromConfig(awsCfg), nil
}
