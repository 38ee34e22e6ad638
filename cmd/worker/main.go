package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/brightpath/campaign-monitor/internal/config"
	"github.com/brightpath/campaign-monitor/internal/notify"
)

func main() {
	log.Println("Starting notification worker...")

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Queue.QueueURL == "" {
		log.Fatal("NOTIFICATION_QUEUE_URL is required")
	}
	if cfg.Email.From == "" {
		log.Fatal("EMAIL_FROM is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sender, err := notify.NewSESSender(ctx, cfg.Email)
	if err != nil {
		log.Fatalf("Failed to configure email sender: %v", err)
	}

	queueClient, err := newSQSClient(ctx, cfg.Queue)
	if err != nil {
		log.Fatalf("Failed to configure queue client: %v", err)
	}

	consumer := notify.NewConsumer(queueClient, cfg.Queue.QueueURL, sender, cfg.Email.From, cfg.Queue.Prefetch)
	consumer.Start(ctx)
	log.Printf("Consuming from %s (prefetch %d)", cfg.Queue.QueueURL, cfg.Queue.Prefetch)

	// Heartbeat so a silent queue still shows liveness in the logs.
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				log.Println("Worker heartbeat - consumer running...")
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	consumer.Stop()
	cancel()
	log.Println("Worker stopped")
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
