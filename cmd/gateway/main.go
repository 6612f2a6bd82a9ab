// Package main runs the AyurLens API gateway as a local HTTP server:
// plant identification uploads, Razorpay payment webhooks, and a health
// endpoint. The same handlers ship to Lambda via cmd/identify-lambda.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ayurlens/ayurlens-backend/internal/archive"
	"github.com/ayurlens/ayurlens-backend/internal/billing"
	"github.com/ayurlens/ayurlens-backend/internal/config"
	"github.com/ayurlens/ayurlens-backend/internal/gemini"
	"github.com/ayurlens/ayurlens-backend/internal/httpapi"
	"github.com/ayurlens/ayurlens-backend/internal/logging"
)

const version = "0.3.0"

var (
	portFlag  int
	modelFlag string
)

var rootCmd = &cobra.Command{
	Use:   "gateway",
	Short: "AyurLens plant identification API gateway",
	Long: `The AyurLens gateway accepts plant photo uploads, identifies the plant
via Gemini, and returns medicinal-use information. It also processes
Razorpay payment webhooks for credit packs and subscriptions.

Configuration comes from the environment (GEMINI_API_KEY, GEMINI_MODEL,
RAZORPAY_WEBHOOK_SECRET, AYURLENS_ORDERS_TABLE, AYURLENS_ARCHIVE_BUCKET).

Examples:
  gateway --port 8080
  gateway --model gemini-3-pro-preview`,
	Run: runServer,
}

func init() {
	rootCmd.Flags().IntVarP(&portFlag, "port", "p", 8080, "Port to listen on")
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", "", "Override the primary Gemini model")
}

func main() {
	logging.Init()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) {
	cfg := config.Load()
	if modelFlag != "" {
		cfg.Model = modelFlag
	}

	if cfg.GeminiAPIKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set; /identify will return SERVER_MISCONFIGURED")
	} else {
		// Best-effort startup probe. A failed probe is logged, not fatal:
		// rate limits at boot should not keep the gateway down.
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		if err := gemini.ValidateAPIKey(ctx, cfg.GeminiAPIKey, cfg.Model); err != nil {
			log.Warn().Err(err).Msg("API key validation probe failed")
		} else {
			log.Info().Msg("Gemini API key validated")
		}
		cancel()
	}

	client := gemini.NewClient(gemini.Options{
		APIKey:        cfg.GeminiAPIKey,
		Model:         cfg.Model,
		FallbackModel: cfg.FallbackModel,
		Timeout:       cfg.InferenceTimeout,
		MaxRetries:    cfg.MaxRetries,
		Temperature:   cfg.Temperature,
	})

	webhook, err := buildWebhook(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Webhook setup failed")
	}

	mux := httpapi.NewMux(httpapi.RouterConfig{
		Identifier:      client,
		KeyConfigured:   cfg.GeminiAPIKey != "",
		MaxUploadBytes:  cfg.MaxUploadBytes,
		RequestDeadline: cfg.RequestDeadline,
		Webhook:         webhook,
		Version:         version,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", portFlag),
		Handler:      httpapi.Wrap(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	log.Info().Int("port", portFlag).Str("model", cfg.Model).Msg("Starting gateway")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

// buildWebhook assembles the Razorpay webhook handler, or nil when no
// webhook secret is configured. The order store is DynamoDB when
// AYURLENS_ORDERS_TABLE is set, in-memory otherwise (local development).
func buildWebhook(cfg config.Config) (http.Handler, error) {
	if cfg.WebhookSecret == "" {
		log.Warn().Msg("RAZORPAY_WEBHOOK_SECRET is not set; webhook endpoint disabled")
		return nil, nil
	}

	var store billing.OrderStore = billing.NewMemoryStore()
	var archiver billing.PayloadArchiver

	if cfg.OrdersTable == "" {
		log.Warn().Msg("AYURLENS_ORDERS_TABLE is not set; using in-memory order store")
	}
	if cfg.OrdersTable != "" || cfg.ArchiveBucket != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}
		if cfg.OrdersTable != "" {
			store = billing.NewDynamoStore(dynamodb.NewFromConfig(awsCfg), cfg.OrdersTable)
			log.Info().Str("table", cfg.OrdersTable).Msg("Using DynamoDB order store")
		}
		if cfg.ArchiveBucket != "" {
			archiver = archive.NewS3Archiver(s3.NewFromConfig(awsCfg), cfg.ArchiveBucket)
			log.Info().Str("bucket", cfg.ArchiveBucket).Msg("Webhook payload archiving enabled")
		}
	}

	return billing.NewWebhookHandler(cfg.WebhookSecret, store, archiver), nil
}
