// Package main provides the Lambda entry point for the AyurLens gateway.
//
// The Lambda serves the same mux as cmd/gateway behind API Gateway's HTTP
// API (payload format v2). Secrets are loaded from SSM Parameter Store at
// cold start:
//   - /ayurlens/prod/gemini-api-key
//   - /ayurlens/prod/razorpay-webhook-secret
//
// Env vars override SSM for local testing (GEMINI_API_KEY,
// RAZORPAY_WEBHOOK_SECRET).
package main

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog/log"

	"github.com/ayurlens/ayurlens-backend/internal/archive"
	"github.com/ayurlens/ayurlens-backend/internal/billing"
	"github.com/ayurlens/ayurlens-backend/internal/config"
	"github.com/ayurlens/ayurlens-backend/internal/gemini"
	"github.com/ayurlens/ayurlens-backend/internal/httpapi"
	"github.com/ayurlens/ayurlens-backend/internal/logging"
)

const version = "0.3.0"

var handler http.Handler

func init() {
	logging.InitLambda()

	ctx := context.Background()
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}

	cfg := config.Load()
	if err := cfg.LoadSecretsFromSSM(ctx, ssm.NewFromConfig(awsCfg)); err != nil {
		// Keep serving: the identify handler degrades to
		// SERVER_MISCONFIGURED instead of crash-looping the Lambda.
		log.Error().Err(err).Msg("Failed to load secrets from SSM")
	}
	if cfg.GeminiAPIKey == "" {
		log.Warn().Msg("No Gemini API key available; /identify will return SERVER_MISCONFIGURED")
	}

	client := gemini.NewClient(gemini.Options{
		APIKey:        cfg.GeminiAPIKey,
		Model:         cfg.Model,
		FallbackModel: cfg.FallbackModel,
		Timeout:       cfg.InferenceTimeout,
		MaxRetries:    cfg.MaxRetries,
		Temperature:   cfg.Temperature,
	})

	var webhook http.Handler
	if cfg.WebhookSecret == "" {
		log.Warn().Msg("No webhook secret available; webhook endpoint disabled")
	} else {
		if cfg.OrdersTable == "" {
			log.Fatal().Msg("AYURLENS_ORDERS_TABLE must be set when the webhook is enabled in Lambda")
		}
		store := billing.NewDynamoStore(dynamodb.NewFromConfig(awsCfg), cfg.OrdersTable)
		var archiver billing.PayloadArchiver
		if cfg.ArchiveBucket != "" {
			archiver = archive.NewS3Archiver(s3.NewFromConfig(awsCfg), cfg.ArchiveBucket)
		}
		webhook = billing.NewWebhookHandler(cfg.WebhookSecret, store, archiver)
	}

	mux := httpapi.NewMux(httpapi.RouterConfig{
		Identifier:      client,
		KeyConfigured:   cfg.GeminiAPIKey != "",
		MaxUploadBytes:  cfg.MaxUploadBytes,
		RequestDeadline: cfg.RequestDeadline,
		Webhook:         webhook,
		Version:         version,
	})
	handler = httpapi.Wrap(mux)
	log.Info().Str("model", cfg.Model).Msg("Gateway handler initialized")
}

func main() {
	adapter := httpadapter.NewV2(handler)
	lambda.Start(adapter.ProxyWithContext)
}
