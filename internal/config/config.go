// Package config loads gateway configuration from environment variables,
// with SSM Parameter Store fallback for secrets when running in Lambda.
package config

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"
)

// Defaults for tunable parameters. Secrets have no defaults.
const (
	DefaultModel         = "gemini-3-flash-preview"
	DefaultFallbackModel = "gemini-2.5-flash"

	DefaultInferenceTimeout = 10 * time.Second
	DefaultMaxRetries       = 2
	DefaultTemperature      = 0.2
	DefaultRequestDeadline  = 60 * time.Second
	DefaultMaxUploadBytes   = 8 << 20 // 8 MB
)

// Config holds everything the gateway needs at runtime.
type Config struct {
	// Gemini inference provider.
	GeminiAPIKey     string
	Model            string
	FallbackModel    string
	InferenceTimeout time.Duration
	MaxRetries       int
	Temperature      float64

	// Identify request handling.
	RequestDeadline time.Duration
	MaxUploadBytes  int64

	// Razorpay webhook processing.
	WebhookSecret string

	// Optional AWS resources. Empty means the feature is disabled
	// (memory order store, no payload archive).
	OrdersTable   string
	ArchiveBucket string
}

// Load reads configuration from the environment. Missing secrets are not an
// error here: the identify handler reports SERVER_MISCONFIGURED per request
// and the caller is expected to log a startup warning.
func Load() Config {
	cfg := Config{
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		Model:            envOr("GEMINI_MODEL", DefaultModel),
		FallbackModel:    envOr("GEMINI_FALLBACK_MODEL", DefaultFallbackModel),
		InferenceTimeout: envMillis("GEMINI_TIMEOUT_MS", DefaultInferenceTimeout),
		MaxRetries:       envInt("GEMINI_MAX_RETRIES", DefaultMaxRetries),
		Temperature:      envFloat("GEMINI_TEMPERATURE", DefaultTemperature),
		RequestDeadline:  envMillis("AYURLENS_REQUEST_DEADLINE_MS", DefaultRequestDeadline),
		MaxUploadBytes:   int64(envInt("AYURLENS_MAX_UPLOAD_BYTES", DefaultMaxUploadBytes)),
		WebhookSecret:    os.Getenv("RAZORPAY_WEBHOOK_SECRET"),
		OrdersTable:      os.Getenv("AYURLENS_ORDERS_TABLE"),
		ArchiveBucket:    os.Getenv("AYURLENS_ARCHIVE_BUCKET"),
	}
	return cfg
}

// LoadSecretsFromSSM fills in GeminiAPIKey and WebhookSecret from SSM
// Parameter Store when the environment did not provide them. Parameter names
// can be overridden via SSM_GEMINI_API_KEY_PARAM / SSM_WEBHOOK_SECRET_PARAM.
// Used at Lambda cold start; local runs use plain env vars.
func (c *Config) LoadSecretsFromSSM(ctx context.Context, client *ssm.Client) error {
	if c.GeminiAPIKey == "" {
		value, err := getParameter(ctx, client, envOr("SSM_GEMINI_API_KEY_PARAM", "/ayurlens/prod/gemini-api-key"))
		if err != nil {
			return err
		}
		c.GeminiAPIKey = value
		log.Info().Msg("Gemini API key loaded from SSM")
	}

	if c.WebhookSecret == "" {
		value, err := getParameter(ctx, client, envOr("SSM_WEBHOOK_SECRET_PARAM", "/ayurlens/prod/razorpay-webhook-secret"))
		if err != nil {
			return err
		}
		c.WebhookSecret = value
		log.Info().Msg("Razorpay webhook secret loaded from SSM")
	}

	return nil
}

func getParameter(ctx context.Context, client *ssm.Client, name string) (string, error) {
	result, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &name,
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", err
	}
	return *result.Parameter.Value, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("var", key).Str("value", v).Msg("Ignoring non-integer environment value")
		return fallback
	}
	return n
}

func envMillis(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms <= 0 {
		log.Warn().Str("var", key).Str("value", v).Msg("Ignoring invalid millisecond environment value")
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Warn().Str("var", key).Str("value", v).Msg("Ignoring non-numeric environment value")
		return fallback
	}
	return f
}
