package gemini

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/ayurlens/ayurlens-backend/internal/metrics"
)

// ValidateAPIKey verifies the configured credential with a minimal
// GenerateContent call against the model the gateway will actually serve
// with, through the official SDK. Run once at startup so a revoked key or a
// mistyped model name is reported before the first user request, not
// discovered through a failed identification.
func ValidateAPIKey(ctx context.Context, apiKey, model string) error {
	if apiKey == "" {
		return ErrMissingAPIKey
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := client.Models.GenerateContent(ctx, model, genai.Text("hi"), nil)
	elapsed := time.Since(start)

	result := "success"
	defer func() {
		metrics.New("AyurLens").
			Dimension("Result", result).
			Metric("ApiKeyValidationMs", float64(elapsed.Milliseconds()), metrics.UnitMilliseconds).
			Count("ApiKeyValidations").
			Flush()
	}()

	if err != nil {
		var apiErr *genai.APIError
		if errors.As(err, &apiErr) {
			switch classifyStatus(apiErr.Code, apiErr.Status) {
			case ClassRateLimited:
				result = "rate_limited"
			case ClassUnavailable, ClassTransient:
				result = "provider_error"
			default:
				result = "invalid"
			}
		} else {
			result = "network_error"
		}
		log.Error().Err(err).Str("result", result).Msg("API key validation failed")
		return err
	}

	if resp == nil || len(resp.Candidates) == 0 {
		result = "empty_response"
		log.Warn().Msg("API key validation returned empty response")
		return errors.New("gemini: validation returned empty response")
	}

	log.Info().Dur("duration", elapsed).Msg("API key validated")
	return nil
}
