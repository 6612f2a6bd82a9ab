package gemini

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/ayurlens/ayurlens-backend/internal/plantid"
)

// IdentifyWithFallback tries the primary model and, only when its final
// error is an availability failure (HTTP 503 / UNAVAILABLE), retries once
// against the configured fallback model with the same image and prompt.
//
// Every other failure class propagates untouched: falling back on auth or
// malformed-output errors would mask configuration bugs behind a silent
// model switch. Single level only; the fallback's failure is final.
func (c *Client) IdentifyWithFallback(ctx context.Context, image []byte, mimeType string) (*plantid.Identification, error) {
	result, err := c.IdentifyWithModel(ctx, c.opts.Model, image, mimeType)
	if err == nil {
		return result, nil
	}

	if c.opts.FallbackModel == "" || c.opts.FallbackModel == c.opts.Model {
		return nil, err
	}
	if Classify(err) != ClassUnavailable {
		return nil, err
	}

	log.Warn().
		Err(err).
		Str("primary", c.opts.Model).
		Str("fallback", c.opts.FallbackModel).
		Msg("Primary model unavailable, retrying against fallback model")

	return c.IdentifyWithModel(ctx, c.opts.FallbackModel, image, mimeType)
}
