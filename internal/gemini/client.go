// Package gemini calls the Gemini generateContent REST endpoint for plant
// identification. It uses direct HTTP instead of the Go SDK because the
// retry/fallback policy needs the raw HTTP status of every failure; the SDK
// folds those into opaque errors.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ayurlens/ayurlens-backend/internal/metrics"
	"github.com/ayurlens/ayurlens-backend/internal/plantid"
)

// defaultBaseURL is the Gemini REST API base URL.
const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// backoffCeiling bounds the exponential backoff between attempts.
const backoffCeiling = 3 * time.Second

// Options configures a Client. Zero values fall back to the package
// defaults; BaseURL and HTTPClient exist so tests can point the client at a
// mock server.
type Options struct {
	APIKey        string
	Model         string
	FallbackModel string
	Timeout       time.Duration // per-attempt budget
	MaxRetries    int           // extra attempts after the first
	Temperature   float64
	BaseURL       string
	HTTPClient    *http.Client
}

// Client identifies plants from photos via the Gemini API.
type Client struct {
	opts       Options
	httpClient *http.Client
}

// NewClient creates a Client. The API key is checked per call, not here, so
// a misconfigured process can still start and report the problem per
// request.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		// No client-level timeout: each attempt carries its own deadline
		// through the request context.
		httpClient = &http.Client{}
	}
	return &Client{opts: opts, httpClient: httpClient}
}

// --- REST API request/response types ---

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string    `json:"text,omitempty"`
	InlineData *blobData `json:"inlineData,omitempty"`
}

type blobData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64 encoded
}

type generationConfig struct {
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
	Error      *apiStatus  `json:"error,omitempty"`
}

type candidate struct {
	Content content `json:"content"`
}

type apiStatus struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Identify runs the identification against the configured primary model
// under the retry budget. Fails fast with ErrMissingAPIKey when no
// credential is configured.
func (c *Client) Identify(ctx context.Context, image []byte, mimeType string) (*plantid.Identification, error) {
	return c.IdentifyWithModel(ctx, c.opts.Model, image, mimeType)
}

// IdentifyWithModel is Identify against an explicit model identifier.
// Transient failures are retried up to MaxRetries extra attempts with
// exponential backoff min(1s·attempt², 3s); the last transient error is
// surfaced after the budget is exhausted.
func (c *Client) IdentifyWithModel(ctx context.Context, model string, image []byte, mimeType string) (*plantid.Identification, error) {
	if c.opts.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	var lastErr error
	attempts := c.opts.MaxRetries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := c.attempt(ctx, model, image, mimeType)
		if err == nil {
			return result, nil
		}
		lastErr = err

		class := Classify(err)
		if !class.Retryable() || attempt == attempts {
			break
		}
		// Stop retrying when the request-level deadline already elapsed.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		delay := backoff(attempt)
		log.Warn().
			Err(err).
			Str("model", model).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Msg("Inference attempt failed, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, lastErr
}

// backoff returns min(1s·attempt², 3s).
func backoff(attempt int) time.Duration {
	d := time.Duration(attempt*attempt) * time.Second
	if d > backoffCeiling {
		return backoffCeiling
	}
	return d
}

// attempt performs one generateContent call under the per-attempt timeout.
func (c *Client) attempt(ctx context.Context, model string, image []byte, mimeType string) (*plantid.Identification, error) {
	startTime := time.Now()

	reqBody := generateRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{InlineData: &blobData{
					MIMEType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(image),
				}},
				{Text: plantid.BuildIdentifyPrompt()},
			},
		}},
		GenerationConfig: &generationConfig{Temperature: c.opts.Temperature},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.opts.BaseURL, model, c.opts.APIKey)
	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	duration := time.Since(startTime)
	if err != nil {
		// Cancelling the context aborts the in-flight call; a timed-out
		// attempt does not leak its socket.
		c.emitAttempt(model, "timeout", duration)
		return nil, &APIError{Model: model, Class: ClassTransient, Err: err}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		c.emitAttempt(model, "read_error", duration)
		return nil, &APIError{Model: model, Class: ClassTransient, Err: err}
	}

	log.Debug().
		Str("model", model).
		Int("status", httpResp.StatusCode).
		Dur("duration", duration).
		Msg("Gemini API response")

	if httpResp.StatusCode != http.StatusOK {
		marker := statusMarker(respBody)
		class := classifyStatus(httpResp.StatusCode, marker)
		c.emitAttempt(model, "http_"+class.String(), duration)
		return nil, &APIError{
			Model:      model,
			StatusCode: httpResp.StatusCode,
			Status:     marker,
			Class:      class,
			Body:       truncate(string(respBody), 500),
			Err:        fmt.Errorf("API returned status %d", httpResp.StatusCode),
		}
	}

	var resp generateResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		c.emitAttempt(model, "bad_envelope", duration)
		return nil, &APIError{Model: model, Class: ClassTransient, Err: fmt.Errorf("parse response envelope: %w", err)}
	}
	if resp.Error != nil {
		class := classifyStatus(resp.Error.Code, resp.Error.Status)
		c.emitAttempt(model, "api_"+class.String(), duration)
		return nil, &APIError{
			Model:      model,
			StatusCode: resp.Error.Code,
			Status:     resp.Error.Status,
			Class:      class,
			Body:       truncate(resp.Error.Message, 500),
			Err:        fmt.Errorf("API error: %s", resp.Error.Status),
		}
	}

	text := candidateText(resp)
	if text == "" {
		c.emitAttempt(model, "no_text", duration)
		return nil, &APIError{Model: model, Class: ClassTransient, Err: fmt.Errorf("no text returned")}
	}

	result, err := plantid.Decode(text)
	if err != nil {
		// Deterministic: the same output parses the same way every time.
		c.emitAttempt(model, "bad_output", duration)
		return nil, &APIError{Model: model, Class: ClassBadOutput, Err: err}
	}

	c.emitAttempt(model, "success", duration)
	log.Info().
		Str("model", model).
		Str("commonName", result.Plant.CommonName).
		Str("confidence", result.Plant.Confidence).
		Dur("duration", duration).
		Msg("Identification complete")

	return result, nil
}

// candidateText concatenates the text parts of every candidate.
func candidateText(resp generateResponse) string {
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			sb.WriteString(p.Text)
		}
	}
	return strings.TrimSpace(sb.String())
}

// statusMarker pulls the provider's status string (e.g. "UNAVAILABLE") out
// of an error response body, best effort.
func statusMarker(body []byte) string {
	var envelope struct {
		Error *apiStatus `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error == nil {
		return ""
	}
	return envelope.Error.Status
}

func (c *Client) emitAttempt(model, result string, duration time.Duration) {
	metrics.New("AyurLens").
		Dimension("Result", result).
		Property("Model", model).
		Metric("InferenceAttemptMs", float64(duration.Milliseconds()), metrics.UnitMilliseconds).
		Count("InferenceAttempts").
		Flush()
}

// truncate returns the first n bytes of s, appending "..." if truncated.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
