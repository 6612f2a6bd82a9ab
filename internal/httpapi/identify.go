package httpapi

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ayurlens/ayurlens-backend/internal/gemini"
	"github.com/ayurlens/ayurlens-backend/internal/imageprep"
	"github.com/ayurlens/ayurlens-backend/internal/metrics"
	"github.com/ayurlens/ayurlens-backend/internal/plantid"
)

// imageField is the multipart form field the client uploads under.
const imageField = "image"

// Identifier runs a plant identification over raw image bytes. *gemini.Client
// satisfies it; tests substitute a stub.
type Identifier interface {
	IdentifyWithFallback(ctx context.Context, image []byte, mimeType string) (*plantid.Identification, error)
}

// IdentifyHandler accepts a multipart image upload and returns the
// identification envelope.
type IdentifyHandler struct {
	identifier    Identifier
	keyConfigured bool
	maxBytes      int64
	deadline      time.Duration
}

// NewIdentifyHandler wires the handler. keyConfigured reflects whether an
// inference API key was loaded at startup; when false the handler refuses
// uploads immediately instead of failing on every inference call.
func NewIdentifyHandler(identifier Identifier, keyConfigured bool, maxBytes int64, deadline time.Duration) *IdentifyHandler {
	return &IdentifyHandler{
		identifier:    identifier,
		keyConfigured: keyConfigured,
		maxBytes:      maxBytes,
		deadline:      deadline,
	}
}

// identifyResult is the data payload for a successful identification.
type identifyResult struct {
	Identified *plantid.Identification `json:"identified"`
	Capture    *imageprep.CaptureMeta  `json:"capture,omitempty"`
}

func (h *IdentifyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, ErrInvalidRequest, "only POST is supported")
		return
	}
	if !h.keyConfigured {
		respondError(w, ErrServerMisconfigured, string(ErrServerMisconfigured))
		return
	}

	// All upload validation happens before any network call: a bad request
	// must never consume an inference attempt.
	image, mimeType, kind, details := h.readUpload(r)
	if kind != "" {
		respondError(w, kind, details)
		return
	}

	rec := metrics.New("AyurLens")
	defer rec.Flush()
	rec.Property("requestId", RequestID(r.Context()))

	capture := imageprep.ExtractCaptureMeta(image)

	scaled, scaledMIME := imageprep.Downscale(image, mimeType, imageprep.MaxInlineDimension)

	ctx, cancel := context.WithTimeout(r.Context(), h.deadline)
	defer cancel()

	start := time.Now()
	identified, err := h.identifier.IdentifyWithFallback(ctx, scaled, scaledMIME)
	rec.Metric("IdentifyMs", float64(time.Since(start).Milliseconds()), metrics.UnitMilliseconds)
	if err != nil {
		kind := classifyIdentifyError(ctx, err)
		details := string(kind)
		if ctx.Err() != nil {
			details = "request timed out"
		}
		rec.Dimension("Outcome", string(kind))
		rec.Count("IdentifyFailure")
		log.Error().Err(err).Str("outcome", string(kind)).Msg("Identification failed")
		respondError(w, kind, details)
		return
	}

	rec.Count("IdentifySuccess")
	respondData(w, identifyResult{Identified: identified, Capture: capture})
}

// readUpload parses and validates the multipart upload. On failure it
// returns the error kind and client-safe details; on success kind is "".
func (h *IdentifyHandler) readUpload(r *http.Request) (image []byte, mimeType string, kind ErrorKind, details string) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" {
		return nil, "", ErrInvalidRequest, "expected multipart/form-data"
	}

	r.Body = http.MaxBytesReader(nil, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", ErrInvalidRequest, "image exceeds the upload size limit"
		}
		return nil, "", ErrInvalidRequest, "malformed multipart body"
	}

	files := r.MultipartForm.File[imageField]
	switch len(files) {
	case 0:
		return nil, "", ErrInvalidRequest, "missing file field " + imageField
	case 1:
	default:
		return nil, "", ErrInvalidRequest, "expected exactly one file under field " + imageField
	}

	file, err := files[0].Open()
	if err != nil {
		return nil, "", ErrInvalidRequest, "could not read uploaded file"
	}
	defer file.Close()

	declared := strings.ToLower(strings.TrimSpace(files[0].Header.Get("Content-Type")))
	if declared == "" {
		declared = "application/octet-stream"
	}
	if semi := strings.Index(declared, ";"); semi >= 0 {
		declared = strings.TrimSpace(declared[:semi])
	}
	if !imageprep.Allowed(declared) {
		return nil, "", ErrUnsupportedMediaType, "unsupported image type " + declared
	}

	data, err := io.ReadAll(file)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", ErrInvalidRequest, "image exceeds the upload size limit"
		}
		return nil, "", ErrInvalidRequest, "could not read uploaded file"
	}
	if len(data) == 0 {
		return nil, "", ErrInvalidRequest, "uploaded file is empty"
	}
	return data, declared, "", ""
}

// classifyIdentifyError maps inference failures to the response taxonomy.
// The outer deadline is checked first: once the request budget is spent the
// provider error underneath is incidental.
func classifyIdentifyError(ctx context.Context, err error) ErrorKind {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return ErrIdentificationFailed
	}
	switch gemini.Classify(err) {
	case gemini.ClassRateLimited:
		return ErrRateLimited
	case gemini.ClassUnavailable, gemini.ClassModelNotFound:
		// A nonexistent model is unavailable from the client's point of
		// view; the distinction matters for fallback, not for the response.
		return ErrModelUnavailable
	default:
		return ErrIdentificationFailed
	}
}
