// Package imageprep prepares uploaded photos for inference: MIME allow-list
// checks, best-effort EXIF capture metadata, and downscaling of oversized
// images before they are base64-inlined into the provider request.
package imageprep

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"time"

	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

// MaxInlineDimension is the largest width/height sent to the provider.
// Phone cameras produce 4000px+ images; the model does not need them and the
// base64 inline payload is billed per byte.
const MaxInlineDimension = 1536

// jpegQuality for re-encoded downscaled images.
const jpegQuality = 85

// AllowedMIMETypes is the upload allow-list. application/octet-stream is
// accepted for local tooling that does not set a content type.
var AllowedMIMETypes = map[string]bool{
	"image/jpeg":               true,
	"image/png":                true,
	"image/webp":               true,
	"application/octet-stream": true,
}

// Allowed reports whether the declared MIME type may be uploaded.
func Allowed(mimeType string) bool {
	return AllowedMIMETypes[mimeType]
}

// CaptureMeta is EXIF metadata surfaced alongside an identification so the
// app can tag where and when the plant was photographed.
type CaptureMeta struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	CapturedAt time.Time `json:"capturedAt,omitempty"`
	HasGPS     bool      `json:"hasGps"`
}

// ExtractCaptureMeta reads GPS coordinates and the capture timestamp from
// the upload's EXIF data. Best effort: images without EXIF (screenshots,
// PNG exports) return nil with no error.
func ExtractCaptureMeta(data []byte) *CaptureMeta {
	exifData, err := imagemeta.Decode(bytes.NewReader(data))
	if err != nil {
		log.Debug().Err(err).Msg("No EXIF metadata in upload")
		return nil
	}

	meta := &CaptureMeta{}

	gps := exifData.GPS
	if gps.Latitude() != 0 || gps.Longitude() != 0 {
		meta.Latitude = gps.Latitude()
		meta.Longitude = gps.Longitude()
		meta.HasGPS = true
	}

	// Priority: DateTimeOriginal > CreateDate > ModifyDate.
	switch {
	case !exifData.DateTimeOriginal().IsZero():
		meta.CapturedAt = exifData.DateTimeOriginal()
	case !exifData.CreateDate().IsZero():
		meta.CapturedAt = exifData.CreateDate()
	case !exifData.ModifyDate().IsZero():
		meta.CapturedAt = exifData.ModifyDate()
	}

	if !meta.HasGPS && meta.CapturedAt.IsZero() {
		return nil
	}
	return meta
}

// Downscale resizes an image whose larger side exceeds maxDimension,
// re-encoding as JPEG. Images already within bounds, undecodable payloads,
// and unknown formats pass through unchanged — inference decides what it
// can do with them.
func Downscale(data []byte, mimeType string, maxDimension int) ([]byte, string) {
	var img image.Image
	var err error

	switch mimeType {
	case "image/jpeg":
		img, err = jpeg.Decode(bytes.NewReader(data))
	case "image/png":
		img, err = png.Decode(bytes.NewReader(data))
	case "image/webp":
		img, err = webp.Decode(bytes.NewReader(data))
	default:
		return data, mimeType
	}
	if err != nil {
		log.Debug().Err(err).Str("mime", mimeType).Msg("Upload not decodable, passing through")
		return data, mimeType
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= maxDimension && height <= maxDimension {
		return data, mimeType
	}

	newWidth, newHeight := fitDimensions(width, height, maxDimension)
	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: jpegQuality}); err != nil {
		log.Warn().Err(err).Msg("Downscale re-encode failed, passing original through")
		return data, mimeType
	}

	log.Debug().
		Int("orig_width", width).
		Int("orig_height", height).
		Int("new_width", newWidth).
		Int("new_height", newHeight).
		Int("orig_bytes", len(data)).
		Int("new_bytes", buf.Len()).
		Msg("Upload downscaled for inference")

	return buf.Bytes(), "image/jpeg"
}

// fitDimensions scales (width, height) to fit maxDimension preserving
// aspect ratio.
func fitDimensions(width, height, maxDimension int) (int, int) {
	if width > height {
		return maxDimension, int(float64(height) * float64(maxDimension) / float64(width))
	}
	return int(float64(width) * float64(maxDimension) / float64(height)), maxDimension
}
