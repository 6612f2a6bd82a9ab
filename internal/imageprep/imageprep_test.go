package imageprep

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestAllowed(t *testing.T) {
	for _, mime := range []string{"image/jpeg", "image/png", "image/webp", "application/octet-stream"} {
		if !Allowed(mime) {
			t.Errorf("expected %s to be allowed", mime)
		}
	}
	for _, mime := range []string{"image/gif", "image/heic", "text/plain", "", "video/mp4"} {
		if Allowed(mime) {
			t.Errorf("expected %s to be rejected", mime)
		}
	}
}

func TestDownscale_SmallImagePassesThrough(t *testing.T) {
	data := encodePNG(t, 100, 80)
	out, mime := Downscale(data, "image/png", MaxInlineDimension)
	if !bytes.Equal(out, data) {
		t.Error("small image should pass through unchanged")
	}
	if mime != "image/png" {
		t.Errorf("expected original MIME type, got %s", mime)
	}
}

func TestDownscale_LargeImageResized(t *testing.T) {
	data := encodePNG(t, 200, 100)
	out, mime := Downscale(data, "image/png", 50)
	if mime != "image/jpeg" {
		t.Fatalf("expected JPEG re-encode, got %s", mime)
	}
	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode resized: %v", err)
	}
	if img.Bounds().Dx() != 50 || img.Bounds().Dy() != 25 {
		t.Errorf("expected 50x25 preserving aspect ratio, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestDownscale_PortraitAspectRatio(t *testing.T) {
	data := encodePNG(t, 100, 200)
	out, _ := Downscale(data, "image/png", 50)
	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode resized: %v", err)
	}
	if img.Bounds().Dx() != 25 || img.Bounds().Dy() != 50 {
		t.Errorf("expected 25x50, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestDownscale_UndecodablePassesThrough(t *testing.T) {
	data := []byte("not an image at all")
	out, mime := Downscale(data, "image/png", 50)
	if !bytes.Equal(out, data) || mime != "image/png" {
		t.Error("undecodable payload should pass through unchanged")
	}
}

func TestDownscale_UnknownMIMEPassesThrough(t *testing.T) {
	data := []byte{0x00, 0x01}
	out, mime := Downscale(data, "application/octet-stream", 50)
	if !bytes.Equal(out, data) || mime != "application/octet-stream" {
		t.Error("octet-stream should pass through unchanged")
	}
}

func TestExtractCaptureMeta_NoEXIF(t *testing.T) {
	if meta := ExtractCaptureMeta(encodePNG(t, 10, 10)); meta != nil {
		t.Errorf("expected nil for image without EXIF, got %#v", meta)
	}
}
