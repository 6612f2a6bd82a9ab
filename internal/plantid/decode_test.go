package plantid

import (
	"strings"
	"testing"
)

func TestDecode_PlainJSON(t *testing.T) {
	result, err := Decode(`{"plant":{"commonName":"Neem","confidence":"High"}}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Plant.CommonName != "Neem" {
		t.Errorf("expected Neem, got %q", result.Plant.CommonName)
	}
}

func TestDecode_FencedJSON(t *testing.T) {
	raw := "```json\n{\"plant\":{\"commonName\":\"Aloe vera\",\"confidence\":\"High\"}}\n```"
	result, err := Decode(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Plant.CommonName != "Aloe vera" {
		t.Errorf("expected Aloe vera, got %q", result.Plant.CommonName)
	}
	if result.Plant.Confidence != ConfidenceHigh {
		t.Errorf("expected High confidence, got %q", result.Plant.Confidence)
	}
}

func TestDecode_BareFences(t *testing.T) {
	raw := "```\n{\"commonName\":\"Ashwagandha\"}\n```"
	result, err := Decode(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Plant.CommonName != "Ashwagandha" {
		t.Errorf("expected Ashwagandha, got %q", result.Plant.CommonName)
	}
}

func TestDecode_JSONEmbeddedInProse(t *testing.T) {
	raw := "Here is the identification you asked for:\n{\"commonName\":\"Brahmi\"}\nHope this helps!"
	result, err := Decode(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Plant.CommonName != "Brahmi" {
		t.Errorf("expected Brahmi, got %q", result.Plant.CommonName)
	}
}

func TestDecode_NoJSON(t *testing.T) {
	if _, err := Decode("I cannot identify this plant."); err == nil {
		t.Fatal("expected error for prose-only output")
	}
}

func TestDecode_MalformedJSON(t *testing.T) {
	_, err := Decode(`{"commonName": "Tulsi"`)
	if err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestDecode_ErrorTruncatesPayload(t *testing.T) {
	raw := `{"commonName": ` + strings.Repeat("x", 5000)
	_, err := Decode(raw)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(err.Error()) > 600 {
		t.Errorf("error message should truncate model output, got %d bytes", len(err.Error()))
	}
}
