package plantid

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
)

func TestSanitize_EmptyInput(t *testing.T) {
	result := Sanitize(map[string]any{})

	if result.Plant.CommonName != UnknownValue {
		t.Errorf("expected common name %q, got %q", UnknownValue, result.Plant.CommonName)
	}
	if result.Plant.ScientificName != UnknownValue {
		t.Errorf("expected scientific name %q, got %q", UnknownValue, result.Plant.ScientificName)
	}
	if result.Plant.Confidence != ConfidenceUnknown {
		t.Errorf("expected confidence %q, got %q", ConfidenceUnknown, result.Plant.Confidence)
	}
	if result.Plant.MedicinalUses == nil || len(result.Plant.MedicinalUses) != 0 {
		t.Errorf("expected empty non-nil medicinalUses, got %#v", result.Plant.MedicinalUses)
	}
	if result.Plant.Cautions == nil || len(result.Plant.Cautions) != 0 {
		t.Errorf("expected empty non-nil cautions, got %#v", result.Plant.Cautions)
	}
	if result.Plant.References == nil || len(result.Plant.References) != 0 {
		t.Errorf("expected empty non-nil references, got %#v", result.Plant.References)
	}
}

func TestSanitize_NilMap(t *testing.T) {
	result := Sanitize(nil)
	if result.Plant.CommonName != UnknownValue {
		t.Errorf("expected common name %q, got %q", UnknownValue, result.Plant.CommonName)
	}
}

func TestSanitize_AcceptsPlantWrapper(t *testing.T) {
	wrapped := Sanitize(map[string]any{
		"plant": map[string]any{"commonName": "Aloe vera"},
	})
	bare := Sanitize(map[string]any{"commonName": "Aloe vera"})

	if wrapped.Plant.CommonName != "Aloe vera" {
		t.Errorf("wrapped: expected Aloe vera, got %q", wrapped.Plant.CommonName)
	}
	if bare.Plant.CommonName != "Aloe vera" {
		t.Errorf("bare: expected Aloe vera, got %q", bare.Plant.CommonName)
	}
}

func TestSanitize_TrimsStrings(t *testing.T) {
	result := Sanitize(map[string]any{
		"commonName":     "  Tulsi  ",
		"scientificName": "\tOcimum tenuiflorum\n",
	})

	if result.Plant.CommonName != "Tulsi" {
		t.Errorf("expected trimmed common name, got %q", result.Plant.CommonName)
	}
	if result.Plant.ScientificName != "Ocimum tenuiflorum" {
		t.Errorf("expected trimmed scientific name, got %q", result.Plant.ScientificName)
	}
}

func TestSanitize_NonStringIdentityFields(t *testing.T) {
	for _, value := range []any{nil, 42.0, true, []any{"x"}, map[string]any{}} {
		result := Sanitize(map[string]any{"commonName": value})
		if result.Plant.CommonName != UnknownValue {
			t.Errorf("commonName=%#v: expected %q, got %q", value, UnknownValue, result.Plant.CommonName)
		}
	}
}

func TestSanitize_ConfidenceLabels(t *testing.T) {
	cases := map[string]string{
		"High":   ConfidenceHigh,
		"high":   ConfidenceHigh,
		" LOW ":  ConfidenceLow,
		"Medium": ConfidenceMedium,
		"maybe":  ConfidenceUnknown,
		"":       ConfidenceUnknown,
	}
	for input, want := range cases {
		result := Sanitize(map[string]any{"confidence": input})
		if result.Plant.Confidence != want {
			t.Errorf("confidence %q: expected %q, got %q", input, want, result.Plant.Confidence)
		}
	}
}

func TestSanitize_ConfidenceNumbersClamped(t *testing.T) {
	cases := []struct {
		input any
		score float64
		label string
	}{
		{0.95, 0.95, ConfidenceHigh},
		{0.5, 0.5, ConfidenceMedium},
		{0.1, 0.1, ConfidenceLow},
		{-3.0, 0, ConfidenceLow},
		{17.0, 1, ConfidenceHigh},
		{math.NaN(), 0, ConfidenceLow},
		{math.Inf(1), 0, ConfidenceLow},
		{nil, 0, ConfidenceUnknown},
	}
	for _, tc := range cases {
		result := Sanitize(map[string]any{"confidence": tc.input})
		if result.Plant.ConfidenceScore < 0 || result.Plant.ConfidenceScore > 1 {
			t.Errorf("confidence %v: score %v out of [0,1]", tc.input, result.Plant.ConfidenceScore)
		}
		if result.Plant.ConfidenceScore != tc.score {
			t.Errorf("confidence %v: expected score %v, got %v", tc.input, tc.score, result.Plant.ConfidenceScore)
		}
		if result.Plant.Confidence != tc.label {
			t.Errorf("confidence %v: expected label %q, got %q", tc.input, tc.label, result.Plant.Confidence)
		}
	}
}

func TestSanitize_ListCoercion(t *testing.T) {
	result := Sanitize(map[string]any{
		"medicinalUses": []any{" wound healing ", "", "   ", "digestion", 42.0, map[string]any{"x": 1}, true},
	})

	want := []string{"wound healing", "digestion", "42", "true"}
	if len(result.Plant.MedicinalUses) != len(want) {
		t.Fatalf("expected %d uses, got %#v", len(want), result.Plant.MedicinalUses)
	}
	for i, w := range want {
		if result.Plant.MedicinalUses[i] != w {
			t.Errorf("uses[%d]: expected %q, got %q", i, w, result.Plant.MedicinalUses[i])
		}
	}
}

func TestSanitize_ListCapped(t *testing.T) {
	var items []any
	for i := 0; i < 50; i++ {
		items = append(items, "use")
	}
	result := Sanitize(map[string]any{"cautions": items})
	if len(result.Plant.Cautions) != MaxListEntries {
		t.Errorf("expected cap of %d, got %d", MaxListEntries, len(result.Plant.Cautions))
	}
}

func TestSanitize_NonArrayLists(t *testing.T) {
	for _, value := range []any{"not a list", 3.0, map[string]any{"a": 1}, nil} {
		result := Sanitize(map[string]any{"references": value})
		if result.Plant.References == nil || len(result.Plant.References) != 0 {
			t.Errorf("references=%#v: expected empty slice, got %#v", value, result.Plant.References)
		}
	}
}

func TestSanitize_Habitat(t *testing.T) {
	result := Sanitize(map[string]any{
		"habitat": map[string]any{"distribution": " India, Sri Lanka ", "environment": "tropical"},
	})
	if result.Plant.Habitat.Distribution != "India, Sri Lanka" {
		t.Errorf("unexpected distribution %q", result.Plant.Habitat.Distribution)
	}
	if result.Plant.Habitat.Environment != "tropical" {
		t.Errorf("unexpected environment %q", result.Plant.Habitat.Environment)
	}

	garbage := Sanitize(map[string]any{"habitat": "everywhere"})
	if garbage.Plant.Habitat.Distribution != "" || garbage.Plant.Habitat.Environment != "" {
		t.Errorf("expected empty habitat for non-object, got %#v", garbage.Plant.Habitat)
	}
}

func TestSanitize_ListsNeverNullOnWire(t *testing.T) {
	data, err := json.Marshal(Sanitize(map[string]any{}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "null") {
		t.Errorf("sanitized JSON contains null: %s", data)
	}
}
