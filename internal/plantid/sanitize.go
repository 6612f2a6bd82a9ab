package plantid

import (
	"fmt"
	"math"
	"strings"
)

// Sanitize coerces an arbitrary decoded JSON object into a fully populated
// Identification. It never fails: missing, mistyped, or adversarial fields
// are replaced with bounded defaults. The model may or may not emit the
// top-level "plant" wrapper; both shapes are accepted.
func Sanitize(raw map[string]any) *Identification {
	plant := raw
	if inner, ok := raw["plant"].(map[string]any); ok {
		plant = inner
	}
	if plant == nil {
		plant = map[string]any{}
	}

	label, score := confidence(plant["confidence"])

	return &Identification{
		Plant: Plant{
			CommonName:      identityString(plant["commonName"]),
			ScientificName:  identityString(plant["scientificName"]),
			Confidence:      label,
			ConfidenceScore: score,
			MedicinalUses:   stringList(plant["medicinalUses"]),
			Cautions:        stringList(plant["cautions"]),
			Habitat:         habitat(plant["habitat"]),
			References:      stringList(plant["references"]),
		},
	}
}

// identityString trims a string value or substitutes the Unknown sentinel.
func identityString(v any) string {
	s, ok := v.(string)
	if !ok {
		return UnknownValue
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return UnknownValue
	}
	return s
}

// freeText trims a string value or substitutes the empty string.
func freeText(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// confidence accepts a High/Medium/Low label or a numeric score and returns
// both forms. Numbers are clamped to [0,1]; non-finite values become 0.
func confidence(v any) (string, float64) {
	switch c := v.(type) {
	case string:
		switch strings.ToLower(strings.TrimSpace(c)) {
		case "high":
			return ConfidenceHigh, 0.9
		case "medium":
			return ConfidenceMedium, 0.6
		case "low":
			return ConfidenceLow, 0.3
		}
		return ConfidenceUnknown, 0
	case float64:
		return scoreLabel(clampScore(c))
	case int:
		return scoreLabel(clampScore(float64(c)))
	default:
		return ConfidenceUnknown, 0
	}
}

func clampScore(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return math.Min(1, math.Max(0, f))
}

func scoreLabel(score float64) (string, float64) {
	switch {
	case score >= 0.75:
		return ConfidenceHigh, score
	case score >= 0.4:
		return ConfidenceMedium, score
	default:
		return ConfidenceLow, score
	}
}

// stringList coerces a value into a bounded slice of non-empty trimmed
// strings. Non-arrays become an empty slice, never nil on the wire.
func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		switch e := item.(type) {
		case string:
			s = e
		case float64, bool:
			s = fmt.Sprint(e)
		default:
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
		if len(out) == MaxListEntries {
			break
		}
	}
	return out
}

func habitat(v any) Habitat {
	m, ok := v.(map[string]any)
	if !ok {
		return Habitat{}
	}
	return Habitat{
		Distribution: freeText(m["distribution"]),
		Environment:  freeText(m["environment"]),
	}
}
