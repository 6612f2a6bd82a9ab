// Package plantid defines the identification contract returned to the mobile
// app and the sanitizer that coerces raw model output into it. Model output
// is an untrusted boundary: nothing crosses it without reconstruction.
package plantid

// MaxListEntries caps every list field of the identification record. The cap
// bounds rendering cost in the app and guards against runaway model output.
const MaxListEntries = 10

// UnknownValue is substituted for identity fields the model omitted.
const UnknownValue = "Unknown"

// Confidence labels carried on the wire. Numeric confidences from the model
// are mapped onto these bands.
const (
	ConfidenceHigh    = "High"
	ConfidenceMedium  = "Medium"
	ConfidenceLow     = "Low"
	ConfidenceUnknown = UnknownValue
)

// Identification is the sanitized result envelope body. The plant wrapper
// mirrors the JSON schema the model is instructed to produce.
type Identification struct {
	Plant Plant `json:"plant"`
}

// Plant describes one identified plant. Every list is non-nil and every
// string is trimmed; see Sanitize.
type Plant struct {
	CommonName      string   `json:"commonName"`
	ScientificName  string   `json:"scientificName"`
	Confidence      string   `json:"confidence"`
	ConfidenceScore float64  `json:"confidenceScore"`
	MedicinalUses   []string `json:"medicinalUses"`
	Cautions        []string `json:"cautions"`
	Habitat         Habitat  `json:"habitat"`
	References      []string `json:"references"`
}

// Habitat describes where the plant grows.
type Habitat struct {
	Distribution string `json:"distribution"`
	Environment  string `json:"environment"`
}
