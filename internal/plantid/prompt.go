package plantid

import "strings"

// BuildIdentifyPrompt creates the instruction sent alongside the photo. The
// prompt names the exact output schema and demands JSON-only output so the
// response survives Decode without prose cleanup.
func BuildIdentifyPrompt() string {
	var sb strings.Builder

	sb.WriteString("## Plant Identification Task\n\n")
	sb.WriteString("You are a botanist specializing in Ayurvedic and medicinal plants. ")
	sb.WriteString("Identify the plant in the attached photo.\n\n")

	sb.WriteString("### Output\n\n")
	sb.WriteString("Respond with ONLY a JSON object in exactly this shape. No prose, no markdown fences:\n\n")
	sb.WriteString(`{
  "plant": {
    "commonName": "most widely used common name",
    "scientificName": "binomial name",
    "confidence": "High | Medium | Low",
    "medicinalUses": ["traditional or documented medicinal uses"],
    "cautions": ["toxicity, interactions, or usage warnings"],
    "habitat": {
      "distribution": "regions where the plant occurs",
      "environment": "growing conditions"
    },
    "references": ["URLs of authoritative sources"]
  }
}`)
	sb.WriteString("\n\nIf the photo does not show a plant, use \"Unknown\" for the names and Low confidence. ")
	sb.WriteString("Keep every list to at most 10 entries.\n")

	return sb.String()
}
