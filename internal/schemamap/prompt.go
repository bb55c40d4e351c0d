package schemamap

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BuildMappingPrompt composes the deterministic instruction that constrains
// the model to a single JSON object matching the schema, with nulls for
// unknown fields and a locale note for dates and amounts.
func BuildMappingPrompt(text string, jsonSchema map[string]any, language string) (string, error) {
	schemaJSON, err := json.MarshalIndent(jsonSchema, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal schema: %w", err)
	}

	var b strings.Builder
	b.WriteString("The following text was extracted from a document via OCR.\n")
	b.WriteString("Extract the relevant information and return it strictly as a JSON object matching this schema:\n")
	b.Write(schemaJSON)
	b.WriteString("\n\nRules:\n")
	b.WriteString("1. Respond ONLY with the JSON object.\n")
	b.WriteString("2. If a value is not present in the text, use null or an empty string as appropriate.\n")
	b.WriteString("3. The document is in " + language + "; interpret dates and monetary amounts accordingly.\n")
	b.WriteString("\nExtracted text:\n\"\"\"\n")
	b.WriteString(text)
	b.WriteString("\n\"\"\"\n")
	return b.String(), nil
}

// BuildVisionPrompt is the image variant: the model extracts and maps in one
// step, so the prompt carries the schema but no OCR text.
func BuildVisionPrompt(jsonSchema map[string]any, language string) (string, error) {
	schemaJSON, err := json.MarshalIndent(jsonSchema, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal schema: %w", err)
	}

	var b strings.Builder
	b.WriteString("Analyze this image and extract the relevant information strictly following this JSON schema:\n")
	b.Write(schemaJSON)
	b.WriteString("\n\nRules:\n")
	b.WriteString("1. Respond ONLY with the JSON object.\n")
	b.WriteString("2. If a value is not visible, use null or an empty string.\n")
	b.WriteString("3. The document is in " + language + "; interpret dates and monetary amounts accordingly.\n")
	return b.String(), nil
}
