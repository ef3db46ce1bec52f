package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// PageEnvelopeSchema defines the JSON schema of a paged list response from the
// catalog API.
var PageEnvelopeSchema = `{
	"type": "object",
	"properties": {
		"result": {
			"type": "object",
			"properties": {
				"content": {
					"type": "array",
					"items": {"type": "object"}
				},
				"totalPages": {"type": "integer", "minimum": 0},
				"totalElements": {"type": "integer", "minimum": 0},
				"number": {"type": "integer", "minimum": 0},
				"size": {"type": "integer", "minimum": 0},
				"last": {"type": "boolean"}
			},
			"required": ["content"]
		}
	},
	"required": ["result"]
}`

// ItemEnvelopeSchema defines the JSON schema of a single record response.
var ItemEnvelopeSchema = `{
	"type": "object",
	"properties": {
		"result": {"type": "object"}
	},
	"required": ["result"]
}`

var (
	pageSchema = mustSchema(PageEnvelopeSchema)
	itemSchema = mustSchema(ItemEnvelopeSchema)
)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("invalid envelope schema: %v", err))
	}
	return s
}

// ValidatePageEnvelope validates a paged list response against PageEnvelopeSchema.
func ValidatePageEnvelope(jsonData []byte) error {
	return validateAgainst(pageSchema, jsonData)
}

// ValidateItemEnvelope validates a single record response against ItemEnvelopeSchema.
func ValidateItemEnvelope(jsonData []byte) error {
	return validateAgainst(itemSchema, jsonData)
}

func validateAgainst(schema *gojsonschema.Schema, jsonData []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to validate JSON schema: %w", err)
	}

	if !result.Valid() {
		var errorMessages []string
		for _, desc := range result.Errors() {
			errorMessages = append(errorMessages, desc.String())
		}
		return fmt.Errorf("JSON validation failed: %s", strings.Join(errorMessages, "; "))
	}

	return nil
}
