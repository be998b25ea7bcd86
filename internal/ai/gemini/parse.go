package gemini

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"google.golang.org/genai"

	"github.com/spigell/offer-guard/internal/ai"
)

// responseSchema pairs a Gemini schema with its JSON Schema rendition so the
// same definition drives the request, the prompt and the validation.
type responseSchema struct {
	genai     *genai.Schema
	document  map[string]any
	validator *gojsonschema.Schema
}

func mustResponseSchema(schema *genai.Schema) *responseSchema {
	document := jsonSchema(schema)
	validator, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(document))
	if err != nil {
		panic(fmt.Sprintf("invalid response schema: %v", err))
	}
	return &responseSchema{genai: schema, document: document, validator: validator}
}

// String renders the JSON Schema for inclusion in prompts.
func (s *responseSchema) String() string {
	data, err := json.MarshalIndent(s.document, "", "  ")
	if err != nil {
		return ""
	}
	return string(data)
}

// decode extracts JSON from raw model output, validates it and stores it in dst.
func (s *responseSchema) decode(raw string, dst any) error {
	cleaned := extractJSON(raw)
	if cleaned == "" {
		return ai.ErrEmptyResponse
	}

	var doc any
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return fmt.Errorf("%w: %v", ai.ErrSchemaMismatch, err)
	}
	doc = coerce(doc, s.document)

	result, err := s.validator.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("validate response: %w", err)
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return fmt.Errorf("%w: %s", ai.ErrSchemaMismatch, strings.Join(problems, "; "))
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %v", ai.ErrSchemaMismatch, err)
	}
	return nil
}

// jsonSchema converts a Gemini schema into a JSON Schema document.
func jsonSchema(schema *genai.Schema) map[string]any {
	if schema == nil {
		return map[string]any{}
	}

	doc := map[string]any{}
	if schema.Type != "" && schema.Type != genai.TypeUnspecified {
		doc["type"] = strings.ToLower(string(schema.Type))
	}
	if schema.Description != "" {
		doc["description"] = schema.Description
	}
	if len(schema.Properties) > 0 {
		props := make(map[string]any, len(schema.Properties))
		for name, prop := range schema.Properties {
			props[name] = jsonSchema(prop)
		}
		doc["properties"] = props
	}
	if len(schema.Required) > 0 {
		required := make([]any, 0, len(schema.Required))
		for _, name := range schema.Required {
			required = append(required, name)
		}
		doc["required"] = required
	}
	if schema.Items != nil {
		doc["items"] = jsonSchema(schema.Items)
	}
	return doc
}

// coerce converts numeric strings into numbers where the schema expects them.
func coerce(value any, schema map[string]any) any {
	typ, _ := schema["type"].(string)
	switch typ {
	case "number", "integer":
		if s, ok := value.(string); ok {
			if f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%")), 64); err == nil {
				return f
			}
		}
	case "object":
		obj, ok := value.(map[string]any)
		if !ok {
			return value
		}
		props, _ := schema["properties"].(map[string]any)
		for name, prop := range props {
			propSchema, ok := prop.(map[string]any)
			if !ok {
				continue
			}
			if v, exists := obj[name]; exists {
				obj[name] = coerce(v, propSchema)
			}
		}
		return obj
	case "array":
		list, ok := value.([]any)
		if !ok {
			return value
		}
		items, _ := schema["items"].(map[string]any)
		for i := range list {
			list[i] = coerce(list[i], items)
		}
		return list
	}
	return value
}

// extractJSON strips markdown fences and surrounding prose from model output.
func extractJSON(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimLeft(trimmed, " \t")
		if idx := strings.Index(trimmed, "\n"); idx >= 0 {
			first := strings.TrimSpace(trimmed[:idx])
			if !strings.HasPrefix(first, "{") && !strings.HasPrefix(first, "[") {
				trimmed = trimmed[idx+1:]
			}
		}
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
		trimmed = strings.TrimSpace(trimmed)
	}

	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return trimmed
	}

	start := strings.IndexAny(trimmed, "{[")
	if start < 0 {
		return trimmed
	}
	closer := "}"
	if trimmed[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(trimmed, closer)
	if end <= start {
		return trimmed[start:]
	}
	return trimmed[start : end+1]
}
