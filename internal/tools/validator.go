package tools

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Validate runs the tool's declared input schema against raw input. On
// failure it returns a *ValidationError carrying (field path, reason)
// pairs. Validation has no side effects and never invokes the handler.
func Validate(tool *Tool, rawInput json.RawMessage) error {
	if len(tool.InputSchema) == 0 {
		return nil
	}
	if len(rawInput) == 0 {
		rawInput = json.RawMessage(`{}`)
	}

	schemaLoader := gojsonschema.NewBytesLoader(tool.InputSchema)
	inputLoader := gojsonschema.NewBytesLoader(rawInput)

	result, err := gojsonschema.Validate(schemaLoader, inputLoader)
	if err != nil {
		// Malformed input JSON is a caller problem, reported the same way
		// as a schema violation.
		return &ValidationError{
			ToolName: tool.Name,
			Fields:   []FieldError{{Field: "(root)", Reason: fmt.Sprintf("invalid input: %v", err)}},
		}
	}

	if result.Valid() {
		return nil
	}

	fields := make([]FieldError, 0, len(result.Errors()))
	for _, resultErr := range result.Errors() {
		fields = append(fields, FieldError{
			Field:  resultErr.Field(),
			Reason: resultErr.Description(),
		})
	}

	return &ValidationError{ToolName: tool.Name, Fields: fields}
}
