package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// nodeClassSchema is the minimum shape a compiled dynamic component must have
// before it may replace a node class.
const nodeClassSchema = `{
	"type": "object",
	"required": ["template"],
	"properties": {
		"template": {
			"type": "object",
			"patternProperties": {
				"^[^_]": {
					"type": "object",
					"properties": {
						"type": {"type": "string"},
						"required": {"type": "boolean"},
						"show": {"type": "boolean"}
					}
				}
			}
		},
		"display_name": {"type": "string"},
		"description": {"type": "string"},
		"base_classes": {"type": "array", "items": {"type": "string"}},
		"output_types": {"type": "array", "items": {"type": "string"}}
	}
}`

var compiledNodeClassSchema = mustSchema(nodeClassSchema)

func mustSchema(source string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(source))
	if err != nil {
		panic(fmt.Sprintf("invalid node class schema: %v", err))
	}

	return schema
}

// checkNodeClass validates raw against the node class schema.
func checkNodeClass(raw []byte) error {
	result, err := compiledNodeClassSchema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedTemplate, err)
	}

	if result.Valid() {
		return nil
	}

	messages := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		messages = append(messages, desc.String())
	}

	return fmt.Errorf("%w: %s", ErrMalformedTemplate, strings.Join(messages, "; "))
}
