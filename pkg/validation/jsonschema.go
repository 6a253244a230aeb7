package validation

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var compiled sync.Map // schema text -> *jsonschema.Schema

func compile(schemaJSON string) (*jsonschema.Schema, error) {
	if sch, ok := compiled.Load(schemaJSON); ok {
		return sch.(*jsonschema.Schema), nil
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", strings.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	sch, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile JSON schema: %w. Schema: %s", err, schemaJSON)
	}
	compiled.Store(schemaJSON, sch)
	return sch, nil
}

// ValidateJSONWithSchema validates a JSON data string against a JSON schema string.
// An empty schema accepts anything.
func ValidateJSONWithSchema(schemaJSON string, dataJSON string) error {
	if schemaJSON == "" {
		return nil
	}
	sch, err := compile(schemaJSON)
	if err != nil {
		return err
	}

	var data interface{}
	if err := json.Unmarshal([]byte(dataJSON), &data); err != nil {
		return fmt.Errorf("failed to unmarshal JSON data: %w. Data: %s", err, dataJSON)
	}

	if err := sch.Validate(data); err != nil {
		if validationErr, ok := err.(*jsonschema.ValidationError); ok {
			return fmt.Errorf("JSON data failed validation against schema: %v", validationErr)
		}
		return fmt.Errorf("JSON data failed validation (unexpected error type): %w", err)
	}
	return nil
}

// ValidateParams validates task params. Empty params are treated as an empty object.
func ValidateParams(schemaJSON, params string) error {
	if strings.TrimSpace(params) == "" {
		params = "{}"
	}
	return ValidateJSONWithSchema(schemaJSON, params)
}
