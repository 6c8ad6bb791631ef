// Package validation checks persisted embed block payloads against the
// block JSON schema.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	ErrSchemaInvalid    = errors.New("schema invalid")
	ErrSchemaValidation = errors.New("schema validation failed")
)

// BlockSchema describes the durable shape of an embed block. Unknown keys are
// tolerated so payloads written by newer hosts still load.
var BlockSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"service": map[string]any{"type": "string"},
		"source":  map[string]any{"type": "string"},
		"embed":   map[string]any{"type": "string"},
		"html":    map[string]any{"type": "string"},
		"width":   map[string]any{"type": "integer", "minimum": 0},
		"height":  map[string]any{"type": "integer", "minimum": 0},
		"caption": map[string]any{"type": "string"},
	},
	"additionalProperties": true,
}

// ValidationIssue captures a single validation failure.
type ValidationIssue struct {
	Location string
	Message  string
}

// PayloadValidationError surfaces validation issues with schema-aware context.
type PayloadValidationError struct {
	Issues []ValidationIssue
	Cause  error
}

func (e *PayloadValidationError) Error() string {
	if len(e.Issues) == 0 {
		if e.Cause != nil {
			return e.Cause.Error()
		}
		return ErrSchemaValidation.Error()
	}
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		location := strings.TrimSpace(issue.Location)
		if location == "" {
			location = "#"
		} else if !strings.HasPrefix(location, "#") {
			location = "#" + location
		}
		if issue.Message == "" {
			parts = append(parts, location)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", location, issue.Message))
	}
	return strings.Join(parts, "; ")
}

func (e *PayloadValidationError) Unwrap() error {
	return ErrSchemaValidation
}

// Issues extracts validation issues from an error.
func Issues(err error) []ValidationIssue {
	if err == nil {
		return nil
	}
	var payloadErr *PayloadValidationError
	if errors.As(err, &payloadErr) && payloadErr != nil {
		return payloadErr.Issues
	}
	var validationErr *jsonschema.ValidationError
	if errors.As(err, &validationErr) && validationErr != nil {
		return collectValidationIssues(validationErr)
	}
	return []ValidationIssue{{Message: err.Error()}}
}

var (
	blockSchemaOnce sync.Once
	blockSchema     *jsonschema.Schema
	blockSchemaErr  error
)

// ValidateBlock validates a decoded JSON payload against BlockSchema.
func ValidateBlock(payload any) error {
	blockSchemaOnce.Do(func() {
		blockSchema, blockSchemaErr = compileSchema(BlockSchema)
	})
	if blockSchemaErr != nil {
		return fmt.Errorf("%w: %v", ErrSchemaInvalid, blockSchemaErr)
	}
	return validateWith(blockSchema, payload)
}

// ValidateBlockJSON decodes raw and validates it against BlockSchema.
func ValidateBlockJSON(raw []byte) error {
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return &PayloadValidationError{
			Issues: []ValidationIssue{{Message: "payload is not valid JSON"}},
			Cause:  err,
		}
	}
	return ValidateBlock(payload)
}

func validateWith(compiled *jsonschema.Schema, payload any) error {
	if payload == nil {
		payload = map[string]any{}
	}
	if err := compiled.Validate(payload); err != nil {
		return &PayloadValidationError{
			Issues: Issues(err),
			Cause:  err,
		}
	}
	return nil
}

func compileSchema(schema map[string]any) (*jsonschema.Schema, error) {
	encoded, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("schema.json", bytes.NewReader(encoded)); err != nil {
		return nil, err
	}
	return compiler.Compile("schema.json")
}

func collectValidationIssues(err *jsonschema.ValidationError) []ValidationIssue {
	if err == nil {
		return nil
	}
	issues := []ValidationIssue{}
	var walk func(*jsonschema.ValidationError)
	walk = func(node *jsonschema.ValidationError) {
		if node == nil {
			return
		}
		if len(node.Causes) == 0 {
			issues = append(issues, ValidationIssue{
				Location: strings.TrimSpace(node.InstanceLocation),
				Message:  strings.TrimSpace(node.Message),
			})
			return
		}
		for _, cause := range node.Causes {
			walk(cause)
		}
	}
	walk(err)
	return issues
}
