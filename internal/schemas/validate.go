// Package schemas validates structured messages exchanged with the browser
// client against embedded JSON Schemas.
package schemas

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed client_message.schema.json
var clientMessageSchema []byte

// Client message types
const (
	MessageUtterance = "utterance"
	MessagePing      = "ping"
)

// ClientMessage is a validated control frame from the browser
type ClientMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

// SchemaLoadError represents errors loading or parsing the schema itself
type SchemaLoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Path, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

var (
	clientSchemaOnce sync.Once
	clientSchema     *gojsonschema.Schema
	clientSchemaErr  error
)

func loadClientSchema() (*gojsonschema.Schema, error) {
	clientSchemaOnce.Do(func() {
		clientSchema, clientSchemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(clientMessageSchema))
		if clientSchemaErr != nil {
			clientSchemaErr = &SchemaLoadError{
				Path:    "client_message.schema.json",
				Message: "invalid embedded schema",
				Cause:   clientSchemaErr,
			}
		}
	})
	return clientSchema, clientSchemaErr
}

// ParseClientMessage validates a WebSocket text frame and decodes it.
func ParseClientMessage(data []byte) (*ClientMessage, error) {
	schema, err := loadClientSchema()
	if err != nil {
		return nil, err
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		// Not JSON at all
		return nil, &ValidationError{Errors: []FieldError{{Field: "(root)", Message: err.Error()}}}
	}
	if !result.Valid() {
		return nil, toValidationError(result)
	}

	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode client message: %w", err)
	}
	msg.Text = strings.TrimSpace(msg.Text)
	return &msg, nil
}

func toValidationError(result *gojsonschema.Result) *ValidationError {
	validationErr := &ValidationError{
		Errors: make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}
	return validationErr
}
