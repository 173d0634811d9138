// Package suggest asks an external text-generation service for subtask
// names and validates what comes back before anything is created from it.
package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	// ErrUpstream is returned when the suggestion service could not be reached
	// or reported a failure.
	ErrUpstream = errors.New("suggestion service failed")
	// ErrUpstreamFormat is wrapped by every FormatError.
	ErrUpstreamFormat = errors.New("malformed suggestion response")
)

// Suggester returns the raw response of the suggestion service for taskName.
// The response is untrusted; run it through Parse.
type Suggester interface {
	Suggest(ctx context.Context, taskName string) ([]byte, error)
}

// FormatError describes why a suggestion batch was rejected.
type FormatError struct {
	Path    string
	Message string
}

func (e *FormatError) Error() string {
	if e.Path == "" {
		return "malformed suggestion response: " + e.Message
	}
	return fmt.Sprintf("malformed suggestion response at %s: %s", e.Path, e.Message)
}

func (e *FormatError) Unwrap() error {
	return ErrUpstreamFormat
}

const batchSchema = `{
	"type": "object",
	"required": ["subtasks"],
	"properties": {
		"subtasks": {
			"type": "array",
			"minItems": 1,
			"items": {"type": "string", "pattern": "\\S"}
		}
	}
}`

var schema = jsonschema.MustCompileString("suggestions.schema.json", batchSchema)

// fenceRe matches a Markdown code fence around the payload.
var fenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// Parse validates a whole suggestion batch and returns the trimmed names.
// The batch is {"subtasks": ["...", ...]}; a bare array is accepted too.
// Either every element is a non-blank string or the batch is rejected.
func Parse(raw []byte) ([]string, error) {
	text := strings.TrimSpace(string(raw))
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	if text == "" {
		return nil, &FormatError{Message: "empty response"}
	}

	var doc any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, &FormatError{Message: "not JSON: " + err.Error()}
	}
	if list, ok := doc.([]any); ok {
		doc = map[string]any{"subtasks": list}
	}

	if err := schema.Validate(doc); err != nil {
		return nil, schemaError(err)
	}

	items := doc.(map[string]any)["subtasks"].([]any)
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = strings.TrimSpace(it.(string))
	}
	return names, nil
}

// schemaError reports the first leaf cause of a schema failure.
func schemaError(err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &FormatError{Message: err.Error()}
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return &FormatError{Path: pointerToPath(ve.InstanceLocation), Message: ve.Message}
}

// pointerToPath turns "/subtasks/2" into "subtasks[2]".
func pointerToPath(ptr string) string {
	if ptr == "" || ptr == "/" {
		return ""
	}
	var b strings.Builder
	for _, part := range strings.Split(strings.TrimPrefix(ptr, "/"), "/") {
		if part != "" && strings.Trim(part, "0123456789") == "" {
			b.WriteString("[" + part + "]")
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return b.String()
}
