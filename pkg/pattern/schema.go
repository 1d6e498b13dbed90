package pattern

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// recordSchema checks types and value ranges of a pattern file before it is
// decoded. Shape consistency between the declared dimensions and the data is
// left to FromRecord. Legacy snake_case keys are described alongside. The
// dimension maxima mirror MaxRows, MaxBars and MaxStepsPerBar.
const recordSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "definitions": {
    "rowCount": {"type": "integer", "minimum": 1, "maximum": 128},
    "barCount": {"type": "integer", "minimum": 1, "maximum": 256},
    "stepCount": {"type": "integer", "minimum": 1, "maximum": 256},
    "note": {"type": "integer", "minimum": 0, "maximum": 127},
    "row": {
      "type": "object",
      "properties": {
        "name": {"type": "string"},
        "midiNote": {"$ref": "#/definitions/note"},
        "midi_note": {"$ref": "#/definitions/note"}
      }
    },
    "rows": {"type": "array", "items": {"$ref": "#/definitions/row"}}
  },
  "properties": {
    "numRows": {"$ref": "#/definitions/rowCount"},
    "num_rows": {"$ref": "#/definitions/rowCount"},
    "bars": {"$ref": "#/definitions/barCount"},
    "stepsPerBar": {"$ref": "#/definitions/stepCount"},
    "steps_per_bar": {"$ref": "#/definitions/stepCount"},
    "rowsMeta": {"$ref": "#/definitions/rows"},
    "rows_meta": {"$ref": "#/definitions/rows"},
    "data": {
      "type": "array",
      "items": {
        "type": "array",
        "items": {
          "type": "array",
          "items": {"type": "integer", "minimum": 0, "maximum": 127}
        }
      }
    }
  }
}`

// maxSchemaErrors bounds how many violations end up in one error message
const maxSchemaErrors = 5

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(recordSchema))
})

// ValidateJSON checks raw pattern JSON against the record schema. Errors wrap
// ErrInvalidFormat.
func ValidateJSON(data []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("failed to compile pattern schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if result.Valid() {
		return nil
	}

	var msgs []string
	for i, desc := range result.Errors() {
		if i == maxSchemaErrors {
			msgs = append(msgs, fmt.Sprintf("and %d more", len(result.Errors())-i))
			break
		}
		msgs = append(msgs, desc.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalidFormat, strings.Join(msgs, "; "))
}
