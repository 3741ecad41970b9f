package plan

import (
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// planSchema is the wire contract the generative backend is held to. The
// per-step shapes are checked during decoding; the schema guards the
// envelope: an object whose "steps" member is an array.
const planSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["steps"],
  "properties": {
    "steps": {
      "type": "array"
    }
  }
}`

var planSchema = jsonschema.MustCompileString("plan.schema.json", planSchemaJSON)

// ValidatePlanPayload checks a decoded plan object against the envelope
// schema. A nil error means "steps" exists and is an array; individual
// entries are vetted during decoding.
func ValidatePlanPayload(payload any) error {
	if err := planSchema.Validate(payload); err != nil {
		return fmt.Errorf("plan payload rejected: %w", err)
	}
	return nil
}
