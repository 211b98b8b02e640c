package services

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// definitionSchema is the structural contract for submitted definition
// documents. Semantic rules (reachability, guard validity) live in
// models.WorkflowDefinition.Validate; the schema only rejects malformed
// shapes before they reach the model layer.
const definitionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "entity_type", "states", "transitions"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "entity_type": {"type": "string", "minLength": 1},
    "metadata": {"type": "object"},
    "states": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "initial": {"type": "boolean"},
          "final": {"type": "boolean"},
          "metadata": {"type": "object"}
        }
      }
    },
    "transitions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["from", "to"],
        "properties": {
          "from": {"type": "string", "minLength": 1},
          "to": {"type": "string", "minLength": 1},
          "guard": {
            "type": "object",
            "required": ["kind"],
            "properties": {
              "kind": {"type": "string", "enum": ["none", "expression", "ai"]},
              "expression": {"type": "string"},
              "model_hint": {"type": "string"}
            }
          },
          "action": {
            "type": "object",
            "required": ["type"],
            "properties": {
              "type": {"type": "string", "minLength": 1},
              "config": {"type": "object"}
            }
          }
        }
      }
    }
  }
}`

var definitionSchemaLoader = gojsonschema.NewStringLoader(definitionSchema)

// validateDefinitionDocument validates a raw definition document against the
// structural schema.
func validateDefinitionDocument(document map[string]any) error {
	result, err := gojsonschema.Validate(definitionSchemaLoader, gojsonschema.NewGoLoader(document))
	if err != nil {
		return err
	}

	if !result.Valid() {
		descriptions := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			descriptions = append(descriptions, desc.String())
		}

		return fmt.Errorf("validation errors: %s", strings.Join(descriptions, "; "))
	}

	return nil
}
