package usecase

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/smartration/backend/internal/domain"
)

// jsonObjectRegex spans the first '{' to the last '}' of a model reply
var jsonObjectRegex = regexp.MustCompile(`(?s)\{.*\}`)

const mealSchemaDef = `{
	"type": "object",
	"required": ["name"],
	"properties": {
		"name": {"type": "string", "minLength": 1},
		"ingredients": {"type": "array", "items": {"type": "string"}},
		"instructions": {"type": "string"},
		"nutritionalInfo": {"type": "string"},
		"cost": {"type": "number", "minimum": 0},
		"prepTime": {"type": "integer", "minimum": 0}
	}
}`

// mealPlanSchema is the document the meal planner asks the model for
var mealPlanSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["mealPlans"],
	"properties": {
		"mealPlans": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["day", "breakfast", "lunch", "dinner"],
				"properties": {
					"day": {"type": "string"},
					"breakfast": ` + mealSchemaDef + `,
					"lunch": ` + mealSchemaDef + `,
					"dinner": ` + mealSchemaDef + `,
					"totalDailyCost": {"type": "number", "minimum": 0}
				}
			}
		}
	}
}`

// shoppingListSchema is the document the shopping list generator asks the model for
var shoppingListSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["items"],
	"properties": {
		"items": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["name", "estimatedPrice"],
				"properties": {
					"name": {"type": "string", "minLength": 1},
					"category": {"type": "string"},
					"estimatedPrice": {"type": "number", "minimum": 0},
					"quantity": {"type": "integer", "minimum": 0},
					"unit": {"type": "string"},
					"priority": {"enum": ["high", "medium", "low", ""]},
					"notes": {"type": "string"}
				}
			}
		},
		"totalCost": {"type": "number", "minimum": 0}
	}
}`

// StructuredOutput extracts a JSON document from free-form model text and
// validates it against a compiled schema.
type StructuredOutput struct {
	name   string
	schema *jsonschema.Schema
}

// NewStructuredOutput compiles a JSON schema document
func NewStructuredOutput(name, schemaDoc string) (*StructuredOutput, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name+".json", strings.NewReader(schemaDoc)); err != nil {
		return nil, fmt.Errorf("add schema %s: %w", name, err)
	}
	schema, err := compiler.Compile(name + ".json")
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return &StructuredOutput{name: name, schema: schema}, nil
}

// mustStructuredOutput panics on an invalid built-in schema
func mustStructuredOutput(name, schemaDoc string) *StructuredOutput {
	so, err := NewStructuredOutput(name, schemaDoc)
	if err != nil {
		panic(err)
	}
	return so
}

// Decode extracts the first {...} block of response, validates it and
// unmarshals it into out. Every failure wraps domain.ErrStructuredOutput.
func (s *StructuredOutput) Decode(response string, out any) error {
	raw, err := ExtractJSONObject(response)
	if err != nil {
		return err
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrStructuredOutput, s.name, err)
	}
	if err := s.schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %s does not match schema: %v", domain.ErrStructuredOutput, s.name, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrStructuredOutput, s.name, err)
	}
	return nil
}

// ExtractJSONObject returns the outermost {...} span of a model reply
func ExtractJSONObject(response string) ([]byte, error) {
	match := jsonObjectRegex.FindString(response)
	if match == "" {
		return nil, fmt.Errorf("%w: no JSON object found", domain.ErrStructuredOutput)
	}
	return []byte(match), nil
}
