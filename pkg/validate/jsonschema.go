package validate

import (
	"context"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// JSONSchema implements Validator against draft 2020-12 JSON Schema
// documents, one per entity/relationship type, compiled once at
// construction time.
type JSONSchema struct {
	entitySchemas       map[string]*jsonschema.Schema
	relationshipSchemas map[string]*jsonschema.Schema
}

// NewJSONSchema compiles entitySchemas and relationshipSchemas (type name
// to raw schema document) and returns a Validator. A compile failure for
// any schema fails construction, so a bad schema is caught at startup
// rather than on the first matching object.
func NewJSONSchema(entitySchemas, relationshipSchemas map[string]string) (*JSONSchema, error) {
	compiledEntities, err := compileAll("entity", entitySchemas)
	if err != nil {
		return nil, err
	}
	compiledRelationships, err := compileAll("relationship", relationshipSchemas)
	if err != nil {
		return nil, err
	}
	return &JSONSchema{entitySchemas: compiledEntities, relationshipSchemas: compiledRelationships}, nil
}

func compileAll(kind string, schemas map[string]string) (map[string]*jsonschema.Schema, error) {
	out := make(map[string]*jsonschema.Schema, len(schemas))
	for typeName, raw := range schemas {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		url := fmt.Sprintf("mem://integration-core/%s/%s.schema.json", kind, typeName)
		if err := c.AddResource(url, strings.NewReader(raw)); err != nil {
			return nil, fmt.Errorf("validate: load %s schema for %q: %w", kind, typeName, err)
		}
		compiled, err := c.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("validate: compile %s schema for %q: %w", kind, typeName, err)
		}
		out[typeName] = compiled
	}
	return out, nil
}

func (j *JSONSchema) ValidateEntity(ctx context.Context, entityType string, properties map[string]any) error {
	return validateAgainst(j.entitySchemas[entityType], properties)
}

func (j *JSONSchema) ValidateRelationship(ctx context.Context, relationshipType string, properties map[string]any) error {
	return validateAgainst(j.relationshipSchemas[relationshipType], properties)
}

func validateAgainst(schema *jsonschema.Schema, properties map[string]any) error {
	if schema == nil {
		return nil
	}
	if err := schema.Validate(properties); err != nil {
		return fmt.Errorf("validate: schema rejected object: %w", err)
	}
	return nil
}
