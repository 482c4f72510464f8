// Package validate implements the optional schema-validation hook
// referenced by §4.5: a pluggable check run against each entity or
// relationship before it is forwarded to the graph store. The core itself
// ships no required schema; a Validator is wired in by the caller of
// JobState, never invoked unconditionally.
package validate

import "context"

// Validator checks one graph object's properties against a schema. A nil
// error means the object is accepted.
type Validator interface {
	ValidateEntity(ctx context.Context, entityType string, properties map[string]any) error
	ValidateRelationship(ctx context.Context, relationshipType string, properties map[string]any) error
}

// None is a Validator that accepts everything, the default when no schema
// hook is configured.
type None struct{}

func (None) ValidateEntity(context.Context, string, map[string]any) error       { return nil }
func (None) ValidateRelationship(context.Context, string, map[string]any) error { return nil }
