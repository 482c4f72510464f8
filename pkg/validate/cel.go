package validate

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// CEL implements Validator with a per-entity-type/relationship-type CEL
// expression: the program receives the object's properties bound to
// `properties` and must evaluate to a bool. A compiled-program cache keyed
// by expression avoids recompiling on every call, the same pattern the
// kernel's CEL policy evaluator uses.
type CEL struct {
	env              *cel.Env
	entityRules      map[string]string
	relationshipRules map[string]string

	mu      sync.RWMutex
	prgCache map[string]cel.Program
}

// NewCEL builds a CEL validator. entityRules and relationshipRules map a
// type name to the CEL expression guarding it; a type with no rule is
// accepted unconditionally.
func NewCEL(entityRules, relationshipRules map[string]string) (*CEL, error) {
	env, err := cel.NewEnv(cel.Variable("properties", cel.DynType))
	if err != nil {
		return nil, fmt.Errorf("validate: create CEL environment: %w", err)
	}
	return &CEL{
		env:               env,
		entityRules:       entityRules,
		relationshipRules: relationshipRules,
		prgCache:          make(map[string]cel.Program),
	}, nil
}

func (c *CEL) ValidateEntity(ctx context.Context, entityType string, properties map[string]any) error {
	return c.validate(c.entityRules[entityType], properties)
}

func (c *CEL) ValidateRelationship(ctx context.Context, relationshipType string, properties map[string]any) error {
	return c.validate(c.relationshipRules[relationshipType], properties)
}

func (c *CEL) validate(expr string, properties map[string]any) error {
	if expr == "" {
		return nil
	}
	prg, err := c.program(expr)
	if err != nil {
		return err
	}

	out, _, err := prg.Eval(map[string]any{"properties": properties})
	if err != nil {
		return fmt.Errorf("validate: eval: %w", err)
	}
	ok, isBool := out.Value().(bool)
	if !isBool {
		return fmt.Errorf("validate: rule %q did not evaluate to a bool", expr)
	}
	if !ok {
		return fmt.Errorf("validate: rule %q rejected object", expr)
	}
	return nil
}

func (c *CEL) program(expr string) (cel.Program, error) {
	c.mu.RLock()
	prg, hit := c.prgCache[expr]
	c.mu.RUnlock()
	if hit {
		return prg, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if prg, hit = c.prgCache[expr]; hit {
		return prg, nil
	}

	ast, issues := c.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("validate: compile %q: %w", expr, issues.Err())
	}
	p, err := c.env.Program(ast, cel.InterruptCheckFrequency(100), cel.CostLimit(10000))
	if err != nil {
		return nil, fmt.Errorf("validate: program %q: %w", expr, err)
	}
	c.prgCache[expr] = p
	return p, nil
}
