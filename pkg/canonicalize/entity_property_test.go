package canonicalize

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestCreateIntegrationEntityIdempotentProperty exercises §8's quantified
// invariant ("createIntegrationEntity is idempotent") over randomly
// generated ids/names, the same way the teacher's kernel package backs
// its normal-form invariants with gopter properties.
func TestCreateIntegrationEntityIdempotentProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("applying createIntegrationEntity twice yields equal content hashes", prop.ForAll(
		func(id, name string) bool {
			in := Input{
				Assign: Assign{Class: "Resource", Type: "t"},
				Source: map[string]any{"id": id, "name": name},
			}
			first, err := CreateIntegrationEntity(in)
			if err != nil {
				return true // inputs that fail canonicalization (empty id/name) are out of scope for this property
			}
			second, err := CreateIntegrationEntity(in)
			if err != nil {
				return false
			}
			h1, err := ContentHash(first)
			if err != nil {
				return false
			}
			h2, err := ContentHash(second)
			if err != nil {
				return false
			}
			return h1 == h2
		},
		gen.Identifier(),
		gen.AlphaString().Map(func(s string) string { return fmt.Sprintf("n-%s", s) }),
	))

	properties.TestingRun(t)
}
