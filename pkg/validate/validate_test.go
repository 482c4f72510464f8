package validate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCELRejectsObjectsFailingRule(t *testing.T) {
	v, err := NewCEL(map[string]string{
		"acct_user": `has(properties.email)`,
	}, nil)
	require.NoError(t, err)

	assert.NoError(t, v.ValidateEntity(context.Background(), "acct_user", map[string]any{"email": "a@b.com"}))
	assert.Error(t, v.ValidateEntity(context.Background(), "acct_user", map[string]any{}))
}

func TestCELAcceptsTypesWithNoRule(t *testing.T) {
	v, err := NewCEL(nil, nil)
	require.NoError(t, err)
	assert.NoError(t, v.ValidateEntity(context.Background(), "acct_user", map[string]any{}))
}

func TestJSONSchemaRejectsMissingRequiredProperty(t *testing.T) {
	v, err := NewJSONSchema(map[string]string{
		"acct_user": `{"type":"object","required":["email"],"properties":{"email":{"type":"string"}}}`,
	}, nil)
	require.NoError(t, err)

	assert.NoError(t, v.ValidateEntity(context.Background(), "acct_user", map[string]any{"email": "a@b.com"}))
	assert.Error(t, v.ValidateEntity(context.Background(), "acct_user", map[string]any{}))
}

func TestNoneValidatorAcceptsEverything(t *testing.T) {
	var v None
	assert.NoError(t, v.ValidateEntity(context.Background(), "anything", map[string]any{"x": 1}))
	assert.NoError(t, v.ValidateRelationship(context.Background(), "anything", map[string]any{"x": 1}))
}
