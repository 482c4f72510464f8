package canonicalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindburn-labs/integration-core/pkg/model"
)

func TestCreateIntegrationEntityTagsAndDisplayName(t *testing.T) {
	source := map[string]any{
		"id":   "x",
		"name": "N",
		"tags": []any{
			map[string]any{"Key": "classification", "Value": "critical"},
		},
	}
	in := Input{
		Assign: Assign{Class: "Network", Type: "t"},
		Source: source,
	}

	entity, err := CreateIntegrationEntity(in)
	require.NoError(t, err)

	assert.Equal(t, "x", entity.Key)
	assert.Equal(t, "t", entity.Type)
	assert.Equal(t, []string{"Network"}, entity.Class)
	assert.Equal(t, "critical", entity.Properties["classification"])
	assert.Equal(t, "critical", entity.Properties["tag.classification"])
	assert.Equal(t, "N", entity.Properties["displayName"])
	require.Len(t, entity.RawData, 1)
	assert.Equal(t, "default", entity.RawData[0].Name)
	assert.Equal(t, source, entity.RawData[0].RawData)
}

func TestCreateIntegrationEntityDuplicateRawDataNameFails(t *testing.T) {
	in := Input{
		Assign: Assign{
			Class:   "Network",
			Type:    "t",
			Key:     "k1",
			RawData: []model.RawDataEntry{{Name: "default", RawData: "x"}},
		},
		Source: map[string]any{"id": "k1", "name": "N"},
	}

	_, err := CreateIntegrationEntity(in)
	require.Error(t, err)
	assert.Regexp(t, "(?i)duplicate", err.Error())
}

func TestCreateIntegrationEntityMissingNameFails(t *testing.T) {
	in := Input{
		Assign: Assign{Class: "Network", Type: "t"},
		Source: map[string]any{"id": "x"},
	}
	_, err := CreateIntegrationEntity(in)
	require.Error(t, err)
	assert.Regexp(t, "(?i)name required", err.Error())
}

func TestCreateIntegrationEntityMissingKeyFails(t *testing.T) {
	in := Input{
		Assign: Assign{Class: "Network", Type: "t"},
		Source: map[string]any{"name": "N"},
	}
	_, err := CreateIntegrationEntity(in)
	require.Error(t, err)
	assert.Regexp(t, "(?i)_key required", err.Error())
}

func TestCreateIntegrationEntityIsIdempotent(t *testing.T) {
	in := Input{
		Assign: Assign{Class: []string{"Network", "Resource"}, Type: "t", Key: "k1"},
		Source: map[string]any{
			"id":           "k1",
			"name":         "N",
			"creationDate": "2024-01-02",
			"tags": []any{
				map[string]any{"Key": "name", "Value": "tag-name"},
			},
		},
	}

	first, err := CreateIntegrationEntity(in)
	require.NoError(t, err)
	second, err := CreateIntegrationEntity(in)
	require.NoError(t, err)

	firstHash, err := ContentHash(first)
	require.NoError(t, err)
	secondHash, err := ContentHash(second)
	require.NoError(t, err)
	assert.Equal(t, firstHash, secondHash)
}

func TestEmptySourceOmitsDefaultRawData(t *testing.T) {
	in := Input{
		Assign: Assign{Class: "Network", Type: "t", Key: "k1", DisplayName: "N"},
		Source: map[string]any{},
	}
	entity, err := CreateIntegrationEntity(in)
	require.NoError(t, err)
	assert.Empty(t, entity.RawData)
}
