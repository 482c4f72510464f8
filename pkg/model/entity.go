package model

// RawDataEntry is one named snapshot of provider-native data embedded in an
// entity's _rawData list (§3). Names must be unique within one entity.
type RawDataEntry struct {
	Name    string `json:"name"`
	RawData any    `json:"rawData"`
}

// Entity is the canonical graph object produced by createIntegrationEntity.
// Scalar/array properties beyond the typed fields live in Properties, per
// DESIGN NOTES §9 ("dynamic property bags" collapse to a typed envelope).
type Entity struct {
	Key         string         `json:"_key"`
	Type        string         `json:"_type"`
	Class       []string       `json:"_class"`
	RawData     []RawDataEntry `json:"_rawData"`
	Properties  map[string]any `json:"-"`
}

// Relationship is structurally opaque to the scheduler/store beyond the
// fields needed for validation and storage routing.
type Relationship struct {
	Key        string         `json:"_key"`
	Type       string         `json:"_type"`
	Class      string         `json:"_class"`
	FromKey    string         `json:"_fromEntityKey,omitempty"`
	ToKey      string         `json:"_toEntityKey,omitempty"`
	Mapping    *RelationshipMapping `json:"_mapping,omitempty"`
	Properties map[string]any `json:"-"`
}

// RelationshipMapping describes a mapped (non-direct-key) relationship
// endpoint, resolved by a collaborator after upload.
type RelationshipMapping struct {
	SourceEntityKey         string `json:"sourceEntityKey"`
	RelationshipDirection   string `json:"relationshipDirection"`
	TargetFilterKeys        []string `json:"targetFilterKeys"`
	TargetEntity            map[string]any `json:"targetEntity"`
}

// MarshalJSON flattens Properties alongside the typed fields so encoded
// entities look like the open-shaped records providers and the sync API
// expect, instead of nesting them under a "Properties" key.
func (e Entity) MarshalJSON() ([]byte, error) {
	return marshalFlat(map[string]any{
		"_key":     e.Key,
		"_type":    e.Type,
		"_class":   e.Class,
		"_rawData": e.RawData,
	}, e.Properties)
}

// MarshalJSON flattens Properties the same way Entity does.
func (r Relationship) MarshalJSON() ([]byte, error) {
	fixed := map[string]any{
		"_key":   r.Key,
		"_type":  r.Type,
		"_class": r.Class,
	}
	if r.FromKey != "" {
		fixed["_fromEntityKey"] = r.FromKey
	}
	if r.ToKey != "" {
		fixed["_toEntityKey"] = r.ToKey
	}
	if r.Mapping != nil {
		fixed["_mapping"] = r.Mapping
	}
	return marshalFlat(fixed, r.Properties)
}
