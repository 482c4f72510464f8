package model

import "encoding/json"

var entityFixedFields = map[string]bool{
	"_key": true, "_type": true, "_class": true, "_rawData": true,
}

var relationshipFixedFields = map[string]bool{
	"_key": true, "_type": true, "_class": true,
	"_fromEntityKey": true, "_toEntityKey": true, "_mapping": true,
}

// UnmarshalJSON is MarshalJSON's inverse: it routes every field not in
// the fixed envelope back into Properties, so an entity round-trips
// through the on-disk shard format losslessly.
func (e *Entity) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["_key"]; ok {
		_ = json.Unmarshal(v, &e.Key)
	}
	if v, ok := raw["_type"]; ok {
		_ = json.Unmarshal(v, &e.Type)
	}
	if v, ok := raw["_class"]; ok {
		_ = json.Unmarshal(v, &e.Class)
	}
	if v, ok := raw["_rawData"]; ok {
		_ = json.Unmarshal(v, &e.RawData)
	}

	e.Properties = make(map[string]any, len(raw))
	for k, v := range raw {
		if entityFixedFields[k] {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return err
		}
		e.Properties[k] = val
	}
	return nil
}

// UnmarshalJSON is Relationship's MarshalJSON inverse, see Entity.UnmarshalJSON.
func (r *Relationship) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["_key"]; ok {
		_ = json.Unmarshal(v, &r.Key)
	}
	if v, ok := raw["_type"]; ok {
		_ = json.Unmarshal(v, &r.Type)
	}
	if v, ok := raw["_class"]; ok {
		_ = json.Unmarshal(v, &r.Class)
	}
	if v, ok := raw["_fromEntityKey"]; ok {
		_ = json.Unmarshal(v, &r.FromKey)
	}
	if v, ok := raw["_toEntityKey"]; ok {
		_ = json.Unmarshal(v, &r.ToKey)
	}
	if v, ok := raw["_mapping"]; ok {
		_ = json.Unmarshal(v, &r.Mapping)
	}

	r.Properties = make(map[string]any, len(raw))
	for k, v := range raw {
		if relationshipFixedFields[k] {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return err
		}
		r.Properties[k] = val
	}
	return nil
}
