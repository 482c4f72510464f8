// Package canonicalize implements createIntegrationEntity (spec §4.2,
// component C2): a deterministic, precedence-ordered mapping from raw
// provider data plus caller assignments into a schema-compliant Entity.
package canonicalize

import (
	"fmt"
	"time"

	"github.com/mindburn-labs/integration-core/pkg/ierr"
	"github.com/mindburn-labs/integration-core/pkg/model"
)

// Assign carries the caller's required and forced fields (§4.2 Input).
type Assign struct {
	Class       any // string or []string, required
	Type        string
	Key         string
	DisplayName string
	RawData     []model.RawDataEntry
	Extra       map[string]any
}

// Input is createIntegrationEntity's full argument set.
type Input struct {
	Assign        Assign
	Source        map[string]any
	TagProperties []string
}

type tagEntry struct {
	Key   string
	Value any
}

// CreateIntegrationEntity runs the deterministic, low-to-high precedence
// algorithm of §4.2 and returns a single schema-compliant Entity, or a
// *ierr.Error of kind Canonicalization on any failure mode.
func CreateIntegrationEntity(in Input) (model.Entity, error) {
	if in.Assign.Type == "" {
		return model.Entity{}, ierr.Canonicalization("assign._type is required")
	}
	if in.Assign.Class == nil {
		return model.Entity{}, ierr.Canonicalization("assign._class is required")
	}

	props := make(map[string]any)

	// Step 2: whitelist fold.
	for k, v := range in.Source {
		if fieldAllowed(in.Assign.Type, k) {
			props[k] = v
		}
	}

	// Step 3: status.
	if status, ok := in.Source["status"].(string); ok && status == "Active" {
		props["active"] = true
	} else if active, ok := in.Assign.Extra["active"]; ok {
		props["active"] = active
	} else {
		delete(props, "active")
	}

	// Step 4: timestamps.
	if raw, ok := in.Source["creationDate"]; ok {
		if ms, ok := toEpochMillis(raw); ok {
			props["createdOn"] = ms
		}
	}

	// Step 5: tags.
	var tagNameValue string
	var haveTagName bool
	tags := parseTags(in.Source["tags"])
	if len(tags) > 0 {
		for _, t := range tags {
			props["tag."+t.Key] = t.Value
			if tagPromoted(t.Key) || containsString(in.TagProperties, t.Key) {
				props[t.Key] = t.Value
			}
			if t.Key == "name" {
				if s, ok := t.Value.(string); ok {
					tagNameValue = s
					haveTagName = true
				}
			}
		}
	}

	// Step 6: displayName precedence — assign.displayName > tag.name > source.name.
	displayName := ""
	switch {
	case in.Assign.DisplayName != "":
		displayName = in.Assign.DisplayName
	case haveTagName:
		displayName = tagNameValue
	default:
		if s, ok := in.Source["name"].(string); ok && s != "" {
			displayName = s
		}
	}
	if displayName == "" {
		return model.Entity{}, ierr.Canonicalization("name required: no assign.displayName, tag.name, or source.name")
	}
	props["displayName"] = normalizeString(displayName)

	// Step 7: merge assign's caller-forced fields on top, overriding.
	for k, v := range in.Assign.Extra {
		props[k] = v
	}

	// Step 8: _rawData rule.
	rawData, err := buildRawData(in.Source, in.Assign.RawData)
	if err != nil {
		return model.Entity{}, err
	}

	// Step 9: _class normalization.
	class, err := toStringSlice(in.Assign.Class)
	if err != nil {
		return model.Entity{}, ierr.Canonicalization("assign._class: " + err.Error())
	}
	if len(class) == 0 {
		return model.Entity{}, ierr.Canonicalization("assign._class must be non-empty")
	}

	// Step 10: _key.
	key := in.Assign.Key
	if key == "" {
		if id, ok := in.Source["id"]; ok {
			key = fmt.Sprint(id)
		}
	}
	if key == "" {
		return model.Entity{}, ierr.Canonicalization("_key required: no assign._key or source.id")
	}

	return model.Entity{
		Key:        key,
		Type:       in.Assign.Type,
		Class:      class,
		RawData:    rawData,
		Properties: props,
	}, nil
}

func buildRawData(source map[string]any, assignRawData []model.RawDataEntry) ([]model.RawDataEntry, error) {
	var out []model.RawDataEntry
	if len(source) > 0 {
		out = append(out, model.RawDataEntry{Name: "default", RawData: source})
	}
	out = append(out, assignRawData...)

	seen := make(map[string]bool, len(out))
	for _, e := range out {
		if seen[e.Name] {
			return nil, ierr.Canonicalization(fmt.Sprintf("duplicate _rawData name %q", e.Name))
		}
		seen[e.Name] = true
	}
	return out, nil
}

func toStringSlice(v any) ([]string, error) {
	switch t := v.(type) {
	case string:
		return []string{t}, nil
	case []string:
		return append([]string(nil), t...), nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("non-string class element %v", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported _class type %T", v)
	}
}

func parseTags(v any) []tagEntry {
	list, ok := v.([]any)
	if !ok {
		if direct, ok := v.([]tagEntry); ok {
			return direct
		}
		return nil
	}
	out := make([]tagEntry, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		key, _ := m["Key"].(string)
		if key == "" {
			continue
		}
		out = append(out, tagEntry{Key: key, Value: m["Value"]})
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// toEpochMillis reports whether v looks like a date/time value and, if so,
// its Unix-epoch-milliseconds representation.
func toEpochMillis(v any) (int64, bool) {
	switch t := v.(type) {
	case time.Time:
		return t.UnixMilli(), true
	case int64:
		return t, true
	case int:
		return int64(t), true
	case float64:
		return int64(t), true
	case string:
		if t == "" {
			return 0, false
		}
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed.UnixMilli(), true
		}
		if parsed, err := time.Parse("2006-01-02", t); err == nil {
			return parsed.UnixMilli(), true
		}
		return 0, false
	default:
		return 0, false
	}
}
