package model

import "encoding/json"

// marshalFlat merges fixed (typed, always-present fields) with props
// (the open property bag) into one JSON object. fixed wins on key
// collision, matching the precedence the canonicalizer already enforced
// when it built Properties.
func marshalFlat(fixed map[string]any, props map[string]any) ([]byte, error) {
	out := make(map[string]any, len(fixed)+len(props))
	for k, v := range props {
		out[k] = v
	}
	for k, v := range fixed {
		out[k] = v
	}
	return json.Marshal(out)
}
