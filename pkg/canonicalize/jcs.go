// Canonical JSON hashing for entities, grounded on the teacher's
// pkg/canonicalize/jcs.go (RFC 8785 JSON Canonicalization Scheme). Here
// it backs the idempotency property (§8: "createIntegrationEntity is
// idempotent") by giving two structurally-equal entities the same
// digest regardless of map key order, and the gowebpki/jcs
// implementation is used directly rather than hand-rolled, matching
// the teacher's reliance on the RFC 8785 library over ad hoc sorting.
package canonicalize

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/gowebpki/jcs"
)

// ContentHash returns the SHA-256 hex digest of v's RFC 8785 canonical
// JSON form.
func ContentHash(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
