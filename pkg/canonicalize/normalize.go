package canonicalize

import "golang.org/x/text/unicode/norm"

// normalizeString NFC-normalizes s so that byte-distinct but
// canonically-equivalent Unicode strings (e.g. "é" as one codepoint vs.
// combining-accent form) compare and hash identically. Grounded on the
// teacher's pkg/kernel/csnf.go use of golang.org/x/text/unicode/norm for
// its own canonical-normal-form transform.
func normalizeString(s string) string {
	if s == "" {
		return s
	}
	return norm.NFC.String(s)
}
