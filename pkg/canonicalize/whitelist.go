package canonicalize

import (
	_ "embed"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed whitelist.yaml
var whitelistYAML []byte

type whitelistTable struct {
	Common       []string            `yaml:"common"`
	Types        map[string][]string `yaml:"types"`
	TagPromotion []string            `yaml:"tagPromotion"`
}

var (
	whitelistOnce sync.Once
	whitelist     whitelistTable
)

func loadWhitelist() whitelistTable {
	whitelistOnce.Do(func() {
		if err := yaml.Unmarshal(whitelistYAML, &whitelist); err != nil {
			// The embedded table is part of the binary; a parse failure here
			// is a build-time defect, not a runtime/provider-data condition.
			panic("canonicalize: invalid embedded whitelist.yaml: " + err.Error())
		}
	})
	return whitelist
}

// fieldAllowed reports whether sourceField may be folded onto an entity of
// the given _type by the whitelist fold step (§4.2 step 2).
func fieldAllowed(entityType, sourceField string) bool {
	w := loadWhitelist()
	for _, f := range w.Common {
		if f == sourceField {
			return true
		}
	}
	for _, f := range w.Types[entityType] {
		if f == sourceField {
			return true
		}
	}
	return false
}

// tagPromoted reports whether tag key k is in the common tag-promotion
// set (§4.2 step 5), independent of the caller-supplied tagProperties.
func tagPromoted(k string) bool {
	w := loadWhitelist()
	for _, f := range w.TagPromotion {
		if f == k {
			return true
		}
	}
	return false
}
