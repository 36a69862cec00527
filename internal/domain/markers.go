package domain

import (
	"regexp"
	"strings"
)

var markerPattern = regexp.MustCompile(`\[\[\s*([A-Za-z0-9_.\-]+)\s*\]\]`)

// AddressFieldKeys are the placeholder keys whose values also feed the dossier's
// address summary
var AddressFieldKeys = map[string]bool{
	"adres_eigendom":       true,
	"adres_onroerend_goed": true,
	"ligging_eigendom":     true,
}

// IsAddressField reports whether key designates the property address
func IsAddressField(key string) bool {
	return AddressFieldKeys[key]
}

// ExtractMarkerKeys returns the distinct [[key]] markers in content, in order of
// first appearance
func ExtractMarkerKeys(content string) []string {
	matches := markerPattern.FindAllStringSubmatch(content, -1)
	seen := make(map[string]bool, len(matches))
	keys := make([]string, 0, len(matches))
	for _, m := range matches {
		key := m[1]
		if seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	return keys
}

// RenderContent substitutes [[key]] markers with values. Markers without a
// non-empty value are left in place so reviewers can spot missing data.
func RenderContent(content string, values map[string]string) string {
	return markerPattern.ReplaceAllStringFunc(content, func(marker string) string {
		key := markerPattern.FindStringSubmatch(marker)[1]
		if v, ok := values[key]; ok && strings.TrimSpace(v) != "" {
			return v
		}
		return marker
	})
}

// Values overlays the section's non-empty placeholder values on fallback.
// Placeholders need their definition loaded to contribute.
func (s *SectionInstance) Values(fallback map[string]string) map[string]string {
	values := make(map[string]string, len(fallback)+len(s.Placeholders))
	for k, v := range fallback {
		values[k] = v
	}
	for _, p := range s.Placeholders {
		if p.PlaceholderDefinition != nil && p.Value != "" {
			values[p.PlaceholderDefinition.Key] = p.Value
		}
	}
	return values
}
