package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatVersionNumber builds the default display label "<major>.<minor>"
func FormatVersionNumber(major, minor int) string {
	return fmt.Sprintf("%d.%d", major, minor)
}

// ParseVersionNumber splits a "<major>.<minor>" label. It fails for labels that
// were renamed to something else; lineage never depends on it because versions
// carry their numeric parts in Major and Minor.
func ParseVersionNumber(label string) (major, minor int, err error) {
	parts := strings.Split(strings.TrimSpace(label), ".")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("version number %q is not of the form <major>.<minor>", label)
	}
	major, err = strconv.Atoi(parts[0])
	if err != nil || major < 0 {
		return 0, 0, fmt.Errorf("version number %q has an invalid major part", label)
	}
	minor, err = strconv.Atoi(parts[1])
	if err != nil || minor < 0 {
		return 0, 0, fmt.Errorf("version number %q has an invalid minor part", label)
	}
	return major, minor, nil
}

// IsRenamed reports whether the display label deviates from the numeric lineage
func (v *Version) IsRenamed() bool {
	major, minor, err := ParseVersionNumber(v.VersionNumber)
	if err != nil {
		return true
	}
	return major != v.Major || minor != v.Minor
}
