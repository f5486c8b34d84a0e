package utils

import "strings"

// NormalizeName folds an item name for identity comparisons
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// IsBlank reports whether s has no visible characters
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
