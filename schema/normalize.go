package schema

import (
	"strings"
	"unicode"
)

// NormalizeProviderID validates and lowercases a provider identifier.
// Allowed characters: a-z, 0-9, '-', '_'.
func NormalizeProviderID(value string) (ProviderID, error) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if trimmed == "" {
		return "", ErrUnsupportedProvider
	}
	for _, r := range trimmed {
		if r == '-' || r == '_' {
			continue
		}
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			continue
		}
		return "", ErrUnsupportedProvider
	}
	return ProviderID(trimmed), nil
}

// NormalizeDisplayName trims a session or participant name and collapses
// control characters to spaces.
func NormalizeDisplayName(value string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, value)
	return strings.TrimSpace(mapped)
}

// ProjectSlug lowercases a project name and replaces spaces and underscores with hyphens.
func ProjectSlug(projectName string) string {
	slug := strings.ToLower(projectName)
	slug = strings.ReplaceAll(slug, " ", "-")
	return strings.ReplaceAll(slug, "_", "-")
}

// ProviderURL substitutes the project slug into a provider URL pattern.
func ProviderURL(pattern, projectName string) string {
	return strings.ReplaceAll(pattern, ProjectPlaceholder, ProjectSlug(projectName))
}
