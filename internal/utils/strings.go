package utils

import (
	"regexp"
	"strings"

	"github.com/PolarWolf314/lastwill/internal/ui"
)

// emailRegex is a simple regex for validating email format.
// It checks for: local-part@domain.tld format.
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

var (
	identifierInvalid = regexp.MustCompile(`[^a-zA-Z0-9@.\-_]`)
	identifierRepeats = regexp.MustCompile(`-+`)
)

// FormatPaths formats a slice of paths into a readable string.
func FormatPaths(paths []string) string {
	var b strings.Builder
	b.WriteString("\n")
	for _, path := range paths {
		b.WriteString("    - ")
		b.WriteString(ui.Path.Sprint(path))
		b.WriteString("\n")
	}
	return b.String()
}

// IsValidEmail checks if the given string is a valid email address format.
func IsValidEmail(email string) bool {
	if email == "" {
		return false
	}
	return emailRegex.MatchString(email)
}

// SanitizeIdentifier makes a user identifier safe to embed in a file name.
// Case is preserved so distinct identifiers stay distinct.
func SanitizeIdentifier(id string) string {
	id = strings.TrimSpace(id)
	id = strings.ReplaceAll(id, " ", "-")
	id = identifierInvalid.ReplaceAllString(id, "")
	id = identifierRepeats.ReplaceAllString(id, "-")
	// No hidden files and no "." or ".." path elements.
	id = strings.TrimLeft(id, ".")
	id = strings.Trim(id, "-")

	if id == "" {
		id = "user"
	}
	return id
}
