package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// maxLabelLength bounds tensor and index labels.
const maxLabelLength = 64

// labelRegex matches tensor and index labels: a letter followed by letters,
// digits, underscores or primes.
var labelRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_']*$`)

// ValidateLabel validates a tensor or index label.
//
// The validation rules are intentionally conservative:
//   - No empty labels
//   - Maximum length of 64 characters
//   - Must start with a letter
//   - Only letters, digits, underscores and primes
func ValidateLabel(label string) error {
	if label == "" {
		return New(ErrCodeInvalidInput, "label cannot be empty")
	}

	if len(label) > maxLabelLength {
		return New(ErrCodeInvalidInput, "label too long (max %d characters)", maxLabelLength)
	}

	if !labelRegex.MatchString(label) {
		return New(ErrCodeInvalidInput, "invalid label: %q", label)
	}

	return nil
}

// ValidateSpaceName validates an index space name used in configuration.
func ValidateSpaceName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidConfig, "space name cannot be empty")
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return New(ErrCodeInvalidConfig, "space name contains invalid character %q", r)
		}
	}
	return nil
}

// ValidatePath validates a relative data file path for safety.
// It prevents path traversal and ensures reasonable path length.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}
