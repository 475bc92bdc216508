package errors

import (
	"path/filepath"
	"strings"
	"unicode"
)

// maxNodeIDLength bounds ecosystem node identifiers.
const maxNodeIDLength = 256

// ValidateNodeID validates an ecosystem node identifier.
//
// Rules:
//   - No empty identifiers
//   - No control characters or null bytes
//   - Maximum length of 256 characters
//
// A "/" inside an id (URLs, scoped names) is allowed; tooltip paths are
// display strings and path lookups compare whole paths.
func ValidateNodeID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidEcosystem, "node id cannot be empty")
	}

	if len(id) > maxNodeIDLength {
		return New(ErrCodeInvalidEcosystem, "node id too long (max %d characters)", maxNodeIDLength)
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidEcosystem, "node id %q contains control characters", id)
		}
	}

	return nil
}

// ValidateClassName validates a node type used as a class attribute.
// Empty types are allowed; the node is then rendered without a class.
// Spaces yield several classes and markup is escaped by every sink, so only
// control characters are rejected.
func ValidateClassName(class string) error {
	for _, r := range class {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidEcosystem, "type %q contains control characters", class)
		}
	}
	return nil
}

// ValidatePath validates an ecosystem or output file path given on the
// command line or in configuration.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
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
			return New(ErrCodeInvalidPath, "path contains invalid control characters")
		}
	}

	return nil
}

// ValidateExtension checks that path ends in one of the allowed extensions.
// Extensions are compared case-insensitively and include the leading dot.
func ValidateExtension(path string, allowed ...string) error {
	ext := strings.ToLower(filepath.Ext(path))
	for _, a := range allowed {
		if ext == a {
			return nil
		}
	}
	return New(ErrCodeInvalidFormat, "unsupported file extension %q (want one of %s)", ext, strings.Join(allowed, ", "))
}
