package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateFilePath validates a project file path as used by the VFS.
// Paths are rooted at the project ("/App.tsx", "/components/Card.tsx").
//
// Validation rules:
//   - Path cannot be empty and must start with "/"
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidateFilePath(path string) error {
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

	if !strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be project-rooted (start with /): %q", path)
	}

	for _, seg := range strings.Split(path, "/") {
		if seg == ".." {
			return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
		}
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}

// componentNameRegex matches identifiers usable as markup tag names,
// including member expressions such as "Card.Header".
var componentNameRegex = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$-]*(\.[A-Za-z_$][A-Za-z0-9_$]*)*$`)

// ValidateComponentName validates a component type used as a tag name.
func ValidateComponentName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "component name cannot be empty")
	}
	if !componentNameRegex.MatchString(name) {
		return New(ErrCodeInvalidInput, "invalid component name: %q", name)
	}
	return nil
}

// ValidateImportPath validates a module specifier for an import statement.
func ValidateImportPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidInput, "import path cannot be empty")
	}
	if strings.ContainsAny(path, "\"'`\n\r") {
		return New(ErrCodeInvalidInput, "import path contains quote or newline: %q", path)
	}
	return nil
}
