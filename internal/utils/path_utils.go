package utils

import (
	"path/filepath"
	"strings"

	"github.com/funvibe/irslots/internal/config"
)

// ResolveIncludePath resolves an include path relative to the including document's directory.
// Absolute paths are returned as is.
func ResolveIncludePath(baseDir, includePath string) string {
	if filepath.IsAbs(includePath) {
		return includePath
	}
	if baseDir != "." && baseDir != "" {
		return filepath.Join(baseDir, includePath)
	}
	return includePath
}

// ExtractDocumentName derives a document name from a file path.
// It takes the base filename and removes a recognized layout extension.
func ExtractDocumentName(path string) string {
	name := filepath.Base(path)
	for _, ext := range []string{config.LayoutFileExt, ".yml"} {
		if strings.HasSuffix(name, ext) {
			return strings.TrimSuffix(name, ext)
		}
	}
	return name
}
