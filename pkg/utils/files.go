package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// MakeDir creates a directory with all parent directories
func MakeDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// SanitizeFilename reduces name to a safe base name. Path separators and
// anything outside [A-Za-z0-9._-] become '_'.
func SanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == ".." {
		return "upload"
	}
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := b.String()
	if len(out) > 96 {
		out = out[len(out)-96:]
	}
	return out
}

// UniqueTempName builds a per-call unique file name: <prefix>_<unixnano>_<uuid>_<sanitised name>.
func UniqueTempName(prefix, filename string) string {
	return fmt.Sprintf("%s_%d_%s_%s", prefix, time.Now().UnixNano(), GenerateUUID(), SanitizeFilename(filename))
}

// FileStem returns the base name of path without its extension.
func FileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
