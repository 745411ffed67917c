package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/meetmemo/meetmemo/internal/apperr"
)

const maxFilenameLen = 255

// SanitizeFilename reduces a user-supplied filename to a safe basename.
// Path components are stripped, characters outside [A-Za-z0-9 _.-] are
// removed, and the result must keep an extension and fit in 255 bytes.
// Sanitizing an already-sanitized name is a no-op.
func SanitizeFilename(name string) (string, error) {
	// Strip any path components, whichever separator the client used.
	name = name[strings.LastIndexByte(name, '/')+1:]
	name = name[strings.LastIndexByte(name, '\\')+1:]

	if strings.Contains(name, "..") {
		return "", apperr.Validation("filename must not contain '..'")
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '_', r == '.', r == '-':
			b.WriteRune(r)
		}
	}
	cleaned := strings.TrimSpace(b.String())

	if cleaned == "" {
		return "", apperr.Validation("filename is empty after sanitization")
	}
	if len(cleaned) > maxFilenameLen {
		return "", apperr.Validation("filename exceeds 255 characters")
	}
	ext := filepath.Ext(cleaned)
	if ext == "" || ext == cleaned {
		return "", apperr.Validation("filename must have an extension")
	}
	return cleaned, nil
}

// FallbackFilename builds a replacement name for inputs that fail
// sanitization, keeping the original extension when it is usable.
func FallbackFilename(original string) string {
	ext := filepath.Ext(original)
	if !validExt(ext) {
		ext = ".bin"
	}
	return uuid.NewString()[:8] + ext
}

func validExt(ext string) bool {
	if len(ext) < 2 || ext[0] != '.' {
		return false
	}
	for _, r := range ext[1:] {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !isAlnum {
			return false
		}
	}
	return true
}

// SafeFilename sanitizes name, substituting a fallback when the name cannot
// be salvaged.
func SafeFilename(name string) string {
	safe, err := SanitizeFilename(name)
	if err != nil {
		return FallbackFilename(name)
	}
	return safe
}

// UniqueFilename resolves name against dir, appending " (Copy)", " (Copy 2)",
// … before the extension until no file with that name exists.
func UniqueFilename(dir, name string) string {
	if !exists(filepath.Join(dir, name)) {
		return name
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for n := 1; ; n++ {
		suffix := " (Copy)"
		if n > 1 {
			suffix = fmt.Sprintf(" (Copy %d)", n)
		}
		candidate := base + suffix + ext
		if !exists(filepath.Join(dir, candidate)) {
			return candidate
		}
	}
}

// ResolveWithin joins name onto dir and verifies the result stays inside
// dir after canonicalization. Escapes are reported as not-found so path
// probing leaks nothing.
func ResolveWithin(dir, name string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("artifact: resolve dir: %w", err)
	}
	path := filepath.Join(absDir, name)
	if path != absDir && !strings.HasPrefix(path, absDir+string(filepath.Separator)) {
		return "", apperr.NotFound("file not found")
	}
	return path, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
