// Package script loads RetroScript source files from disk.
package script

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"github.com/morroware/retroscript/pkg/logger"
)

// Ext is the canonical script file extension.
const Ext = ".rsc"

// Load reads a script file as UTF-8. Files carrying a legacy Shift-JIS
// encoding are transparently decoded. The path lookup is
// case-insensitive, so scripts authored on case-insensitive
// filesystems keep working.
func Load(path string) (string, error) {
	resolved, err := FindFileCaseInsensitive(path)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", fmt.Errorf("failed to read script %s: %w", resolved, err)
	}

	if utf8.Valid(data) {
		return string(data), nil
	}

	logger.Get().Debug("script is not valid UTF-8, decoding as Shift-JIS", "path", resolved)

	reader := transform.NewReader(strings.NewReader(string(data)), japanese.ShiftJIS.NewDecoder())
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to decode script %s: %w", resolved, err)
	}
	return string(decoded), nil
}

// Find resolves a script name to a file path, trying the name as given
// and with the canonical extension appended.
func Find(name string) (string, error) {
	if p, err := FindFileCaseInsensitive(name); err == nil {
		return p, nil
	}
	if !strings.EqualFold(filepath.Ext(name), Ext) {
		if p, err := FindFileCaseInsensitive(name + Ext); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("script not found: %s", name)
}

// FindFileCaseInsensitive returns the path of an existing file whose
// name matches path ignoring case. An exact match wins.
func FindFileCaseInsensitive(path string) (string, error) {
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("file not found: %s", path)
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.EqualFold(entry.Name(), base) {
			return filepath.Join(dir, entry.Name()), nil
		}
	}
	return "", fmt.Errorf("file not found: %s", path)
}
