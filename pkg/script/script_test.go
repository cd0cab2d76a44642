package script

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadUTF8(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "hello.rsc", []byte("print \"héllo\"\n"))

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != "print \"héllo\"\n" {
		t.Errorf("content = %q", got)
	}
}

func TestLoadShiftJISFallback(t *testing.T) {
	dir := t.TempDir()

	src := "print \"こんにちは\"\n"
	encoded, _, err := transform.String(japanese.ShiftJIS.NewEncoder(), src)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	path := writeFile(t, dir, "legacy.rsc", []byte(encoded))

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != src {
		t.Errorf("content = %q, want decoded UTF-8", got)
	}
}

func TestLoadCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Startup.RSC", []byte("print ok\n"))

	got, err := Load(filepath.Join(dir, "startup.rsc"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != "print ok\n" {
		t.Errorf("content = %q", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.rsc")); err == nil {
		t.Error("missing file loaded without error")
	}
}

func TestFindAppendsExtension(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "setup.rsc", []byte("print ok\n"))

	got, err := Find(filepath.Join(dir, "setup"))
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if !strings.HasSuffix(got, "setup.rsc") {
		t.Errorf("resolved path = %q", got)
	}

	if _, err := Find(filepath.Join(dir, "ghost")); err == nil {
		t.Error("Find resolved a missing script")
	}
}
