// Package testutil provides shared test helpers for fixtures on disk.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes body to dir/name and returns the path. It fails the
// test on error.
func WriteFile(t testing.TB, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write fixture %s: %v", path, err)
	}
	return path
}

// TempFile writes body to name in a fresh per-test directory.
func TempFile(t testing.TB, name, body string) string {
	t.Helper()
	return WriteFile(t, t.TempDir(), name, body)
}
