package host

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/marco-teran27/BatchProcessor/internal/domain"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", n, err)
		}
	}
}

func TestScan_FiltersByExtension(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.3dm", "b.3DM", "notes.txt", "c.3dm.bak")
	if err := os.Mkdir(filepath.Join(dir, "completion"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := NewDirScanner().Scan(dir, domain.FileFilter{Extensions: []string{".3dm"}})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	want := []string{"a.3dm", "b.3DM"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Scan = %v, want %v", got, want)
	}
}

func TestScan_FiltersByNamePattern(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "alpha_v1.3dm", "alpha_v2.3dm", "beta_v1.3dm")

	got, err := NewDirScanner().Scan(dir, domain.FileFilter{
		Extensions:   []string{".3dm"},
		NamePatterns: []string{"alpha_*"},
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	want := []string{"alpha_v1.3dm", "alpha_v2.3dm"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Scan = %v, want %v", got, want)
	}
}

func TestScan_EmptyFilterMatchesEverything(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "b.3dm", "a.txt")

	got, err := NewDirScanner().Scan(dir, domain.FileFilter{})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	want := []string{"a.txt", "b.3dm"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Scan = %v, want %v", got, want)
	}
}

func TestScan_BadPatternIsAnError(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.3dm")

	if _, err := NewDirScanner().Scan(dir, domain.FileFilter{NamePatterns: []string{"["}}); err == nil {
		t.Fatal("expected error for malformed pattern")
	}
}

func TestScan_MissingDirectory(t *testing.T) {
	if _, err := NewDirScanner().Scan(filepath.Join(t.TempDir(), "nope"), domain.FileFilter{}); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
