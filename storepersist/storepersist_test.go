package storepersist

import (
	"os"
	"path/filepath"
	"testing"
)

type sample struct {
	Name  string
	Value int
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "meta.json")

	in := sample{Name: "a", Value: 42}
	if err := Save(path, in, Options{}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var out sample
	if _, err := Load(path, &out); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out != in {
		t.Errorf("got %+v, want %+v", out, in)
	}
}

func TestSaveLoadCompressed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "meta.json")

	in := sample{Name: "compressed", Value: 7}
	if err := Save(path, in, Options{Compress: true}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	var out sample
	if _, err := Load(path, &out); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out != in {
		t.Errorf("got %+v, want %+v", out, in)
	}
}

func TestLoadDetectsCorruption(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "meta.json")
	if err := Save(path, sample{Name: "a", Value: 1}, Options{}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	b[len(b)-1] ^= 0xFF // flip a byte in the payload
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatal(err)
	}

	var out sample
	if _, err := Load(path, &out); err == nil {
		t.Fatal("expected checksum error")
	}
}

func TestSaveIsAtomicNoTempLeftBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "meta.json")
	if err := Save(path, sample{Name: "a"}, Options{}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "meta.json" {
		t.Fatalf("expected only meta.json in dir, got %v", entries)
	}
}
