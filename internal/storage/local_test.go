package storage

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalStoreSaveAndOpen(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	data := []byte("artifact payload")
	path, err := store.Save("meme_0.png", data)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if path != store.Path("meme_0.png") {
		t.Errorf("returned path %q, want %q", path, store.Path("meme_0.png"))
	}

	r, err := store.Open("meme_0.png")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("read back %q, want %q", got, data)
	}
}

func TestLocalStoreExists(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	ok, err := store.Exists("missing.png")
	if err != nil || ok {
		t.Errorf("Exists(missing) = %v, %v", ok, err)
	}

	if _, err := store.Save("present.png", []byte("x")); err != nil {
		t.Fatal(err)
	}
	ok, err = store.Exists("present.png")
	if err != nil || !ok {
		t.Errorf("Exists(present) = %v, %v", ok, err)
	}
}

func TestLocalStoreOverwrite(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := store.Save("a.csv", []byte("first")); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Save("a.csv", []byte("second")); err != nil {
		t.Fatal(err)
	}

	r, err := store.Open("a.csv")
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	got, _ := io.ReadAll(r)
	if string(got) != "second" {
		t.Errorf("overwrite left %q", got)
	}
}

func TestLocalStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if _, err := store.Save("meme.png", []byte("payload")); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		t.Errorf("expected only the final artifact, found %v", names)
	}
}

func TestLocalStorePathStripsDirectories(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	got := store.Path("../../etc/passwd")
	if got != filepath.Join(dir, "passwd") {
		t.Errorf("Path escaped the store dir: %q", got)
	}
}

func TestLocalStoreCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "output")
	if _, err := NewLocalStore(dir); err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Errorf("output directory not created: %v", err)
	}
}
