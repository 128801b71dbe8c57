package registry

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDirFiltersWeights(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		"ggml-base.en.bin",
		"ggml-large-v3.bin",
		"tiny.gguf",
		"README.md",
		"checkpoint.pt",
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(dir, f), []byte(""), 0o644); err != nil {
			t.Fatalf("write temp file: %v", err)
		}
	}
	models, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if len(models) != 3 {
		t.Fatalf("expected 3 models, got %d: %+v", len(models), models)
	}
	ids := map[string]bool{}
	for _, m := range models {
		ids[m.ID] = true
		if m.Path == "" || !filepath.IsAbs(m.Path) {
			t.Fatalf("expected absolute path, got %q", m.Path)
		}
	}
	for _, want := range []string{"base.en", "large-v3", "tiny"} {
		if !ids[want] {
			t.Fatalf("missing model id %q in %v", want, ids)
		}
	}
}

func TestLoadDirMissing(t *testing.T) {
	if _, err := LoadDir(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatalf("expected error for missing dir")
	}
}

func TestFind(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "ggml-small.bin"), []byte(""), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	models, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := Find(models, "small"); !ok {
		t.Fatalf("expected to find small")
	}
	if _, ok := Find(models, "large-v3"); ok {
		t.Fatalf("did not expect large-v3")
	}
}

func TestSizeFromFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"ggml-base.en.bin", "base.en", true},
		{"ggml-large-v3.bin", "large-v3", true},
		{"medium.gguf", "medium", true},
		{"ggml-base.en.zip", "", false},
		{"weights.bin", "", false},
	}
	for _, c := range cases {
		got, ok := sizeFromFilename(c.in)
		if ok != c.ok || got != c.want {
			t.Fatalf("%s: got (%q,%v) want (%q,%v)", c.in, got, ok, c.want, c.ok)
		}
	}
}
