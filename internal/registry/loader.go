// Package registry discovers whisper model weights on disk.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"subtitld/pkg/types"
)

// LoadDir scans a directory for whisper weight files and builds a registry
// from filenames. Recognized layouts are whisper.cpp's ggml-<size>.bin and
// <size>.gguf; the ID is the model size (e.g. "base.en", "large-v3").
func LoadDir(dir string) ([]types.Model, error) {
	base, err := expandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.Model
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		id, ok := sizeFromFilename(name)
		if !ok {
			continue
		}
		models = append(models, types.Model{
			ID:   id,
			Name: name,
			Path: filepath.Join(abs, name),
		})
	}
	return models, nil
}

// Find returns the model whose ID matches the requested size.
func Find(models []types.Model, size string) (types.Model, bool) {
	for _, m := range models {
		if m.ID == size {
			return m, true
		}
	}
	return types.Model{}, false
}

// sizeFromFilename extracts the model size selector from a weight filename.
func sizeFromFilename(name string) (string, bool) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasPrefix(lower, "ggml-") && strings.HasSuffix(lower, ".bin"):
		return name[len("ggml-") : len(name)-len(".bin")], true
	case strings.HasSuffix(lower, ".gguf"):
		return name[:len(name)-len(".gguf")], true
	default:
		return "", false
	}
}

// expandHome expands a leading '~' to the user's home directory.
func expandHome(path string) (string, error) {
	if path == "" {
		return path, nil
	}
	if path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}
