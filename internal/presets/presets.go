// Package presets loads named transcription defaults from JSON files.
// Each *.json file in the presets directory is one preset; its id is the
// filename without extension. Invalid files are skipped with a warning so
// one bad preset never hides the rest.
package presets

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"subtitld/pkg/types"
)

// LoadDir reads every preset under dir, sorted by id. A missing directory
// yields an empty list, not an error.
func LoadDir(dir string, log zerolog.Logger) ([]types.Preset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn().Str("dir", dir).Msg("presets directory not found")
			return nil, nil
		}
		return nil, err
	}

	var out []types.Preset
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		p, err := loadFile(path)
		if err != nil {
			log.Warn().Err(err).Str("file", path).Msg("skipping invalid preset")
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	log.Info().Int("count", len(out)).Str("dir", dir).Msg("loaded presets")
	return out, nil
}

// Find returns the preset with the given id.
func Find(list []types.Preset, id string) (types.Preset, bool) {
	for _, p := range list {
		if p.ID == id {
			return p, true
		}
	}
	return types.Preset{}, false
}

func loadFile(path string) (types.Preset, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.Preset{}, err
	}
	defer f.Close()

	var p types.Preset
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return types.Preset{}, err
	}
	if err := validate(p); err != nil {
		return types.Preset{}, err
	}

	base := filepath.Base(path)
	p.ID = strings.TrimSuffix(base, filepath.Ext(base))
	return p, nil
}

func validate(p types.Preset) error {
	if strings.TrimSpace(p.Name) == "" {
		return errMissingField("name")
	}
	if strings.TrimSpace(p.Engine) == "" {
		return errMissingField("engine")
	}
	if strings.TrimSpace(p.ModelSize) == "" {
		return errMissingField("model_size")
	}
	if p.Format != "" && p.Format != "srt" && p.Format != "json" {
		return errBadField("format", p.Format)
	}
	return nil
}

type fieldError struct {
	field, value string
	missing      bool
}

func (e fieldError) Error() string {
	if e.missing {
		return "preset is missing required field " + e.field
	}
	return "preset field " + e.field + " has invalid value " + e.value
}

func errMissingField(name string) error    { return fieldError{field: name, missing: true} }
func errBadField(name, value string) error { return fieldError{field: name, value: value} }
