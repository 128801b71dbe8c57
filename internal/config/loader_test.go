package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "addr: :9999\nmodels_dir: /m\nmax_cached_models: 5\nvram_limit_percent: 75\nworkers: 4\ndefault_engine: whisper-cpp\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.ModelsDir != "/m" || cfg.MaxCachedModels != 5 ||
		cfg.VRAMLimitPercent != 75 || cfg.Workers != 4 || cfg.DefaultEngine != "whisper-cpp" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"addr":":7070","whisper_bin":"/opt/whisper/main","max_upload_mb":100,"allowed_origins":["https://app.example"]}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.WhisperBin != "/opt/whisper/main" || cfg.MaxUploadMB != 100 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "https://app.example" {
		t.Fatalf("origins not decoded: %v", cfg.AllowedOrigins)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "addr=\":8081\"\nmodels_dir=\"/x\"\nmax_jobs=50\nqueue_depth=16\ndefault_model_size=\"small\"\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8081" || cfg.ModelsDir != "/x" || cfg.MaxJobs != 50 ||
		cfg.QueueDepth != 16 || cfg.DefaultModelSize != "small" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
	p = writeTempFile(t, d, "cfg.yaml", "addr: [broken")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestMerge(t *testing.T) {
	base := Defaults()
	merged := Merge(base, Config{Addr: ":9000", Workers: 8})
	if merged.Addr != ":9000" || merged.Workers != 8 {
		t.Fatalf("overrides not applied: %+v", merged)
	}
	if merged.ModelsDir != base.ModelsDir || merged.MaxCachedModels != base.MaxCachedModels {
		t.Fatalf("untouched fields changed: %+v", merged)
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(Defaults()); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	bad := Defaults()
	bad.VRAMLimitPercent = 130
	if err := Validate(bad); err == nil {
		t.Fatal("expected error for vram limit above 100")
	}
	bad = Defaults()
	bad.Workers = 0
	if err := Validate(bad); err == nil {
		t.Fatal("expected error for zero workers")
	}
	bad = Defaults()
	bad.MaxCachedModels = 0
	if err := Validate(bad); err == nil {
		t.Fatal("expected error for zero cache capacity")
	}
}
