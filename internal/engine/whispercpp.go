package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"subtitld/internal/registry"
	"subtitld/pkg/types"
)

// Engine names accepted by the factory.
const (
	EngineWhisperCpp    = "whisper-cpp"
	EngineWhisperServer = "whisper-server"
)

const defaultWhisperBin = "whisper-cli"

// whisperCppConfig is shared across instances built by the same factory.
type whisperCppConfig struct {
	bin     string
	models  []types.Model
	threads int
	log     zerolog.Logger
}

func (c *whisperCppConfig) binary() string {
	if c.bin == "" {
		return defaultWhisperBin
	}
	return c.bin
}

func (c *whisperCppConfig) available() bool {
	_, err := exec.LookPath(c.binary())
	return err == nil
}

// whisperCpp runs the whisper.cpp CLI per transcription. Load resolves and
// validates the weights so that a bad model size fails at acquire time, not
// mid-job; the CLI re-reads the weights on each run.
type whisperCpp struct {
	cfg       *whisperCppConfig
	modelSize string
	modelPath string
	threads   int
	useGPU    bool
}

func newWhisperCpp(cfg *whisperCppConfig) *whisperCpp {
	return &whisperCpp{cfg: cfg}
}

func (w *whisperCpp) Load(ctx context.Context, modelSize string, cfg LoadConfig) error {
	mdl, ok := registry.Find(w.cfg.models, modelSize)
	if !ok {
		known := make([]string, 0, len(w.cfg.models))
		for _, m := range w.cfg.models {
			known = append(known, m.ID)
		}
		return fmt.Errorf("model size %q not found in models dir (have: %v)", modelSize, known)
	}
	if _, err := os.Stat(mdl.Path); err != nil {
		return fmt.Errorf("model weights unreadable: %w", err)
	}
	w.modelSize = modelSize
	w.modelPath = mdl.Path
	w.threads = cfg.Threads
	if w.threads <= 0 {
		w.threads = w.cfg.threads
	}
	w.useGPU = cfg.UseGPU
	w.cfg.log.Info().Str("model", modelSize).Str("path", mdl.Path).Msg("whisper-cpp model resolved")
	return nil
}

func (w *whisperCpp) Transcribe(ctx context.Context, audioPath string, cfg TranscribeConfig) (types.TranscriptionResult, error) {
	if w.modelPath == "" {
		return types.TranscriptionResult{}, ErrRun(EngineWhisperCpp, fmt.Errorf("engine not loaded"))
	}
	outDir, err := os.MkdirTemp("", "subtitld-whisper-*")
	if err != nil {
		return types.TranscriptionResult{}, ErrRun(EngineWhisperCpp, err)
	}
	defer os.RemoveAll(outDir)
	outPrefix := filepath.Join(outDir, "out")

	args := []string{
		"-m", w.modelPath,
		"-f", audioPath,
		"-oj",
		"-of", outPrefix,
		"--no-prints",
	}
	if w.threads > 0 {
		args = append(args, "-t", strconv.Itoa(w.threads))
	}
	if !w.useGPU {
		args = append(args, "--no-gpu")
	}
	if cfg.Language != "" {
		args = append(args, "-l", cfg.Language)
	}
	if cfg.BeamSize > 0 {
		args = append(args, "-bs", strconv.Itoa(cfg.BeamSize))
	}
	if cfg.Temperature > 0 {
		args = append(args, "--temperature", strconv.FormatFloat(cfg.Temperature, 'f', -1, 64))
	}
	if cfg.InitialPrompt != "" {
		args = append(args, "--prompt", cfg.InitialPrompt)
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, w.cfg.binary(), args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		msg := strings.TrimSpace(string(out))
		if len(msg) > 512 {
			msg = msg[:512]
		}
		return types.TranscriptionResult{}, ErrRun(EngineWhisperCpp, fmt.Errorf("%w: %s", err, msg))
	}
	elapsed := time.Since(start)

	raw, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return types.TranscriptionResult{}, ErrRun(EngineWhisperCpp, fmt.Errorf("read output: %w", err))
	}
	res, err := parseWhisperCppJSON(raw)
	if err != nil {
		return types.TranscriptionResult{}, ErrRun(EngineWhisperCpp, err)
	}
	res.InferenceTimeMs = float64(elapsed) / float64(time.Millisecond)
	return res, nil
}

func (w *whisperCpp) Info() types.EngineInfo {
	sizes := make([]string, 0, len(w.cfg.models))
	for _, m := range w.cfg.models {
		sizes = append(sizes, m.ID)
	}
	return types.EngineInfo{
		Name:                   EngineWhisperCpp,
		Version:                "cli",
		SupportedModels:        sizes,
		SupportsWordTimestamps: false,
	}
}

// whisperCppOutput mirrors the JSON written by whisper.cpp with -oj.
type whisperCppOutput struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

func parseWhisperCppJSON(raw []byte) (types.TranscriptionResult, error) {
	var out whisperCppOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return types.TranscriptionResult{}, fmt.Errorf("parse output json: %w", err)
	}
	res := types.TranscriptionResult{Language: out.Result.Language}
	var full strings.Builder
	for _, seg := range out.Transcription {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		res.Segments = append(res.Segments, types.Segment{
			Start: float64(seg.Offsets.From) / 1000,
			End:   float64(seg.Offsets.To) / 1000,
			Text:  text,
		})
		if full.Len() > 0 {
			full.WriteByte(' ')
		}
		full.WriteString(text)
	}
	res.Text = full.String()
	return res, nil
}
