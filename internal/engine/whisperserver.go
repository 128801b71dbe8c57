package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"subtitld/pkg/types"
)

// whisperServer talks to a running whisper.cpp server over HTTP. The server
// owns the weights; Load asks it to switch models and waits for readiness,
// Transcribe posts the audio to /inference.
type whisperServer struct {
	baseURL   string
	client    *http.Client
	log       zerolog.Logger
	modelSize string
}

func newWhisperServer(baseURL string, log zerolog.Logger) *whisperServer {
	// Timeout stays 0: transcriptions can run for minutes, callers bound
	// them with request contexts.
	return &whisperServer{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 0},
		log:     log,
	}
}

func (w *whisperServer) Load(ctx context.Context, modelSize string, _ LoadConfig) error {
	form := strings.NewReader("model=" + modelSize)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/load", form)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("whisper server unreachable: %w", err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// Model switched.
	case resp.StatusCode == http.StatusNotFound:
		// Older servers have no /load; the startup model serves everything.
		if err := w.healthy(ctx); err != nil {
			return err
		}
	default:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("whisper server load failed: %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}
	w.modelSize = modelSize
	w.log.Info().Str("model", modelSize).Str("url", w.baseURL).Msg("whisper-server model ready")
	return nil
}

func (w *whisperServer) healthy(ctx context.Context) error {
	hctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(hctx, http.MethodGet, w.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("whisper server unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("whisper server unhealthy: %s", resp.Status)
	}
	return nil
}

func (w *whisperServer) Transcribe(ctx context.Context, audioPath string, cfg TranscribeConfig) (types.TranscriptionResult, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return types.TranscriptionResult{}, ErrRun(EngineWhisperServer, err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return types.TranscriptionResult{}, ErrRun(EngineWhisperServer, err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return types.TranscriptionResult{}, ErrRun(EngineWhisperServer, err)
	}
	_ = mw.WriteField("response_format", "verbose_json")
	if cfg.Language != "" {
		_ = mw.WriteField("language", cfg.Language)
	}
	if cfg.Temperature > 0 {
		_ = mw.WriteField("temperature", strconv.FormatFloat(cfg.Temperature, 'f', -1, 64))
	}
	if cfg.WordTimestamps {
		_ = mw.WriteField("word_timestamps", "true")
	}
	if cfg.InitialPrompt != "" {
		_ = mw.WriteField("prompt", cfg.InitialPrompt)
	}
	if err := mw.Close(); err != nil {
		return types.TranscriptionResult{}, ErrRun(EngineWhisperServer, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/inference", &body)
	if err != nil {
		return types.TranscriptionResult{}, ErrRun(EngineWhisperServer, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	start := time.Now()
	resp, err := w.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return types.TranscriptionResult{}, ctx.Err()
		}
		return types.TranscriptionResult{}, ErrRun(EngineWhisperServer, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return types.TranscriptionResult{}, ErrRun(EngineWhisperServer,
			fmt.Errorf("http error: %s: %s", resp.Status, strings.TrimSpace(string(b))))
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.TranscriptionResult{}, ErrRun(EngineWhisperServer, err)
	}
	res, err := parseVerboseJSON(raw)
	if err != nil {
		return types.TranscriptionResult{}, ErrRun(EngineWhisperServer, err)
	}
	res.InferenceTimeMs = float64(time.Since(start)) / float64(time.Millisecond)
	return res, nil
}

func (w *whisperServer) Info() types.EngineInfo {
	return types.EngineInfo{
		Name:                   EngineWhisperServer,
		Version:                "http",
		SupportedModels:        nil, // server-side; any size the server can load
		SupportsWordTimestamps: true,
	}
}

// verboseJSONOutput mirrors the OpenAI-style verbose_json transcription body.
type verboseJSONOutput struct {
	Language string  `json:"language"`
	Text     string  `json:"text"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
		Words []struct {
			Word        string  `json:"word"`
			Start       float64 `json:"start"`
			End         float64 `json:"end"`
			Probability float64 `json:"probability"`
		} `json:"words"`
	} `json:"segments"`
}

func parseVerboseJSON(raw []byte) (types.TranscriptionResult, error) {
	var out verboseJSONOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return types.TranscriptionResult{}, fmt.Errorf("parse verbose_json: %w", err)
	}
	res := types.TranscriptionResult{
		Language: out.Language,
		Text:     strings.TrimSpace(out.Text),
	}
	for _, seg := range out.Segments {
		s := types.Segment{
			Start: seg.Start,
			End:   seg.End,
			Text:  strings.TrimSpace(seg.Text),
		}
		for _, w := range seg.Words {
			s.Words = append(s.Words, types.Word{
				Start:      w.Start,
				End:        w.End,
				Word:       strings.TrimSpace(w.Word),
				Confidence: w.Probability,
			})
		}
		res.Segments = append(res.Segments, s)
	}
	return res, nil
}
