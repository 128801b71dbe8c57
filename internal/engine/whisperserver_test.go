package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestWhisperServerLoadAndTranscribe(t *testing.T) {
	var loadedModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/load":
			if err := r.ParseForm(); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			loadedModel = r.FormValue("model")
			w.WriteHeader(http.StatusOK)
		case "/inference":
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if _, _, err := r.FormFile("file"); err != nil {
				http.Error(w, "missing file", http.StatusBadRequest)
				return
			}
			if got := r.FormValue("response_format"); got != "verbose_json" {
				http.Error(w, "bad response_format "+got, http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{
				"language": "en",
				"text": " Hello world.",
				"segments": [
					{"start": 0, "end": 2.5, "text": " Hello world.",
					 "words": [{"word": " Hello", "start": 0, "end": 0.5, "probability": 0.98}]}
				]
			}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	eng := newWhisperServer(srv.URL, zerolog.Nop())
	if err := eng.Load(context.Background(), "base.en", LoadConfig{}); err != nil {
		t.Fatalf("load: %v", err)
	}
	if loadedModel != "base.en" {
		t.Fatalf("server did not receive model: %q", loadedModel)
	}

	audio := filepath.Join(t.TempDir(), "in.wav")
	if err := os.WriteFile(audio, []byte("RIFF"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	res, err := eng.Transcribe(context.Background(), audio, TranscribeConfig{WordTimestamps: true})
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if res.Text != "Hello world." {
		t.Fatalf("text: %q", res.Text)
	}
	if len(res.Segments) != 1 || len(res.Segments[0].Words) != 1 {
		t.Fatalf("segments/words not parsed: %+v", res.Segments)
	}
	if res.Segments[0].Words[0].Word != "Hello" {
		t.Fatalf("word not trimmed: %q", res.Segments[0].Words[0].Word)
	}
	if res.InferenceTimeMs <= 0 {
		t.Fatalf("inference time not measured")
	}
}

func TestWhisperServerLoadFallsBackToHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/load":
			http.NotFound(w, r)
		case "/health":
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	eng := newWhisperServer(srv.URL, zerolog.Nop())
	if err := eng.Load(context.Background(), "base", LoadConfig{}); err != nil {
		t.Fatalf("load with /health fallback: %v", err)
	}
}

func TestWhisperServerLoadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such model", http.StatusInternalServerError)
	}))
	defer srv.Close()

	eng := newWhisperServer(srv.URL, zerolog.Nop())
	if err := eng.Load(context.Background(), "base", LoadConfig{}); err == nil {
		t.Fatalf("expected load failure")
	}
}

func TestWhisperServerTranscribeHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	audio := filepath.Join(t.TempDir(), "in.wav")
	if err := os.WriteFile(audio, []byte("RIFF"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	eng := newWhisperServer(srv.URL, zerolog.Nop())
	if _, err := eng.Transcribe(context.Background(), audio, TranscribeConfig{}); !IsRunFailure(err) {
		t.Fatalf("expected run failure, got %v", err)
	}
}
