// Package engine defines the ASR engine contract and its concrete
// adapters. An Engine is created unloaded by the Factory, loaded once with
// a model size, and then serves any number of Transcribe calls. Engines do
// not cache or evict anything themselves; that is the manager's job.
package engine

import (
	"context"

	"subtitld/pkg/types"
)

// LoadConfig carries engine-level load parameters.
type LoadConfig struct {
	// Threads for inference; 0 lets the engine decide.
	Threads int
	// UseGPU requests device offload when the engine supports it.
	UseGPU bool
}

// TranscribeConfig carries per-request transcription parameters.
type TranscribeConfig struct {
	// Language code hint; empty means auto-detect.
	Language string
	// WordTimestamps requests word-level timing when supported.
	WordTimestamps bool
	// BeamSize for decoding; 0 uses the engine default.
	BeamSize int
	// Temperature for sampling fallback.
	Temperature float64
	// InitialPrompt seeds the decoder context.
	InitialPrompt string
}

// Engine is a speech-recognition engine instance.
//
// Load must be called exactly once before Transcribe. A failed Load leaves
// the instance unusable; callers discard it rather than retrying.
type Engine interface {
	// Load loads model weights for the given size.
	Load(ctx context.Context, modelSize string, cfg LoadConfig) error
	// Transcribe turns an audio file into timed text.
	Transcribe(ctx context.Context, audioPath string, cfg TranscribeConfig) (types.TranscriptionResult, error)
	// Info describes the engine's capabilities.
	Info() types.EngineInfo
}
