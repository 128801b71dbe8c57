package types

// Word is a word-level timestamp within a segment.
type Word struct {
	// Word start time in seconds.
	// example: 0.0
	Start float64 `json:"start" example:"0.0"`
	// Word end time in seconds.
	// example: 0.5
	End float64 `json:"end" example:"0.5"`
	// The word text.
	// example: Hello
	Word string `json:"word" example:"Hello"`
	// Confidence score in [0,1], if the engine reports one.
	// example: 0.98
	Confidence float64 `json:"confidence,omitempty" example:"0.98"`
}

// Segment is a time-aligned transcript segment (sentence or phrase).
type Segment struct {
	// Segment start time in seconds.
	// example: 0.0
	Start float64 `json:"start" example:"0.0"`
	// Segment end time in seconds.
	// example: 2.5
	End float64 `json:"end" example:"2.5"`
	// Transcribed text for this segment.
	// example: Hello world.
	Text string `json:"text" example:"Hello world."`
	// Word-level timestamps, when available.
	Words []Word `json:"words,omitempty"`
}

// TranscriptionResult is the complete output of one engine run.
type TranscriptionResult struct {
	// Full transcription text.
	Text string `json:"text"`
	// Detected or requested language code.
	// example: en
	Language string `json:"language" example:"en"`
	// Time-aligned segments.
	Segments []Segment `json:"segments"`
	// Inference time in milliseconds.
	// example: 1523.5
	InferenceTimeMs float64 `json:"inference_time_ms" example:"1523.5"`
}

// EngineInfo describes an ASR engine's capabilities.
type EngineInfo struct {
	// Engine name.
	// example: whisper-cpp
	Name string `json:"name" example:"whisper-cpp"`
	// Engine version string.
	// example: 1.7.4
	Version string `json:"version" example:"1.7.4"`
	// Model sizes the engine accepts.
	SupportedModels []string `json:"supported_models"`
	// Whether the engine can emit word-level timestamps.
	// example: true
	SupportsWordTimestamps bool `json:"supports_word_timestamps" example:"true"`
}

// Model represents a discoverable whisper model file on disk.
type Model struct {
	// Stable identifier, also the model size selector (e.g. base.en).
	// example: base.en
	ID string `json:"id" example:"base.en"`
	// Human-friendly name, usually the filename.
	// example: ggml-base.en.bin
	Name string `json:"name" example:"ggml-base.en.bin"`
	// Absolute path to the model file on disk.
	// example: /home/user/models/whisper/ggml-base.en.bin
	Path string `json:"path" example:"/home/user/models/whisper/ggml-base.en.bin"`
}
