package types

// SubmitResponse is returned by POST /subtitle.
type SubmitResponse struct {
	// Identifier used to poll job status.
	// example: 1a2b3c4d
	JobID string `json:"job_id" example:"1a2b3c4d"`
	// Job status at submission time (always pending).
	// example: pending
	Status string `json:"status" example:"pending"`
	// Human-readable confirmation.
	// example: Job submitted successfully
	Message string `json:"message" example:"Job submitted successfully"`
}

// ResultMetadata carries timing and resource figures for a finished job.
type ResultMetadata struct {
	// ASR engine that produced the result.
	// example: whisper-cpp
	Engine string `json:"engine,omitempty" example:"whisper-cpp"`
	// Model size used.
	// example: base.en
	ModelSize string `json:"model_size,omitempty" example:"base.en"`
	// Detected or requested language.
	// example: en
	Language string `json:"language,omitempty" example:"en"`
	// Duration of the source audio in seconds.
	// example: 63.2
	AudioDurationS float64 `json:"audio_duration_s" example:"63.2"`
	// Engine inference time in milliseconds.
	// example: 1523.5
	InferenceTimeMs float64 `json:"inference_time_ms" example:"1523.5"`
	// Engine acquisition (cache lookup/load) time in milliseconds.
	// example: 220.1
	AcquireTimeMs float64 `json:"acquire_time_ms" example:"220.1"`
	// Wall-clock time from pickup to completion in milliseconds.
	// example: 1810.0
	TotalTimeMs float64 `json:"total_time_ms" example:"1810.0"`
	// Processing time divided by audio duration.
	// example: 0.028
	RealTimeFactor float64 `json:"real_time_factor" example:"0.028"`
	// VRAM in use when the job finished, if monitoring is active.
	// example: 1207.5
	VRAMUsedMB float64 `json:"vram_used_mb,omitempty" example:"1207.5"`
}

// JobResult is the payload of a completed job. Type selects which of the
// remaining fields are populated: "srt" fills Content/Filename, "json"
// fills Transcript.
type JobResult struct {
	// Result kind: srt or json.
	// example: srt
	Type string `json:"type" example:"srt"`
	// Rendered subtitle file content (srt only).
	Content string `json:"content,omitempty"`
	// Suggested download filename (srt only).
	// example: interview.srt
	Filename string `json:"filename,omitempty" example:"interview.srt"`
	// Structured transcription (json only).
	Transcript *TranscriptionResult `json:"transcript,omitempty"`
	// Timing and resource metadata.
	Metadata ResultMetadata `json:"metadata"`
}

// JobResponse is returned by GET /jobs/{id}.
type JobResponse struct {
	JobID string `json:"job_id" example:"1a2b3c4d"`
	// Current status: pending, processing, completed or failed.
	// example: processing
	Status string `json:"status" example:"processing"`
	// Progress in percent, 0-100.
	// example: 30
	Progress int `json:"progress" example:"30"`
	// Result payload, present only when completed.
	Result *JobResult `json:"result,omitempty"`
	// Error message, present only when failed.
	Error string `json:"error,omitempty"`
}

// JobSummary is one row of GET /jobs.
type JobSummary struct {
	JobID     string `json:"job_id" example:"1a2b3c4d"`
	Status    string `json:"status" example:"completed"`
	Progress  int    `json:"progress" example:"100"`
	Format    string `json:"format" example:"srt"`
	Filename  string `json:"filename" example:"interview.mp3"`
	CreatedAt int64  `json:"created_at_unix" example:"1700000000"`
}

// JobsResponse wraps GET /jobs.
type JobsResponse struct {
	Jobs []JobSummary `json:"jobs"`
}

// CacheStats summarizes the model cache for /status.
type CacheStats struct {
	// Number of resident engine instances.
	// example: 2
	Count int `json:"count" example:"2"`
	// Resident cache keys as engine/model pairs.
	Keys []string `json:"keys"`
	// Sum of measured VRAM deltas across resident entries.
	// example: 2415.0
	TotalVRAMMB float64 `json:"total_vram_mb" example:"2415.0"`
	// Lifetime hit count.
	// example: 42
	Hits uint64 `json:"hits" example:"42"`
	// Lifetime miss count.
	// example: 7
	Misses uint64 `json:"misses" example:"7"`
	// Lifetime successful loads.
	// example: 7
	Loads uint64 `json:"loads" example:"7"`
	// Lifetime evictions (LRU overflow plus pressure sweeps).
	// example: 3
	Evictions uint64 `json:"evictions" example:"3"`
}

// GPUInfo is a point-in-time device memory snapshot for /status and /gpu.
type GPUInfo struct {
	// Whether a monitored device is present.
	// example: true
	Available bool `json:"available" example:"true"`
	// Device name, when available.
	// example: NVIDIA GeForce RTX 3090
	DeviceName string `json:"device_name,omitempty" example:"NVIDIA GeForce RTX 3090"`
	// Total device memory in MB.
	// example: 24576
	TotalMB float64 `json:"total_mb" example:"24576"`
	// Used device memory in MB.
	// example: 2048
	UsedMB float64 `json:"used_mb" example:"2048"`
	// Free device memory in MB.
	// example: 22528
	FreeMB float64 `json:"free_mb" example:"22528"`
	// Used/total in percent.
	// example: 8.3
	UsagePercent float64 `json:"usage_percent" example:"8.3"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Model cache snapshot.
	Cache CacheStats `json:"cache"`
	// Job counts by status.
	Jobs map[string]int `json:"jobs"`
	// Workers in the pool.
	// example: 2
	Workers int `json:"workers" example:"2"`
	// Device memory snapshot.
	GPU GPUInfo `json:"gpu"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// Preset is a named bundle of request defaults loaded from disk.
type Preset struct {
	// Identifier derived from the preset filename.
	// example: podcast
	ID string `json:"id" example:"podcast"`
	// Display name.
	// example: Podcast (English)
	Name string `json:"name" example:"Podcast (English)"`
	// Free-form description.
	Description string `json:"description,omitempty"`
	// ASR engine to use.
	// example: whisper-cpp
	Engine string `json:"engine" example:"whisper-cpp"`
	// Model size to use.
	// example: base.en
	ModelSize string `json:"model_size" example:"base.en"`
	// Language hint, empty means auto-detect.
	// example: en
	Language string `json:"language,omitempty" example:"en"`
	// Output format: srt or json.
	// example: srt
	Format string `json:"format,omitempty" example:"srt"`
	// Formatter defaults.
	MaxLineWidth int  `json:"max_line_width,omitempty" example:"42"`
	MaxLineCount int  `json:"max_line_count,omitempty" example:"2"`
	WordLevel    bool `json:"word_level,omitempty"`
}

// PresetsResponse wraps GET /presets.
type PresetsResponse struct {
	Presets []Preset `json:"presets"`
}
