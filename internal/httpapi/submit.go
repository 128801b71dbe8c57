package httpapi

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"subtitld/internal/engine"
	"subtitld/internal/jobs"
	"subtitld/internal/presets"
	"subtitld/pkg/types"
)

// requestError is a validation failure with an HTTP status attached.
type requestError struct {
	status int
	msg    string
}

func (e requestError) Error() string   { return e.msg }
func (e requestError) StatusCode() int { return e.status }

func badRequest(status int, msg string) error { return requestError{status: status, msg: msg} }

// handleSubmit accepts a multipart audio upload, stages it to a temporary
// file and enqueues a transcription job. The response carries the job id
// for polling; the upload itself is the only synchronous part.
func (s *server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.deps.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
			return
		}
		writeJSONError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("audio_file")
	if err != nil {
		writeJSONError(w, http.StatusUnprocessableEntity, "audio_file is required")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !supportedAudioExts[ext] {
		writeJSONError(w, http.StatusUnsupportedMediaType, "unsupported audio format: "+ext)
		return
	}

	work, err := s.buildWork(r, header.Filename)
	if err != nil {
		var he HTTPError
		if errors.As(err, &he) {
			writeJSONError(w, he.StatusCode(), he.Error())
			return
		}
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	staged, err := stageUpload(file, ext)
	if err != nil {
		s.deps.Log.Error().Err(err).Msg("failed to stage upload")
		writeJSONError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	work.AudioPath = staged

	id, err := s.deps.Runner.Submit(work)
	if err != nil {
		// The job never reached a worker, so the staged file is ours to
		// clean up.
		os.Remove(staged)
		if errors.Is(err, jobs.ErrQueueFull) {
			IncrementBackpressure("queue_full")
			writeJSONError(w, http.StatusServiceUnavailable, "worker queue is full, retry later")
			return
		}
		writeJSONError(w, http.StatusServiceUnavailable, "server is shutting down")
		return
	}

	s.deps.Log.Info().
		Str("job_id", id).
		Str("filename", header.Filename).
		Str("engine", work.Engine).
		Str("model_size", work.ModelSize).
		Msg("job submitted")
	writeJSON(w, http.StatusAccepted, types.SubmitResponse{
		JobID:   id,
		Status:  string(jobs.StatusPending),
		Message: "Job submitted successfully",
	})
}

// buildWork assembles the job parameters from defaults, an optional preset and
// explicit form fields, in that order of precedence.
func (s *server) buildWork(r *http.Request, filename string) (jobs.Work, error) {
	work := jobs.Work{
		Filename:  filename,
		Format:    "srt",
		Engine:    s.deps.DefaultEngine,
		ModelSize: s.deps.DefaultModelSize,
		Load:      engine.LoadConfig{UseGPU: true},
		Transcribe: engine.TranscribeConfig{
			WordTimestamps: true,
		},
	}

	if id := r.FormValue("preset"); id != "" {
		p, ok := presets.Find(s.deps.Presets, id)
		if !ok {
			return jobs.Work{}, badRequest(http.StatusUnprocessableEntity, "unknown preset: "+id)
		}
		if p.Engine != "" {
			work.Engine = p.Engine
		}
		if p.ModelSize != "" {
			work.ModelSize = p.ModelSize
		}
		if p.Format != "" {
			work.Format = p.Format
		}
		work.Transcribe.Language = p.Language
		work.Subtitle.MaxLineWidth = p.MaxLineWidth
		work.Subtitle.MaxLineCount = p.MaxLineCount
		work.Subtitle.WordLevel = p.WordLevel
	}

	if v := r.FormValue("format"); v != "" {
		if v != "srt" && v != "json" {
			return jobs.Work{}, badRequest(http.StatusUnprocessableEntity, "format must be srt or json")
		}
		work.Format = v
	}
	if v := r.FormValue("engine"); v != "" {
		work.Engine = v
	}
	if v := r.FormValue("model_size"); v != "" {
		work.ModelSize = v
	}
	if v := r.FormValue("language"); v != "" {
		work.Transcribe.Language = v
	}
	if v := r.FormValue("initial_prompt"); v != "" {
		work.Transcribe.InitialPrompt = v
	}

	var err error
	if work.Transcribe.WordTimestamps, err = formBool(r, "word_timestamps", work.Transcribe.WordTimestamps); err != nil {
		return jobs.Work{}, err
	}
	if work.Transcribe.BeamSize, err = formInt(r, "beam_size", work.Transcribe.BeamSize); err != nil {
		return jobs.Work{}, err
	}
	if work.Transcribe.Temperature, err = formFloat(r, "temperature", work.Transcribe.Temperature); err != nil {
		return jobs.Work{}, err
	}
	if work.Load.UseGPU, err = formBool(r, "use_gpu", work.Load.UseGPU); err != nil {
		return jobs.Work{}, err
	}

	if work.Subtitle.MaxLineWidth, err = formInt(r, "max_line_width", work.Subtitle.MaxLineWidth); err != nil {
		return jobs.Work{}, err
	}
	if work.Subtitle.MaxLineCount, err = formInt(r, "max_line_count", work.Subtitle.MaxLineCount); err != nil {
		return jobs.Work{}, err
	}
	if work.Subtitle.WordLevel, err = formBool(r, "word_level", work.Subtitle.WordLevel); err != nil {
		return jobs.Work{}, err
	}
	if work.Subtitle.AdjustTiming, err = formBool(r, "adjust_timing", work.Subtitle.AdjustTiming); err != nil {
		return jobs.Work{}, err
	}
	if work.Subtitle.SplitByPunctuation, err = formBool(r, "split_by_punctuation", work.Subtitle.SplitByPunctuation); err != nil {
		return jobs.Work{}, err
	}
	// Word-level entries need word timestamps from the engine.
	if work.Subtitle.WordLevel || work.Subtitle.SplitByPunctuation {
		work.Transcribe.WordTimestamps = true
	}
	return work, nil
}

// stageUpload copies the uploaded file to a private temporary file owned
// by the job from here on.
func stageUpload(src io.Reader, ext string) (string, error) {
	tmp, err := os.CreateTemp("", "subtitld-*"+ext)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

func formBool(r *http.Request, name string, def bool) (bool, error) {
	v := r.FormValue(name)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, badRequest(http.StatusUnprocessableEntity, name+" must be a boolean")
	}
	return b, nil
}

func formInt(r *http.Request, name string, def int) (int, error) {
	v := r.FormValue(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, badRequest(http.StatusUnprocessableEntity, name+" must be an integer")
	}
	return n, nil
}

func formFloat(r *http.Request, name string, def float64) (float64, error) {
	v := r.FormValue(name)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def, badRequest(http.StatusUnprocessableEntity, name+" must be a number")
	}
	return f, nil
}
