package transcription

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/kbukum/transcribekit/errors"
	"github.com/kbukum/transcribekit/validation"
)

// AudioSource is a recorded or selected audio payload. Open may be called
// once per transport attempt; every call yields the full payload.
type AudioSource struct {
	Name     string
	MIMEType string
	Size     int64
	open     func() (io.ReadCloser, error)
}

// FromBytes creates an in-memory AudioSource.
func FromBytes(name, mimeType string, data []byte) AudioSource {
	return AudioSource{
		Name:     name,
		MIMEType: mimeType,
		Size:     int64(len(data)),
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// FromPath creates an AudioSource backed by a file. The MIME type is taken
// from the extension and left empty when the extension is unknown.
func FromPath(path string) (AudioSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return AudioSource{}, fmt.Errorf("stat audio file: %w", err)
	}
	if info.IsDir() {
		return AudioSource{}, fmt.Errorf("audio path %s is a directory", path)
	}
	name := filepath.Base(path)
	return AudioSource{
		Name:     name,
		MIMEType: MIMETypeForName(name),
		Size:     info.Size(),
		open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// Open returns a fresh reader over the payload.
func (a AudioSource) Open() (io.ReadCloser, error) {
	if a.open == nil {
		return nil, fmt.Errorf("audio source %q has no content", a.Name)
	}
	return a.open()
}

// ReadHead returns up to n leading bytes of the payload.
func (a AudioSource) ReadHead(n int) ([]byte, error) {
	rc, err := a.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	buf := make([]byte, n)
	read, err := io.ReadFull(rc, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	return buf[:read], nil
}

// Allowed chunk sizes in seconds.
const (
	ChunkSize60  = 60
	ChunkSize120 = 120
	ChunkSize180 = 180

	DefaultChunkSize = ChunkSize60
)

// Request is one transcription submission. It is sent unchanged on every
// retry.
type Request struct {
	Audio        AudioSource `json:"-" validate:"-"`
	LanguageCode string      `json:"language_code" validate:"required,language_code"`
	OutputScript string      `json:"output_script,omitempty" validate:"omitempty,script"`
	Diarization  bool        `json:"enable_diarization"`
	ChunkSize    int         `json:"chunk_size" validate:"oneof=60 120 180"`
	ModelIndex   *int        `json:"index,omitempty" validate:"omitempty,gte=0"`
}

// ApplyDefaults fills in a zero chunk size.
func (r *Request) ApplyDefaults() {
	if r.ChunkSize == 0 {
		r.ChunkSize = DefaultChunkSize
	}
}

// Validate runs the local checks that must pass before any network call.
// A missing or placeholder language is InvalidLanguageSelection; anything
// else is BadRequest.
func (r *Request) Validate() *errors.AppError {
	if validation.IsSentinelLanguage(r.LanguageCode) {
		return errors.InvalidLanguageSelection(r.LanguageCode)
	}
	if err := validation.Validate(r); err != nil {
		return errors.Wrap(err)
	}
	return nil
}

// Segment is a time-aligned slice of the transcript.
type Segment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker,omitempty"`
}

// APIResponse is the service's success body.
type APIResponse struct {
	// Success is nil when the field is absent.
	Success             *bool     `json:"success,omitempty"`
	Text                string    `json:"text"`
	Segments            []Segment `json:"segments"`
	DetectedLanguage    string    `json:"detected_language"`
	LanguageProbability float64   `json:"language_probability"`
	UniqueSpeakers      []string  `json:"unique_speakers,omitempty"`
	Filename            string    `json:"filename"`
	TotalTime           float64   `json:"total_time"`
	Detail              string    `json:"detail,omitempty"`
}

// Failed reports an explicit "success": false.
func (r *APIResponse) Failed() bool {
	return r.Success != nil && !*r.Success
}

// Result is the projected, UI-facing outcome of a successful submission.
type Result struct {
	Text                string        `json:"text"`
	Segments            []Segment     `json:"segments"`
	DetectedLanguage    string        `json:"detected_language"`
	LanguageProbability float64       `json:"language_probability"`
	Confidence          int           `json:"confidence"`
	ProcessingTime      time.Duration `json:"processing_time"`
	ServerTime          float64       `json:"server_time"`
	Speakers            []string      `json:"speakers"`
	FileName            string        `json:"filename"`
}
