package capture

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/transcribekit/errors"
	"github.com/kbukum/transcribekit/logger"
	"github.com/kbukum/transcribekit/transcription"
)

// ErrPermissionDenied is returned by a Device when the user refuses access.
var ErrPermissionDenied = stderrors.New("capture: permission denied")

// ErrNoDevice is returned by a Device when no capture primitive exists.
var ErrNoDevice = stderrors.New("capture: no capture device")

// Constraints are the audio processing options requested from the device.
type Constraints struct {
	Mono             bool
	EchoCancellation bool
	NoiseSuppression bool
}

// DefaultConstraints requests mono, echo-cancelled, noise-suppressed audio.
func DefaultConstraints() Constraints {
	return Constraints{Mono: true, EchoCancellation: true, NoiseSuppression: true}
}

// Device opens the microphone.
type Device interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Stream is a live PCM stream. Frames is closed when the stream ends.
type Stream interface {
	Frames() <-chan []float32
	Close() error
}

// Recorder encodes a stream. MIMEType reports the container actually being
// produced, which may differ from the one requested.
type Recorder interface {
	Start(onChunk func([]byte)) error
	Stop() error
	MIMEType() string
}

// RecorderFactory builds a recorder for mimeType; "" asks for the platform default.
type RecorderFactory func(stream Stream, mimeType string) (Recorder, error)

// Config tunes the adapter.
type Config struct {
	Candidates    []string
	Constraints   Constraints
	MeterInterval time.Duration
	// NoiseGate is the level below which the meter reports 0.
	NoiseGate int
	Now       func() time.Time
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if len(c.Candidates) == 0 {
		c.Candidates = DefaultCandidates
	}
	if c.Constraints == (Constraints{}) {
		c.Constraints = DefaultConstraints()
	}
	if c.MeterInterval <= 0 {
		c.MeterInterval = 100 * time.Millisecond
	}
	if c.NoiseGate <= 0 {
		c.NoiseGate = 8
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Adapter starts capture sessions.
type Adapter struct {
	device      Device
	newRecorder RecorderFactory
	probe       SupportProbe
	cfg         Config
	log         *logger.Logger
}

// New creates an Adapter. A nil probe treats every candidate as supported.
func New(device Device, newRecorder RecorderFactory, probe SupportProbe, cfg Config) *Adapter {
	cfg.ApplyDefaults()
	return &Adapter{
		device:      device,
		newRecorder: newRecorder,
		probe:       probe,
		cfg:         cfg,
		log:         logger.Get("capture"),
	}
}

// WithLogger replaces the adapter's logger.
func (a *Adapter) WithLogger(l *logger.Logger) *Adapter {
	a.log = l
	return a
}

// Start opens the device, negotiates an encoding and starts recording.
func (a *Adapter) Start(ctx context.Context) (*Capture, error) {
	if a.device == nil || a.newRecorder == nil {
		return nil, errors.UnsupportedBrowser(ErrNoDevice)
	}

	stream, err := a.device.Open(ctx, a.cfg.Constraints)
	if err != nil {
		if stderrors.Is(err, ErrPermissionDenied) {
			return nil, errors.PermissionDenied(err)
		}
		return nil, errors.UnsupportedBrowser(err)
	}

	enc, ok := SelectEncoding(a.cfg.Candidates, a.probe, func(mt string) (Recorder, error) {
		return a.newRecorder(stream, mt)
	})
	if !ok {
		rec, err := a.newRecorder(stream, "")
		if err != nil || rec == nil {
			_ = stream.Close()
			if err == nil {
				err = fmt.Errorf("platform default recorder unavailable")
			}
			return nil, errors.UnsupportedBrowser(err)
		}
		enc = Encoding{MIMEType: rec.MIMEType(), Recorder: rec}
		a.log.Warn("no candidate encoding accepted, using platform default",
			logger.Fields(logger.FieldMIMEType, enc.MIMEType))
	}

	c := &Capture{
		stream:    stream,
		recorder:  enc.Recorder,
		requested: enc.MIMEType,
		startedAt: a.cfg.Now(),
		now:       a.cfg.Now,
		log:       a.log,
	}
	if err := enc.Recorder.Start(c.appendChunk); err != nil {
		_ = stream.Close()
		return nil, errors.UnsupportedBrowser(err)
	}
	c.meter = startLevelMeter(stream.Frames(), a.cfg.MeterInterval, a.cfg.NoiseGate)

	a.log.Info("capture started", logger.Fields(logger.FieldMIMEType, enc.MIMEType))
	return c, nil
}

// Capture is one recording in progress.
type Capture struct {
	stream    Stream
	recorder  Recorder
	meter     *levelMeter
	requested string
	startedAt time.Time
	now       func() time.Time
	log       *logger.Logger

	mu       sync.Mutex
	buf      bytes.Buffer
	stopped  bool
	released sync.Once
}

func (c *Capture) release() {
	c.released.Do(func() {
		c.meter.stop()
		if err := c.stream.Close(); err != nil {
			c.log.Warn("release capture stream", logger.ErrorFields("capture.stop", err))
		}
	})
}

func (c *Capture) appendChunk(chunk []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.stopped {
		c.buf.Write(chunk)
	}
}

// Levels streams loudness samples (0-100) until Stop.
func (c *Capture) Levels() <-chan int {
	return c.meter.out
}

// RequestedMIMEType is the encoding negotiated at Start.
func (c *Capture) RequestedMIMEType() string {
	return c.requested
}

// Stop finalizes the recording. The stream and the level meter are released
// even when finalization fails.
func (c *Capture) Stop() (transcription.AudioSource, error) {
	defer c.release()

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return transcription.AudioSource{}, errors.BadRequest("Recording already stopped.")
	}
	c.mu.Unlock()

	stopErr := c.recorder.Stop()

	c.mu.Lock()
	c.stopped = true
	data := bytes.Clone(c.buf.Bytes())
	c.mu.Unlock()

	if stopErr != nil {
		return transcription.AudioSource{}, errors.UnsupportedBrowser(stopErr)
	}
	if len(data) == 0 {
		return transcription.AudioSource{}, errors.BadRequest("No audio was captured.")
	}

	// The platform may substitute another container; trust what it reports.
	mimeType := c.recorder.MIMEType()
	if mimeType == "" {
		mimeType = c.requested
	}
	name := fmt.Sprintf("recording-%d.%s", c.startedAt.Unix(), extensionFor(mimeType))

	c.log.Info("capture stopped", logger.Fields(
		logger.FieldMIMEType, mimeType,
		logger.FieldSize, len(data),
		logger.FieldDuration, c.now().Sub(c.startedAt).Milliseconds(),
	))
	return transcription.FromBytes(name, mimeType, data), nil
}

func extensionFor(mimeType string) string {
	if f, ok := transcription.FormatByMIME(mimeType); ok {
		return f.Ext
	}
	return "bin"
}
