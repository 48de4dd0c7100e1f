package capture

import (
	"bytes"
	"context"
	"encoding/binary"
	stderrors "errors"
	"fmt"
	"io"
	"sync"

	"github.com/kbukum/transcribekit/transcription"
)

// MIMETypeWAV is the container produced by WAVRecorder.
const MIMETypeWAV = "audio/wav"

// PCMDevice reads signed 16-bit little-endian mono PCM from R, for example
// the output of `arecord -f S16_LE -c 1`. The stream ends at EOF or when the
// context passed to Open is done.
type PCMDevice struct {
	R          io.Reader
	SampleRate int
	// FrameSamples is the number of samples per frame (default 1024).
	FrameSamples int
	// OnEnd, when set, is called once the input is exhausted and every
	// sample has reached the recorder.
	OnEnd func()
}

// Open starts reading. Constraints are accepted as given; the input is
// already mono and unprocessed.
func (d *PCMDevice) Open(ctx context.Context, _ Constraints) (Stream, error) {
	if d.R == nil {
		return nil, ErrNoDevice
	}
	rate, n := pcmFormat(d.SampleRate, d.FrameSamples)
	return startPCM(ctx, d.R, rate, n, func(*pcmStream) {
		if d.OnEnd != nil {
			d.OnEnd()
		}
	}), nil
}

func pcmFormat(rate, frameSamples int) (int, int) {
	if rate <= 0 {
		rate = 16000
	}
	if frameSamples <= 0 {
		frameSamples = 1024
	}
	return rate, frameSamples
}

// startPCM begins reading r. onEnd runs once reading has stopped and Frames
// is closed.
func startPCM(ctx context.Context, r io.Reader, rate, frameSamples int, onEnd func(*pcmStream)) *pcmStream {
	ctx, cancel := context.WithCancel(ctx)
	s := &pcmStream{
		rate:   rate,
		frames: make(chan []float32, 8),
		cancel: cancel,
	}
	go s.run(ctx, r, frameSamples, onEnd)
	return s
}

type pcmStream struct {
	rate   int
	frames chan []float32
	cancel context.CancelFunc

	mu   sync.Mutex
	sink func([]byte)
	err  error
}

func (s *pcmStream) Frames() <-chan []float32 { return s.frames }

// Close stops reading at the next frame boundary. It does not wait, since a
// blocked read on a live input only returns with the next frame.
func (s *pcmStream) Close() error {
	s.cancel()
	return nil
}

func (s *pcmStream) setSink(fn func([]byte)) {
	s.mu.Lock()
	s.sink = fn
	s.mu.Unlock()
}

func (s *pcmStream) pcm() *pcmStream { return s }

func (s *pcmStream) fail(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
}

func (s *pcmStream) run(ctx context.Context, r io.Reader, frameSamples int, onEnd func(*pcmStream)) {
	defer onEnd(s)
	defer close(s.frames)

	raw := make([]byte, frameSamples*2)
	for {
		if ctx.Err() != nil {
			return
		}
		n, err := io.ReadFull(r, raw)
		n -= n % 2
		if n > 0 {
			s.mu.Lock()
			if s.sink != nil {
				s.sink(bytes.Clone(raw[:n]))
			}
			s.mu.Unlock()

			select {
			case s.frames <- toFloat32(raw[:n]):
			default:
				// The meter is behind; levels are sampled anyway.
			}
		}
		if err != nil {
			if !stderrors.Is(err, io.EOF) && !stderrors.Is(err, io.ErrUnexpectedEOF) {
				s.fail(err)
			}
			return
		}
	}
}

func toFloat32(pcm []byte) []float32 {
	out := make([]float32, len(pcm)/2)
	for i := range out {
		out[i] = float32(int16(binary.LittleEndian.Uint16(pcm[2*i:]))) / 32768
	}
	return out
}

// WAVRecorder wraps the PCM of a PCMDevice stream in a WAV container. The
// whole file is emitted as one chunk on Stop, once the data size is known.
type WAVRecorder struct {
	stream  *pcmStream
	mu      sync.Mutex
	pcm     bytes.Buffer
	onChunk func([]byte)
}

// pcmSource is implemented by the streams of PCMDevice and CommandDevice.
type pcmSource interface {
	pcm() *pcmStream
}

// NewWAVRecorder is a RecorderFactory for PCMDevice and CommandDevice
// streams. It only produces audio/wav.
func NewWAVRecorder(stream Stream, mimeType string) (Recorder, error) {
	src, ok := stream.(pcmSource)
	if !ok {
		return nil, fmt.Errorf("wav recorder needs a PCM stream, got %T", stream)
	}
	if mimeType != "" && transcription.BaseMIMEType(mimeType) != MIMETypeWAV {
		return nil, fmt.Errorf("wav recorder cannot produce %s", mimeType)
	}
	return &WAVRecorder{stream: src.pcm()}, nil
}

// Start begins buffering samples.
func (w *WAVRecorder) Start(onChunk func([]byte)) error {
	w.onChunk = onChunk
	w.stream.setSink(func(b []byte) {
		w.mu.Lock()
		w.pcm.Write(b)
		w.mu.Unlock()
	})
	return nil
}

// Stop detaches from the stream and emits the finished file.
func (w *WAVRecorder) Stop() error {
	w.stream.setSink(nil)
	w.stream.mu.Lock()
	readErr := w.stream.err
	w.stream.mu.Unlock()
	if readErr != nil {
		return fmt.Errorf("read pcm: %w", readErr)
	}

	w.mu.Lock()
	data := w.pcm.Bytes()
	w.mu.Unlock()
	if len(data) == 0 {
		return nil
	}
	w.onChunk(append(wavHeader(len(data), w.stream.rate), data...))
	return nil
}

// MIMEType reports audio/wav.
func (w *WAVRecorder) MIMEType() string { return MIMETypeWAV }

// wavHeader builds a 44-byte canonical PCM header for mono 16-bit audio.
func wavHeader(dataLen, sampleRate int) []byte {
	const (
		channels      = 1
		bitsPerSample = 16
	)
	blockAlign := channels * bitsPerSample / 8
	h := make([]byte, 44)
	copy(h[0:], "RIFF")
	binary.LittleEndian.PutUint32(h[4:], uint32(36+dataLen))
	copy(h[8:], "WAVE")
	copy(h[12:], "fmt ")
	binary.LittleEndian.PutUint32(h[16:], 16)
	binary.LittleEndian.PutUint16(h[20:], 1)
	binary.LittleEndian.PutUint16(h[22:], channels)
	binary.LittleEndian.PutUint32(h[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(h[28:], uint32(sampleRate*blockAlign))
	binary.LittleEndian.PutUint16(h[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(h[34:], bitsPerSample)
	copy(h[36:], "data")
	binary.LittleEndian.PutUint32(h[40:], uint32(dataLen))
	return h
}
