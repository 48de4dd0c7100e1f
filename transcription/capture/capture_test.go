package capture

import (
	"context"
	stderrors "errors"
	"io"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/transcribekit/errors"
	"github.com/kbukum/transcribekit/logger"
)

type fakeStream struct {
	frames chan []float32
	closed atomic.Int32
}

func newFakeStream() *fakeStream { return &fakeStream{frames: make(chan []float32, 16)} }

func (s *fakeStream) Frames() <-chan []float32 { return s.frames }
func (s *fakeStream) Close() error {
	s.closed.Add(1)
	return nil
}

type fakeDevice struct {
	stream *fakeStream
	err    error
	got    Constraints
}

func (d *fakeDevice) Open(_ context.Context, c Constraints) (Stream, error) {
	d.got = c
	if d.err != nil {
		return nil, d.err
	}
	return d.stream, nil
}

type fakeRecorder struct {
	requested string
	actual    string
	chunks    [][]byte
	startErr  error
	stopErr   error
	onChunk   func([]byte)
}

func (r *fakeRecorder) Start(onChunk func([]byte)) error {
	if r.startErr != nil {
		return r.startErr
	}
	r.onChunk = onChunk
	return nil
}

func (r *fakeRecorder) Stop() error {
	for _, c := range r.chunks {
		r.onChunk(c)
	}
	return r.stopErr
}

func (r *fakeRecorder) MIMEType() string {
	if r.actual != "" {
		return r.actual
	}
	return r.requested
}

func sine(n int, amp float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(amp * math.Sin(2*math.Pi*float64(i)/float64(n)))
	}
	return out
}

func TestSelectEncoding(t *testing.T) {
	tests := []struct {
		name      string
		supported map[string]bool
		broken    map[string]bool
		want      string
		wantOK    bool
	}{
		{"first supported wins", map[string]bool{"audio/mp4": true, "audio/webm": true}, nil, "audio/mp4", true},
		{"probe rejects mp4", map[string]bool{"audio/ogg;codecs=opus": true, "audio/webm": true}, nil, "audio/ogg;codecs=opus", true},
		{"claims support but fails to instantiate", map[string]bool{"audio/mp4": true, "audio/webm;codecs=opus": true}, map[string]bool{"audio/mp4": true}, "audio/webm;codecs=opus", true},
		{"nothing works", map[string]bool{"audio/mp4": true}, map[string]bool{"audio/mp4": true}, "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var tried []string
			enc, ok := SelectEncoding(DefaultCandidates,
				func(mt string) bool { return tc.supported[mt] },
				func(mt string) (Recorder, error) {
					tried = append(tried, mt)
					if tc.broken[mt] {
						return nil, stderrors.New("not supported")
					}
					return &fakeRecorder{requested: mt}, nil
				})
			if ok != tc.wantOK || enc.MIMEType != tc.want {
				t.Fatalf("got %q %v, want %q %v", enc.MIMEType, ok, tc.want, tc.wantOK)
			}
			for _, mt := range tried {
				if !tc.supported[mt] {
					t.Errorf("instantiated %q without probe support", mt)
				}
			}
		})
	}
}

func TestLevel(t *testing.T) {
	tests := []struct {
		name  string
		frame []float32
		want  int
	}{
		{"empty", nil, 0},
		{"silence", make([]float32, 256), 0},
		{"full scale sine", sine(256, 1.0), 100},
		{"half scale sine", sine(256, 0.5), 50},
		{"below gate", sine(256, 0.05), 0},
		{"just above gate", sine(256, 0.1), 10},
		{"clipped square", []float32{1, -1, 1, -1}, 100},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Level(tc.frame, 8); got != tc.want {
				t.Errorf("Level = %d, want %d", got, tc.want)
			}
		})
	}
}

func newAdapter(dev Device, factory RecorderFactory, probe SupportProbe) *Adapter {
	now := time.Unix(1700000000, 0)
	return New(dev, factory, probe, Config{
		MeterInterval: 2 * time.Millisecond,
		Now:           func() time.Time { return now },
	}).WithLogger(logger.Nop())
}

func TestStart_DeviceErrors(t *testing.T) {
	tests := []struct {
		name string
		dev  Device
		want errors.ErrorCode
	}{
		{"permission denied", &fakeDevice{err: ErrPermissionDenied}, errors.ErrCodePermissionDenied},
		{"other device error", &fakeDevice{err: io.EOF}, errors.ErrCodeUnsupportedBrowser},
		{"no device", &fakeDevice{err: ErrNoDevice}, errors.ErrCodeUnsupportedBrowser},
		{"nil device", nil, errors.ErrCodeUnsupportedBrowser},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := newAdapter(tc.dev, func(Stream, string) (Recorder, error) { return &fakeRecorder{}, nil }, nil)
			_, err := a.Start(context.Background())
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %s, got %v", tc.want, err)
			}
		})
	}
}

func TestStart_RequestsConstraints(t *testing.T) {
	dev := &fakeDevice{stream: newFakeStream()}
	a := newAdapter(dev, func(_ Stream, mt string) (Recorder, error) { return &fakeRecorder{requested: mt}, nil }, nil)
	c, err := a.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.release()
	if dev.got != DefaultConstraints() {
		t.Errorf("expected default constraints, got %+v", dev.got)
	}
	if c.RequestedMIMEType() != "audio/mp4" {
		t.Errorf("expected first candidate, got %q", c.RequestedMIMEType())
	}
}

func TestStart_FallsBackToPlatformDefault(t *testing.T) {
	dev := &fakeDevice{stream: newFakeStream()}
	var requested []string
	a := newAdapter(dev, func(_ Stream, mt string) (Recorder, error) {
		requested = append(requested, mt)
		if mt != "" {
			return nil, stderrors.New("unsupported")
		}
		return &fakeRecorder{actual: "audio/webm"}, nil
	}, nil)

	c, err := a.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.release()
	if requested[len(requested)-1] != "" {
		t.Errorf("expected final request for platform default, got %v", requested)
	}
	if c.RequestedMIMEType() != "audio/webm" {
		t.Errorf("expected platform default MIME, got %q", c.RequestedMIMEType())
	}
}

func TestStart_NoEncodingReleasesStream(t *testing.T) {
	stream := newFakeStream()
	a := newAdapter(&fakeDevice{stream: stream}, func(Stream, string) (Recorder, error) {
		return nil, stderrors.New("no recorder")
	}, nil)

	_, err := a.Start(context.Background())
	if !errors.Is(err, errors.ErrCodeUnsupportedBrowser) {
		t.Fatalf("expected UnsupportedBrowser, got %v", err)
	}
	if stream.closed.Load() != 1 {
		t.Errorf("expected stream to be released once, got %d", stream.closed.Load())
	}
}

func TestStop_UsesActualMIMEType(t *testing.T) {
	stream := newFakeStream()
	rec := &fakeRecorder{actual: "audio/webm;codecs=opus", chunks: [][]byte{[]byte("ab"), []byte("cd")}}
	a := newAdapter(&fakeDevice{stream: stream}, func(_ Stream, mt string) (Recorder, error) {
		rec.requested = mt
		return rec, nil
	}, nil)

	c, err := a.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	src, err := c.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if src.MIMEType != "audio/webm;codecs=opus" {
		t.Errorf("expected substituted MIME, got %q", src.MIMEType)
	}
	if src.Name != "recording-1700000000.webm" {
		t.Errorf("unexpected name %q", src.Name)
	}
	if src.Size != 4 {
		t.Errorf("expected 4 bytes, got %d", src.Size)
	}
	if stream.closed.Load() != 1 {
		t.Errorf("expected stream released, got %d closes", stream.closed.Load())
	}

	if _, err := c.Stop(); err == nil {
		t.Error("expected error on second Stop")
	}
	if stream.closed.Load() != 1 {
		t.Errorf("second Stop must not release again, got %d closes", stream.closed.Load())
	}
}

func TestStop_ReleasesOnFailure(t *testing.T) {
	tests := []struct {
		name string
		rec  *fakeRecorder
		want errors.ErrorCode
	}{
		{"recorder stop fails", &fakeRecorder{stopErr: stderrors.New("encoder crashed"), chunks: [][]byte{[]byte("x")}}, errors.ErrCodeUnsupportedBrowser},
		{"empty recording", &fakeRecorder{}, errors.ErrCodeBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			stream := newFakeStream()
			a := newAdapter(&fakeDevice{stream: stream}, func(_ Stream, mt string) (Recorder, error) {
				tc.rec.requested = mt
				return tc.rec, nil
			}, nil)
			c, err := a.Start(context.Background())
			if err != nil {
				t.Fatalf("Start: %v", err)
			}
			if _, err := c.Stop(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %s, got %v", tc.want, err)
			}
			if stream.closed.Load() != 1 {
				t.Error("stream must be released even when finalization fails")
			}
		})
	}
}

func TestCapture_Levels(t *testing.T) {
	stream := newFakeStream()
	a := newAdapter(&fakeDevice{stream: stream}, func(_ Stream, mt string) (Recorder, error) {
		return &fakeRecorder{requested: mt, chunks: [][]byte{[]byte("x")}}, nil
	}, nil)
	c, err := a.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	stream.frames <- sine(256, 1.0)

	deadline := time.After(2 * time.Second)
	for got := false; !got; {
		select {
		case lvl := <-c.Levels():
			got = lvl == 100
		case <-deadline:
			t.Fatal("timed out waiting for level 100")
		}
	}

	if _, err := c.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	for range c.Levels() {
	}
}
