package capture

import (
	"bytes"
	"context"
	"encoding/binary"
	stderrors "errors"
	"io"
	"testing"
	"time"
)

func pcmSamples(values ...int16) []byte {
	b := make([]byte, 2*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint16(b[2*i:], uint16(v))
	}
	return b
}

func TestToFloat32(t *testing.T) {
	got := toFloat32(pcmSamples(0, 16384, -32768))
	want := []float32{0, 0.5, -1}
	if len(got) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestWAVHeader(t *testing.T) {
	h := wavHeader(3200, 16000)
	if len(h) != 44 {
		t.Fatalf("expected 44-byte header, got %d", len(h))
	}
	if string(h[0:4]) != "RIFF" || string(h[8:12]) != "WAVE" || string(h[36:40]) != "data" {
		t.Errorf("bad chunk ids in %q", h)
	}
	checks := []struct {
		name string
		got  uint32
		want uint32
	}{
		{"riff size", binary.LittleEndian.Uint32(h[4:]), 36 + 3200},
		{"sample rate", binary.LittleEndian.Uint32(h[24:]), 16000},
		{"byte rate", binary.LittleEndian.Uint32(h[28:]), 32000},
		{"data size", binary.LittleEndian.Uint32(h[40:]), 3200},
		{"channels", uint32(binary.LittleEndian.Uint16(h[22:])), 1},
		{"bits", uint32(binary.LittleEndian.Uint16(h[34:])), 16},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: expected %d, got %d", c.name, c.want, c.got)
		}
	}
}

func TestNewWAVRecorder_Rejects(t *testing.T) {
	if _, err := NewWAVRecorder(newFakeStream(), MIMETypeWAV); err == nil {
		t.Error("expected error for a non-PCM stream")
	}

	dev := &PCMDevice{R: bytes.NewReader(nil)}
	stream, err := dev.Open(context.Background(), DefaultConstraints())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer stream.Close()
	if _, err := NewWAVRecorder(stream, "audio/webm;codecs=opus"); err == nil {
		t.Error("expected error for a non-wav container")
	}
	if _, err := NewWAVRecorder(stream, "audio/wav"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestPCMDevice_NoReader(t *testing.T) {
	_, err := (&PCMDevice{}).Open(context.Background(), DefaultConstraints())
	if !stderrors.Is(err, ErrNoDevice) {
		t.Fatalf("expected ErrNoDevice, got %v", err)
	}
}

func TestPCMDevice_RecordsWAV(t *testing.T) {
	samples := make([]int16, 2500)
	for i := range samples {
		samples[i] = int16(i % 2000)
	}
	pcm := pcmSamples(samples...)
	// A trailing odd byte is not a whole sample and is dropped.
	input := append(bytes.Clone(pcm), 0x7f)

	ended := make(chan struct{})
	dev := &PCMDevice{
		R:            bytes.NewReader(input),
		SampleRate:   8000,
		FrameSamples: 1000,
		OnEnd:        func() { close(ended) },
	}
	a := newAdapter(dev, NewWAVRecorder, nil)
	a.cfg.Candidates = []string{MIMETypeWAV}

	c, err := a.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if c.RequestedMIMEType() != MIMETypeWAV {
		t.Fatalf("expected %s, got %s", MIMETypeWAV, c.RequestedMIMEType())
	}

	select {
	case <-ended:
	case <-time.After(2 * time.Second):
		t.Fatal("input never ended")
	}

	src, err := c.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if src.MIMEType != MIMETypeWAV || src.Name != "recording-1700000000.wav" {
		t.Errorf("unexpected source %s %s", src.Name, src.MIMEType)
	}
	if src.Size != int64(44+len(pcm)) {
		t.Fatalf("expected %d bytes, got %d", 44+len(pcm), src.Size)
	}
	rc, err := src.Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(data[44:], pcm) {
		t.Error("PCM payload changed")
	}
	if got := binary.LittleEndian.Uint32(data[24:]); got != 8000 {
		t.Errorf("expected sample rate 8000, got %d", got)
	}
}

type failingReader struct{ err error }

func (r failingReader) Read([]byte) (int, error) { return 0, r.err }

func TestPCMDevice_ReadErrorFailsStop(t *testing.T) {
	ended := make(chan struct{})
	dev := &PCMDevice{
		R:     failingReader{err: stderrors.New("device unplugged")},
		OnEnd: func() { close(ended) },
	}
	a := newAdapter(dev, NewWAVRecorder, nil)
	a.cfg.Candidates = []string{MIMETypeWAV}

	c, err := a.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-ended
	if _, err := c.Stop(); err == nil {
		t.Fatal("expected stop to surface the read error")
	}
}
