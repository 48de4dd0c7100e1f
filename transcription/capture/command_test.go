package capture

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/transcribekit/errors"
	"github.com/kbukum/transcribekit/process"
)

func commandAdapter(cmd string, ended chan struct{}) *Adapter {
	dev := &CommandDevice{
		Command:    process.Command{Binary: "sh", Args: []string{"-c", cmd}, GracePeriod: time.Second},
		SampleRate: 8000,
		OnEnd:      func() { close(ended) },
	}
	a := newAdapter(dev, NewWAVRecorder, nil)
	a.cfg.Candidates = []string{MIMETypeWAV}
	return a
}

func waitEnded(t *testing.T, ended <-chan struct{}) {
	t.Helper()
	select {
	case <-ended:
	case <-time.After(5 * time.Second):
		t.Fatal("recorder program never ended")
	}
}

func TestCommandDevice_RecordsUntilExit(t *testing.T) {
	ended := make(chan struct{})
	c, err := commandAdapter("head -c 4000 /dev/zero", ended).Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitEnded(t, ended)

	src, err := c.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if src.MIMEType != MIMETypeWAV || src.Size != 44+4000 {
		t.Errorf("unexpected source %s of %d bytes", src.MIMEType, src.Size)
	}
}

func TestCommandDevice_ExitFailureFailsStop(t *testing.T) {
	ended := make(chan struct{})
	c, err := commandAdapter("echo 'audio open error: No such file' >&2; exit 1", ended).Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitEnded(t, ended)

	_, err = c.Stop()
	if err == nil {
		t.Fatal("expected the program failure from Stop")
	}
	if !strings.Contains(err.Error(), "audio open error") {
		t.Errorf("expected stderr in the error, got %v", err)
	}
}

func TestCommandDevice_StopTerminatesProgram(t *testing.T) {
	ended := make(chan struct{})
	c, err := commandAdapter("while :; do head -c 320 /dev/zero; sleep 0.01; done", ended).Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	src, err := c.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if src.Size <= 44 {
		t.Errorf("expected some recorded audio, got %d bytes", src.Size)
	}
	waitEnded(t, ended)
}

func TestCommandDevice_MissingProgram(t *testing.T) {
	dev := &CommandDevice{Command: process.Command{Binary: "/nonexistent/arecord"}}
	a := newAdapter(dev, NewWAVRecorder, nil)
	a.cfg.Candidates = []string{MIMETypeWAV}

	_, err := a.Start(context.Background())
	if err == nil {
		t.Fatal("expected a start error")
	}
	if appErr, ok := errors.AsAppError(err); !ok || appErr.Code != errors.ErrCodeUnsupportedBrowser {
		t.Errorf("expected an unsupported-capture error, got %v", err)
	}
}
