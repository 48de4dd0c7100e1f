package process

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line    string
		want    string
		args    int
		wantErr bool
	}{
		{"arecord -f S16_LE -c 1 -r 16000 -t raw", "arecord", 8, false},
		{"  ffmpeg  ", "ffmpeg", 0, false},
		{"", "", 0, true},
		{"   ", "", 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.line, func(t *testing.T) {
			cmd, err := ParseCommand(tc.line)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ParseCommand() error = %v, wantErr %v", err, tc.wantErr)
			}
			if cmd.Binary != tc.want || len(cmd.Args) != tc.args {
				t.Errorf("unexpected command %+v", cmd)
			}
		})
	}
	cmd, _ := ParseCommand("arecord -c 1")
	if cmd.String() != "arecord -c 1" {
		t.Errorf("unexpected String() %q", cmd.String())
	}
}

func TestStart_StreamsStdout(t *testing.T) {
	s, err := Start(context.Background(), Command{Binary: "sh", Args: []string{"-c", "printf 'abc'; printf 'def'"}})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s.Pid() <= 0 {
		t.Errorf("unexpected pid %d", s.Pid())
	}
	out, err := io.ReadAll(s.Stdout)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(out) != "abcdef" {
		t.Errorf("expected abcdef, got %q", out)
	}
	if err := s.Wait(); err != nil {
		t.Errorf("Wait: %v", err)
	}
}

func TestStart_Env(t *testing.T) {
	s, err := Start(context.Background(), Command{Binary: "sh", Args: []string{"-c", "printf %s \"$RATE\""}, Env: []string{"RATE=16000"}})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	out, _ := io.ReadAll(s.Stdout)
	_ = s.Wait()
	if string(out) != "16000" {
		t.Errorf("expected env to reach the process, got %q", out)
	}
}

func TestWait_FailureCarriesStderr(t *testing.T) {
	s, err := Start(context.Background(), Command{Binary: "sh", Args: []string{"-c", "echo 'no such device' >&2; exit 3"}})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	_, _ = io.ReadAll(s.Stdout)
	err = s.Wait()
	if err == nil {
		t.Fatal("expected an exit error")
	}
	for _, want := range []string{"code 3", "no such device"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %q", want, err.Error())
		}
	}
	if s.Wait() != err {
		t.Error("Wait should be idempotent")
	}
}

func TestStart_ContextTerminates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s, err := Start(ctx, Command{Binary: "sleep", Args: []string{"30"}, GracePeriod: time.Second})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	start := time.Now()
	cancel()
	_, _ = io.ReadAll(s.Stdout)
	if err := s.Wait(); err != nil {
		t.Errorf("termination through the context should not be an error, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Errorf("process took %v to stop", time.Since(start))
	}
}

func TestStart_Errors(t *testing.T) {
	if _, err := Start(context.Background(), Command{}); err == nil {
		t.Error("expected an error for an empty binary")
	}
	if _, err := Start(context.Background(), Command{Binary: "/nonexistent/recorder"}); err == nil {
		t.Error("expected an error for a missing binary")
	}
}

func TestTailBuffer(t *testing.T) {
	b := &tailBuffer{max: 4}
	_, _ = b.Write([]byte("ab"))
	_, _ = b.Write([]byte("cdef"))
	if b.String() != "cdef" {
		t.Errorf("expected the last 4 bytes, got %q", b.String())
	}
}
