package capture

import (
	"context"
	"fmt"

	"github.com/kbukum/transcribekit/process"
)

// CommandDevice records from an external program that writes signed 16-bit
// little-endian mono PCM to stdout, for example
// `arecord -q -f S16_LE -c 1 -r 16000 -t raw`. The program is started on
// Open and terminated when the stream is closed.
type CommandDevice struct {
	Command      process.Command
	SampleRate   int
	FrameSamples int
	// OnEnd, when set, is called once the program has exited and every
	// sample has reached the recorder.
	OnEnd func()
}

// Open starts the program. A program that cannot be started is reported as
// a missing device.
func (d *CommandDevice) Open(ctx context.Context, _ Constraints) (Stream, error) {
	procCtx, stop := context.WithCancel(ctx)
	proc, err := process.Start(procCtx, d.Command)
	if err != nil {
		stop()
		return nil, fmt.Errorf("%w: %v", ErrNoDevice, err)
	}

	rate, n := pcmFormat(d.SampleRate, d.FrameSamples)
	ps := startPCM(procCtx, proc.Stdout, rate, n, func(s *pcmStream) {
		if err := proc.Wait(); err != nil {
			s.fail(err)
		}
		stop()
		if d.OnEnd != nil {
			d.OnEnd()
		}
	})
	return &commandStream{pcmStream: ps, stop: stop}, nil
}

type commandStream struct {
	*pcmStream
	stop context.CancelFunc
}

// Close terminates the program. Its output ends with it.
func (s *commandStream) Close() error {
	s.stop()
	return s.pcmStream.Close()
}
