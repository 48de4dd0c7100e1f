// Package process runs an external program whose standard output is consumed
// as a stream, such as a command-line audio recorder.
//
// Cancelling the context sends SIGTERM to the whole process group, then
// SIGKILL once GracePeriod has passed.
package process

import (
	"fmt"
	"strings"
	"time"
)

// DefaultGracePeriod is how long a terminated process may take to exit.
const DefaultGracePeriod = 5 * time.Second

// Command describes a program to run.
type Command struct {
	Binary string
	Args   []string
	Dir    string
	// Env is appended to the inherited environment.
	Env         []string
	GracePeriod time.Duration
}

// ParseCommand splits a whitespace-separated command line. Quoting is not
// interpreted.
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("process: empty command")
	}
	return Command{Binary: fields[0], Args: fields[1:]}, nil
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Binary}, c.Args...), " ")
}
