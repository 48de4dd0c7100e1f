// Command transcribe submits an audio file, or PCM recorded from stdin, for
// transcription and prints the transcript.
//
//	transcribe meeting.m4a --language en
//	arecord -f S16_LE -c 1 -r 16000 -d 30 | transcribe --record --json
//	transcribe --record-cmd "arecord -q -f S16_LE -c 1 -r 16000 -t raw" --duration 30s
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/kbukum/transcribekit/bootstrap"
	"github.com/kbukum/transcribekit/config"
	apperrors "github.com/kbukum/transcribekit/errors"
	"github.com/kbukum/transcribekit/logger"
	"github.com/kbukum/transcribekit/observability"
	"github.com/kbukum/transcribekit/process"
	"github.com/kbukum/transcribekit/transcription"
	"github.com/kbukum/transcribekit/transcription/capture"
	"github.com/kbukum/transcribekit/transcription/projection"
	"github.com/kbukum/transcribekit/transcription/session"
	"github.com/kbukum/transcribekit/version"
)

const serviceName = "transcribe"

// Config is the CLI's configuration file.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Client               transcription.Config          `yaml:"client" mapstructure:"client"`
	Telemetry            observability.TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`
}

func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = serviceName
	}
	// Development would switch on debug logging.
	if c.Environment == "" {
		c.Environment = "production"
	}
	c.ServiceConfig.ApplyDefaults()
	c.Client.ApplyDefaults()
}

func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	return c.Client.Validate()
}

// cliFlags are the per-invocation settings.
type cliFlags struct {
	configFile string
	envFile    string
	file       string
	record     bool
	recordCmd  string
	duration   time.Duration
	sampleRate int
	language   string
	script     string
	diarize    bool
	chunkSize  int
	modelIndex int
	asJSON     bool
	verbose    bool
	version    bool

	modelIndexSet bool
}

func parseFlags(args []string) (*cliFlags, error) {
	f := &cliFlags{}
	flags := pflag.NewFlagSet(serviceName, pflag.ContinueOnError)
	flags.StringVarP(&f.configFile, "config", "c", "", "config file (default: searched next to the binary)")
	flags.StringVar(&f.envFile, "env-file", "", ".env file to load before reading the environment")
	flags.StringVarP(&f.file, "file", "f", "", "audio file to transcribe (or pass it as the only argument)")
	flags.BoolVar(&f.record, "record", false, "record signed 16-bit mono PCM from stdin until EOF")
	flags.StringVar(&f.recordCmd, "record-cmd", "", "record from the stdout of this command instead of stdin (implies --record)")
	flags.DurationVar(&f.duration, "duration", 0, "stop recording after this long")
	flags.IntVar(&f.sampleRate, "sample-rate", 16000, "sample rate of the PCM on stdin")
	flags.StringVarP(&f.language, "language", "l", "auto", "spoken language code, or auto to let the service detect it")
	flags.StringVar(&f.script, "script", "", "output script for transliteration")
	flags.BoolVar(&f.diarize, "diarize", false, "label speakers")
	flags.IntVar(&f.chunkSize, "chunk-size", 0, "processing chunk in seconds: 60, 120 or 180")
	flags.IntVar(&f.modelIndex, "model-index", 0, "service model index")
	flags.BoolVar(&f.asJSON, "json", false, "print the full result as JSON")
	flags.BoolVarP(&f.verbose, "verbose", "v", false, "log submission progress")
	flags.BoolVar(&f.version, "version", false, "print version and exit")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	f.modelIndexSet = flags.Changed("model-index")

	if f.version {
		return f, nil
	}
	if f.recordCmd != "" {
		f.record = true
	}
	if f.file == "" && flags.NArg() == 1 {
		f.file = flags.Arg(0)
	}
	switch {
	case flags.NArg() > 1:
		return nil, fmt.Errorf("expected at most one audio file, got %d", flags.NArg())
	case f.record && f.file != "":
		return nil, fmt.Errorf("--record and a file are mutually exclusive")
	case !f.record && f.file == "":
		return nil, fmt.Errorf("an audio file or --record is required")
	}
	return f, nil
}

func (f *cliFlags) options() session.Options {
	opts := session.Options{
		LanguageCode: f.language,
		OutputScript: f.script,
		Diarization:  f.diarize,
		ChunkSize:    f.chunkSize,
	}
	if f.modelIndexSet {
		idx := f.modelIndex
		opts.ModelIndex = &idx
	}
	return opts
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "transcribe:", userMessage(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	if f.version {
		fmt.Fprintln(stdout, version.GetShortVersion())
		return nil
	}

	var cfg Config
	if err := config.LoadConfig(serviceName, &cfg,
		config.WithConfigFile(f.configFile),
		config.WithEnvFile(f.envFile),
		config.WithEnvPrefix("TRANSCRIBE"),
	); err != nil {
		return err
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "warn"
		if f.verbose {
			cfg.Logging.Level = "info"
		}
	}

	app, err := bootstrap.NewApp(&cfg)
	if err != nil {
		return err
	}
	tel, err := observability.NewTelemetry(cfg.Name, cfg.Environment, cfg.Telemetry)
	if err != nil {
		return err
	}
	if err := app.RegisterComponent(tel); err != nil {
		return err
	}

	opts := []session.Option{session.WithObserver(progressObserver(app.Logger))}
	ended := make(chan struct{})
	if f.record {
		var device capture.Device = &capture.PCMDevice{
			R:          stdin,
			SampleRate: f.sampleRate,
			OnEnd:      func() { close(ended) },
		}
		if f.recordCmd != "" {
			cmd, err := process.ParseCommand(f.recordCmd)
			if err != nil {
				return err
			}
			device = &capture.CommandDevice{
				Command:    cmd,
				SampleRate: f.sampleRate,
				OnEnd:      func() { close(ended) },
			}
		}
		adapter := capture.New(device, capture.NewWAVRecorder, nil, capture.Config{
			Candidates: []string{capture.MIMETypeWAV},
		})
		opts = append(opts, session.WithCapture(adapter))
	}

	s, err := session.Build(cfg.Client, session.Deps{Metrics: tel.Metrics()}, opts...)
	if err != nil {
		return err
	}

	return app.RunTask(ctx, func(ctx context.Context) error {
		var (
			p   *projection.Projection
			err error
		)
		if f.record {
			p, err = record(ctx, s, f, ended, app.Logger)
		} else {
			p, err = submitFile(ctx, s, f)
		}
		if err != nil {
			return err
		}
		return printProjection(stdout, p, f.asJSON)
	})
}

func submitFile(ctx context.Context, s *session.Session, f *cliFlags) (*projection.Projection, error) {
	src, err := transcription.FromPath(f.file)
	if err != nil {
		return nil, err
	}
	return s.SubmitFile(ctx, src, f.options())
}

// record captures until the input ends or --duration passes, then submits. A shutdown
// signal discards the recording.
func record(ctx context.Context, s *session.Session, f *cliFlags, ended <-chan struct{}, log *logger.Logger) (*projection.Projection, error) {
	rec, err := s.Record(ctx, f.options())
	if err != nil {
		return nil, err
	}
	source := "stdin"
	if f.recordCmd != "" {
		source = f.recordCmd
	}
	log.Info("Recording", logger.Fields(logger.FieldSubmissionID, rec.ID(), "source", source))

	var deadline <-chan time.Time
	if f.duration > 0 {
		timer := time.NewTimer(f.duration)
		defer timer.Stop()
		deadline = timer.C
	}

	levels := rec.Levels()
wait:
	for {
		select {
		case <-ctx.Done():
			rec.Cancel()
			return nil, ctx.Err()
		case lvl, ok := <-levels:
			if !ok {
				levels = nil
				continue
			}
			log.Debug("Input level", logger.Fields("level", lvl))
		case <-ended:
			break wait
		case <-deadline:
			break wait
		}
	}
	if ctx.Err() != nil {
		rec.Cancel()
		return nil, ctx.Err()
	}
	return rec.Submit(ctx)
}

func progressObserver(log *logger.Logger) session.Observer {
	return func(ev session.Event) {
		fields := logger.Fields(
			logger.FieldSubmissionID, ev.SubmissionID,
			logger.FieldState, string(ev.State),
		)
		if ev.Path != "" {
			fields[logger.FieldPath] = ev.Path
		}
		switch {
		case ev.State == session.StateRetrying:
			fields[logger.FieldAttempt] = ev.Attempt
			fields["delay"] = ev.Delay.String()
			if ev.Err != nil {
				fields[logger.FieldErrorCode] = string(ev.Err.Code)
			}
			log.Warn("Retrying submission", fields)
		case ev.Advisory != nil:
			log.Warn(ev.Advisory.Message, fields)
		default:
			log.Info("Submission state", fields)
		}
	}
}

func userMessage(err error) string {
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr.Message
	}
	return err.Error()
}
