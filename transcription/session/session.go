// Package session drives one transcription at a time through validation,
// capture or file selection, submission with retries, and projection.
package session

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/transcribekit/errors"
	"github.com/kbukum/transcribekit/logger"
	"github.com/kbukum/transcribekit/observability"
	"github.com/kbukum/transcribekit/resilience"
	"github.com/kbukum/transcribekit/transcription"
	"github.com/kbukum/transcribekit/transcription/capture"
	"github.com/kbukum/transcribekit/transcription/intake"
	"github.com/kbukum/transcribekit/transcription/normalize"
	"github.com/kbukum/transcribekit/transcription/projection"
)

// Submitter performs a single transport attempt.
type Submitter interface {
	PathFor(size int64) string
	Submit(ctx context.Context, req *transcription.Request) (*transcription.APIResponse, error)
}

// Options are the user's choices for one submission.
type Options struct {
	LanguageCode string
	OutputScript string
	Diarization  bool
	// ChunkSize of 0 uses the session default.
	ChunkSize  int
	ModelIndex *int
}

// Session runs submissions. At most one is in flight at a time.
type Session struct {
	router     Submitter
	intake     *intake.Validator
	engineCfg  normalize.Config
	engineOpts []normalize.Option
	engine     *normalize.Engine
	projector  *projection.Projector
	capture    *capture.Adapter
	gate       *resilience.Bulkhead
	observer   Observer
	metrics    *observability.TranscriptionMetrics
	chunkSize  int
	now        func() time.Time
	newID      func() string
	log        *logger.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithIntake replaces the default 100 MiB intake validator.
func WithIntake(v *intake.Validator) Option {
	return func(s *Session) { s.intake = v }
}

// WithEngine configures the retry engine. The session adds its own retry hook.
func WithEngine(cfg normalize.Config, opts ...normalize.Option) Option {
	return func(s *Session) {
		s.engineCfg = cfg
		s.engineOpts = append(s.engineOpts, opts...)
	}
}

// WithProjector replaces the default projector.
func WithProjector(p *projection.Projector) Option {
	return func(s *Session) { s.projector = p }
}

// WithCapture enables Record.
func WithCapture(a *capture.Adapter) Option {
	return func(s *Session) { s.capture = a }
}

// WithObserver registers the transition observer.
func WithObserver(o Observer) Option {
	return func(s *Session) { s.observer = o }
}

// WithMetrics records submissions and attempts.
func WithMetrics(m *observability.TranscriptionMetrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithChunkSize sets the chunk size used when Options leave it zero.
func WithChunkSize(seconds int) Option {
	return func(s *Session) { s.chunkSize = seconds }
}

// WithClock injects the time source used for elapsed time and events.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithIDGenerator replaces the UUID submission IDs.
func WithIDGenerator(fn func() string) Option {
	return func(s *Session) { s.newID = fn }
}

// WithLogger overrides the component logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Session) { s.log = l }
}

// New creates a Session submitting through router.
func New(router Submitter, opts ...Option) *Session {
	s := &Session{
		router:    router,
		intake:    intake.New(0),
		projector: projection.New(nil),
		gate:      resilience.NewBulkhead(resilience.BulkheadConfig{Name: "submission", MaxConcurrent: 1}),
		chunkSize: transcription.DefaultChunkSize,
		now:       time.Now,
		newID:     uuid.NewString,
		log:       logger.Get("session"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = normalize.New(s.engineCfg, append(s.engineOpts, normalize.WithOnRetry(s.onRetry))...)
	return s
}

// Busy reports whether a submission or recording is in progress.
func (s *Session) Busy() bool {
	return s.gate.InUse() > 0
}

// SubmitFile validates opts and src, then submits src. Validation always
// completes before any network call. The error is always an *errors.AppError.
func (s *Session) SubmitFile(ctx context.Context, src transcription.AudioSource, opts Options) (*projection.Projection, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	sub := newSubmission(s.newID(), s.observer, s.now)
	ctx = logger.ContextWithSubmissionID(ctx, sub.id)
	_ = sub.to(StateValidating, Event{})

	req, appErr := s.buildRequest(opts)
	if appErr != nil {
		return nil, s.failed(ctx, sub, appErr)
	}
	checked, err := s.intake.Validate(src)
	if err != nil {
		return nil, s.failed(ctx, sub, errors.Wrap(err))
	}
	req.Audio = src
	if checked.Sniffed {
		req.Audio.MIMEType = checked.MIMEType
	}
	_ = sub.to(StateFileSelected, Event{Advisory: checked.Advisory})

	return s.submit(ctx, sub, req)
}

// Record validates opts and starts capturing. The submission slot is held
// until the Recording is submitted or cancelled.
func (s *Session) Record(ctx context.Context, opts Options) (*Recording, error) {
	if s.capture == nil {
		return nil, errors.UnsupportedBrowser(capture.ErrNoDevice)
	}
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}

	sub := newSubmission(s.newID(), s.observer, s.now)
	ctx = logger.ContextWithSubmissionID(ctx, sub.id)
	_ = sub.to(StateValidating, Event{})

	req, appErr := s.buildRequest(opts)
	if appErr != nil {
		release()
		return nil, s.failed(ctx, sub, appErr)
	}

	c, err := s.capture.Start(ctx)
	if err != nil {
		release()
		return nil, s.failed(ctx, sub, errors.Wrap(err))
	}
	_ = sub.to(StateCapturing, Event{})

	return &Recording{session: s, sub: sub, capture: c, req: req, release: release}, nil
}

func (s *Session) acquire(ctx context.Context) (func(), error) {
	release, err := s.gate.Acquire(ctx)
	if err != nil {
		if stderrors.Is(err, resilience.ErrBulkheadFull) {
			return nil, errors.BadRequest("A transcription is already in progress.")
		}
		return nil, errors.Wrap(err)
	}
	return release, nil
}

func (s *Session) buildRequest(opts Options) (*transcription.Request, *errors.AppError) {
	req := &transcription.Request{
		LanguageCode: opts.LanguageCode,
		OutputScript: opts.OutputScript,
		Diarization:  opts.Diarization,
		ChunkSize:    opts.ChunkSize,
		ModelIndex:   opts.ModelIndex,
	}
	if req.ChunkSize == 0 {
		req.ChunkSize = s.chunkSize
	}
	req.ApplyDefaults()
	if appErr := req.Validate(); appErr != nil {
		return nil, appErr
	}
	return req, nil
}

// submit runs the retry loop and projects the result.
func (s *Session) submit(ctx context.Context, sub *submission, req *transcription.Request) (*projection.Projection, error) {
	path := s.router.PathFor(req.Audio.Size)

	ctx, span := observability.StartSpan(ctx, observability.SpanSubmission)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrSubmissionID, sub.id)
	observability.SetSpanAttribute(ctx, observability.AttrPath, path)
	observability.SetSpanAttribute(ctx, observability.AttrFileSize, req.Audio.Size)

	ctx = withSubmission(ctx, sub)
	if s.metrics != nil {
		s.metrics.SubmissionStarted(ctx)
	}
	start := s.now()

	resp, appErr := normalize.Do(ctx, s.engine, func(ctx context.Context, attempt int) (*transcription.APIResponse, error) {
		_ = sub.to(StateSubmitting, Event{Path: path, Attempt: attempt})
		observability.SetSpanAttribute(ctx, observability.AttrAttempt, attempt)
		if s.metrics != nil {
			s.metrics.RecordAttempt(ctx, path, attempt)
		}
		return s.router.Submit(ctx, req)
	})
	elapsed := s.now().Sub(start)

	fields := logger.DurationFields("submit", elapsed)
	fields[logger.FieldPath] = path

	if appErr != nil {
		s.record(ctx, path, string(appErr.Code), elapsed)
		observability.SetSpanError(ctx, appErr)
		observability.SetSpanAttribute(ctx, observability.AttrErrorCode, string(appErr.Code))
		fields[logger.FieldErrorCode] = string(appErr.Code)
		s.log.WithContext(ctx).Warn("submission failed", logger.MergeWithError(fields, appErr))
		return nil, sub.fail(appErr)
	}

	proj := s.projector.Project(resp, req, elapsed)
	s.record(ctx, path, "ok", elapsed)
	observability.SetSpanAttribute(ctx, observability.AttrOutcome, "ok")
	s.log.WithContext(ctx).Info("submission succeeded", fields)
	_ = sub.to(StateSucceeded, Event{})
	return &proj, nil
}

func (s *Session) onRetry(ctx context.Context, n normalize.RetryNotice) {
	if sub, ok := submissionFrom(ctx); ok {
		_ = sub.to(StateRetrying, Event{Attempt: n.Attempt, Delay: n.Delay, Err: n.Cause})
	}
}

func (s *Session) failed(ctx context.Context, sub *submission, appErr *errors.AppError) error {
	s.log.WithContext(ctx).Info("submission rejected", logger.Fields(
		logger.FieldErrorCode, string(appErr.Code),
		logger.FieldState, string(sub.current()),
	))
	return sub.fail(appErr)
}

func (s *Session) record(ctx context.Context, path, outcome string, d time.Duration) {
	if s.metrics != nil {
		s.metrics.RecordSubmission(ctx, path, outcome, d)
	}
}

type submissionKey struct{}

func withSubmission(ctx context.Context, sub *submission) context.Context {
	return context.WithValue(ctx, submissionKey{}, sub)
}

func submissionFrom(ctx context.Context) (*submission, bool) {
	sub, ok := ctx.Value(submissionKey{}).(*submission)
	return sub, ok
}
