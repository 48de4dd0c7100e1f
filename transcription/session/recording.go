package session

import (
	"context"
	"sync"

	"github.com/kbukum/transcribekit/errors"
	"github.com/kbukum/transcribekit/logger"
	"github.com/kbukum/transcribekit/transcription"
	"github.com/kbukum/transcribekit/transcription/capture"
	"github.com/kbukum/transcribekit/transcription/projection"
)

// Recording is a capture in progress. Exactly one of Submit or Cancel
// should be called.
type Recording struct {
	session *Session
	sub     *submission
	capture *capture.Capture
	req     *transcription.Request
	release func()
	once    sync.Once
}

// ID returns the submission ID.
func (r *Recording) ID() string { return r.sub.id }

// Levels streams input levels (0-100) until the capture stops.
func (r *Recording) Levels() <-chan int {
	return r.capture.Levels()
}

// Submit stops the capture, checks the recorded file and submits it.
func (r *Recording) Submit(ctx context.Context) (*projection.Projection, error) {
	var (
		proj *projection.Projection
		err  error
		used = true
	)
	r.once.Do(func() {
		used = false
		defer r.release()
		proj, err = r.submit(ctx)
	})
	if used {
		return nil, errors.BadRequest("Recording already finished.")
	}
	return proj, err
}

func (r *Recording) submit(ctx context.Context) (*projection.Projection, error) {
	s := r.session
	ctx = logger.ContextWithSubmissionID(ctx, r.sub.id)

	src, err := r.capture.Stop()
	if err != nil {
		return nil, s.failed(ctx, r.sub, errors.Wrap(err))
	}
	checked, err := s.intake.Validate(src)
	if err != nil {
		return nil, s.failed(ctx, r.sub, errors.Wrap(err))
	}
	r.req.Audio = src
	if checked.Advisory != nil {
		s.log.WithContext(ctx).Warn(checked.Advisory.Message, logger.Fields(logger.FieldMIMEType, src.MIMEType))
	}
	return s.submit(ctx, r.sub, r.req)
}

// Cancel stops the capture and discards the audio.
func (r *Recording) Cancel() {
	r.once.Do(func() {
		defer r.release()
		_, _ = r.capture.Stop()
		r.sub.fail(errors.BadRequest("Recording cancelled."))
	})
}
