package normalize

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net"
	"net/http"
	"strings"
	"unicode"

	"github.com/kbukum/transcribekit/errors"
	"github.com/kbukum/transcribekit/httpclient"
)

// Hint is a machine-readable reason carried in an error body.
type Hint string

const (
	HintNone              Hint = ""
	HintUnsupportedFormat Hint = "unsupported_format"
)

// hintKeys maps normalized body keys onto hints. A key matches when the
// normalized body value starts with it.
var hintKeys = []struct {
	key  string
	hint Hint
}{
	{"unsupported_format", HintUnsupportedFormat},
	{"unsupported_file_format", HintUnsupportedFormat},
	{"unsupported_audio_format", HintUnsupportedFormat},
	{"unsupported_media_type", HintUnsupportedFormat},
	{"invalid_audio_format", HintUnsupportedFormat},
}

type statusRule func(status int, hint Hint, detail string) *errors.AppError

// statusRules is the (status, hint) dispatch table. Other 4xx statuses are
// UnsupportedFormat when the body says so and Unknown otherwise.
var statusRules = map[int]statusRule{
	http.StatusUnauthorized: func(int, Hint, string) *errors.AppError {
		return errors.AuthFailed()
	},
	http.StatusRequestEntityTooLarge: func(int, Hint, string) *errors.AppError {
		return errors.PayloadTooLarge()
	},
	http.StatusUnsupportedMediaType: func(_ int, _ Hint, detail string) *errors.AppError {
		return withDetail(errors.UnsupportedFormat(""), detail)
	},
	http.StatusBadRequest: func(_ int, hint Hint, detail string) *errors.AppError {
		if hint == HintUnsupportedFormat {
			return withDetail(errors.UnsupportedFormat(""), detail)
		}
		return errors.BadRequest(detail)
	},
	http.StatusTooManyRequests: func(int, Hint, string) *errors.AppError {
		return errors.RateLimited()
	},
}

// OnlineChecker reports whether the host has network connectivity.
type OnlineChecker interface {
	Online() bool
}

// OnlineFunc adapts a function to OnlineChecker.
type OnlineFunc func() bool

func (f OnlineFunc) Online() bool { return f() }

type alwaysOnline struct{}

func (alwaysOnline) Online() bool { return true }

// Normalize maps any failure onto the error taxonomy. AppErrors pass through.
func (e *Engine) Normalize(err error) *errors.AppError {
	if err == nil {
		return nil
	}
	if app, ok := errors.AsAppError(err); ok {
		return app
	}
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return errors.Timeout("transcribe").WithCause(err)
	}
	if he, ok := httpclient.AsError(err); ok {
		return e.fromHTTP(he)
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return errors.NoConnectivity(!e.online.Online()).WithCause(err)
	}
	return errors.Unknown(err)
}

func (e *Engine) fromHTTP(he *httpclient.Error) *errors.AppError {
	switch he.Code {
	case httpclient.ErrCodeTimeout:
		return errors.Timeout("transcribe").WithCause(he)
	case httpclient.ErrCodeConnection:
		return errors.NoConnectivity(!e.online.Online()).WithCause(he)
	}
	if he.StatusCode == 0 {
		return errors.Unknown(he)
	}

	hint, detail := parseBody(he.Body)
	if rule, ok := statusRules[he.StatusCode]; ok {
		return rule(he.StatusCode, hint, detail).WithCause(he)
	}
	if he.StatusCode < 500 && hint == HintUnsupportedFormat {
		return withDetail(errors.UnsupportedFormat(""), detail).WithCause(he)
	}
	if he.StatusCode >= 500 {
		return withDetail(errors.ServerError(he.StatusCode), detail).WithCause(he)
	}
	return errors.Unknown(he).WithDetail("status", he.StatusCode)
}

func withDetail(app *errors.AppError, detail string) *errors.AppError {
	if detail == "" {
		return app
	}
	return app.WithDetail("detail", detail)
}

// errorBody covers {"detail": "..."} and {"detail": {"code", "type", "message"}}
// as well as top-level code/type keys.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
	Code   string          `json:"code"`
	Type   string          `json:"type"`
}

type structuredDetail struct {
	Code    string `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// parseBody extracts a hint and a human-readable detail from an error body.
func parseBody(body []byte) (Hint, string) {
	var eb errorBody
	if len(body) == 0 || json.Unmarshal(body, &eb) != nil {
		return HintNone, ""
	}

	var detail string
	keys := []string{eb.Code, eb.Type}
	if len(eb.Detail) > 0 {
		var s string
		var sd structuredDetail
		switch {
		case json.Unmarshal(eb.Detail, &s) == nil:
			detail = s
			keys = append(keys, s)
		case json.Unmarshal(eb.Detail, &sd) == nil:
			detail = sd.Message
			keys = append(keys, sd.Code, sd.Type, sd.Message)
		}
	}

	for _, k := range keys {
		if h := lookupHint(k); h != HintNone {
			return h, detail
		}
	}
	return HintNone, detail
}

func lookupHint(value string) Hint {
	key := hintKey(value)
	if key == "" {
		return HintNone
	}
	for _, hk := range hintKeys {
		if strings.HasPrefix(key, hk.key) {
			return hk.hint
		}
	}
	return HintNone
}

// hintKey lowercases value and collapses runs of non-alphanumerics to "_":
// "Unsupported format: webm" -> "unsupported_format_webm".
func hintKey(value string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(value) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
			pendingSep = false
			continue
		}
		pendingSep = true
	}
	return b.String()
}
