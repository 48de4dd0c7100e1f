// Package intake checks a selected or recorded file before anything is sent.
package intake

import (
	"github.com/gabriel-vasile/mimetype"

	"github.com/kbukum/transcribekit/errors"
	"github.com/kbukum/transcribekit/logger"
	"github.com/kbukum/transcribekit/transcription"
	"github.com/kbukum/transcribekit/util"
)

// DefaultMaxSize is the client intake cap.
const DefaultMaxSize = 100 * util.MiB

// sniffLen is how many leading bytes are read when no MIME type is declared.
const sniffLen = 3072

// AdvisoryAPIIncompatible flags input the client accepts but the service
// is likely to reject.
const AdvisoryAPIIncompatible = "api_incompatible_format"

// Advisory is a non-fatal warning about an accepted file.
type Advisory struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Result describes an accepted file.
type Result struct {
	Format transcription.Format
	// MIMEType is the declared type, or the sniffed one when none was declared.
	MIMEType string
	Sniffed  bool
	Advisory *Advisory
}

// Validator applies the size cap and the format allow-list.
type Validator struct {
	maxSize int64
	log     *logger.Logger
}

// New creates a Validator. maxSize <= 0 uses DefaultMaxSize.
func New(maxSize int64) *Validator {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Validator{maxSize: maxSize, log: logger.Get("intake")}
}

// MaxSize returns the configured cap in bytes.
func (v *Validator) MaxSize() int64 { return v.maxSize }

// Validate fails with FileTooLarge or UnsupportedFormat. It has no side
// effects beyond reading the sniff window of a source without a MIME type.
func (v *Validator) Validate(src transcription.AudioSource) (Result, error) {
	if src.Size > v.maxSize {
		return Result{}, errors.FileTooLarge(src.Size, v.maxSize)
	}

	res := Result{MIMEType: src.MIMEType}
	if transcription.BaseMIMEType(src.MIMEType) == "" {
		if sniffed := sniff(src); sniffed != "" {
			res.MIMEType = sniffed
			res.Sniffed = true
		}
	}

	mimeFormat, mimeOK := transcription.FormatByMIME(res.MIMEType)
	ext := transcription.Extension(src.Name)
	extFormat, extOK := transcription.FormatByExtension(ext)

	switch {
	case mimeOK:
		res.Format = mimeFormat
	case extOK:
		res.Format = extFormat
	default:
		return Result{}, errors.UnsupportedFormat(util.Coalesce(ext, transcription.BaseMIMEType(res.MIMEType)))
	}

	if !res.Format.APIAccepted {
		res.Advisory = &Advisory{
			Code:    AdvisoryAPIIncompatible,
			Message: "WebM audio may not be accepted by the transcription service. Convert it to MP3, WAV or M4A if the upload fails.",
		}
		v.log.Debug("api-incompatible format accepted", logger.Fields(
			logger.FieldMIMEType, res.MIMEType,
			"ext", ext,
		))
	}
	return res, nil
}

// sniff detects a MIME type from the leading bytes. It walks the detected
// type's parents so a generic match still maps onto the allow-list.
func sniff(src transcription.AudioSource) string {
	head, err := src.ReadHead(sniffLen)
	if err != nil || len(head) == 0 {
		return ""
	}
	detected := mimetype.Detect(head)
	for m := detected; m != nil; m = m.Parent() {
		if _, ok := transcription.FormatByMIME(m.String()); ok {
			return m.String()
		}
	}
	return detected.String()
}
