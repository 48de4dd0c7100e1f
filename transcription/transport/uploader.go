package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/kbukum/transcribekit/errors"
	"github.com/kbukum/transcribekit/httpclient"
	"github.com/kbukum/transcribekit/transcription"
	"github.com/kbukum/transcribekit/util"
)

// TokenSource supplies bearer tokens for the direct path.
type TokenSource interface {
	GetToken(ctx context.Context) (string, error)
	Invalidate()
}

// uploader posts one multipart request to one endpoint. It never retries.
type uploader struct {
	client *httpclient.Client
	path   string
	tokens TokenSource
}

func (u *uploader) upload(ctx context.Context, req *transcription.Request) (*transcription.APIResponse, error) {
	auth := httpclient.NoAuth()
	if u.tokens != nil {
		token, err := u.tokens.GetToken(ctx)
		if err != nil {
			if errors.Is(err, errors.ErrCodeAuthUnavailable) || errors.Is(err, errors.ErrCodeTimeout) {
				return nil, err
			}
			return nil, errors.AuthUnavailable(err)
		}
		auth = httpclient.BearerAuth(token)
	}

	body, closeAudio, err := multipartBody(req)
	if err != nil {
		return nil, err
	}
	defer closeAudio()

	resp, err := u.client.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   u.path,
		Body:   body,
		Auth:   auth,
	})
	if err != nil {
		if he, ok := httpclient.AsError(err); ok && he.StatusCode == http.StatusUnauthorized && u.tokens != nil {
			u.tokens.Invalidate()
		}
		return nil, err
	}

	var out transcription.APIResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, errors.Unknown(fmt.Errorf("decode transcription response: %w", err))
	}
	if out.Failed() {
		detail := out.Detail
		if detail == "" {
			detail = "transcription failed"
		}
		return nil, errors.Unknown(fmt.Errorf("%s", detail)).WithDetail("detail", detail)
	}
	return &out, nil
}

// multipartBody builds the form for req. The audio part streams from a fresh
// reader so every attempt sends the full payload.
func multipartBody(req *transcription.Request) (*httpclient.MultipartBody, func(), error) {
	audio, err := req.Audio.Open()
	if err != nil {
		return nil, nil, errors.Unknown(fmt.Errorf("open audio: %w", err))
	}

	fields := []httpclient.FormField{{Name: "language_code", Value: req.LanguageCode}}
	if req.OutputScript != "" {
		fields = append(fields, httpclient.FormField{Name: "output_script", Value: req.OutputScript})
	}
	if req.ModelIndex != nil {
		fields = append(fields, httpclient.FormField{Name: "index", Value: strconv.Itoa(*req.ModelIndex)})
	}
	fields = append(fields,
		httpclient.FormField{Name: "chunk_size", Value: strconv.Itoa(req.ChunkSize)},
		httpclient.FormField{Name: "enable_diarization", Value: strconv.FormatBool(req.Diarization)},
	)

	body := &httpclient.MultipartBody{
		Fields: fields,
		Files: []httpclient.FileField{{
			FieldName:   "audio",
			FileName:    util.SanitizeFileName(req.Audio.Name, "audio"),
			ContentType: transcription.BaseMIMEType(req.Audio.MIMEType),
			Reader:      audio,
		}},
	}
	return body, func() { _ = audio.Close() }, nil
}
