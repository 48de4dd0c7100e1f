package relay

import (
	stderrors "errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kbukum/transcribekit/auth/jwt"
	apperrors "github.com/kbukum/transcribekit/errors"
	"github.com/kbukum/transcribekit/httpclient"
	"github.com/kbukum/transcribekit/logger"
	"github.com/kbukum/transcribekit/observability"
	"github.com/kbukum/transcribekit/resilience"
	"github.com/kbukum/transcribekit/server"
	"github.com/kbukum/transcribekit/server/middleware"
	"github.com/kbukum/transcribekit/transcription/token"
)

// tokenSubject is the subject of every token the relay issues.
const tokenSubject = "transcribe-client"

const (
	detailCircuitOpen  = "The transcription service is temporarily unavailable. Please try again shortly."
	detailUnreachable  = "Could not reach the transcription service."
	detailNotMultipart = "Expected a multipart/form-data upload."
)

func (r *Relay) issueToken(c *gin.Context) {
	log := r.log.WithContext(c.Request.Context())

	issued, err := r.tokens.Issue(&jwt.RegisteredClaims{Subject: tokenSubject, ID: uuid.NewString()})
	if err != nil {
		log.Error("Token issue failed", logger.ErrorFields("issue_token", err))
		server.RespondWithError(c, apperrors.AuthUnavailable(err))
		return
	}

	c.JSON(http.StatusOK, token.Response{
		Token:     issued.Token,
		ExpiresIn: int64(issued.ExpiresAt.Sub(issued.IssuedAt).Seconds()),
		IssuedAt:  issued.IssuedAt.Unix(),
	})
}

// forward relays the multipart upload unchanged and copies the upstream
// status and body back. Only failures to get any upstream answer are
// translated into relay errors.
func (r *Relay) forward(c *gin.Context) {
	ctx, span := observability.StartSpan(c.Request.Context(), observability.SpanRelayForward)
	defer span.End()
	log := r.log.WithContext(ctx)

	if c.ContentType() != gin.MIMEMultipartPOSTForm {
		server.RespondDetail(c, http.StatusBadRequest, detailNotMultipart)
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if stderrors.As(err, &maxErr) {
			server.RespondWithError(c, apperrors.PayloadTooLarge())
			return
		}
		server.RespondWithError(c, apperrors.BadRequest("Could not read the upload."))
		return
	}
	observability.SetSpanAttribute(ctx, "relay.body_bytes", len(body))

	resp, err := r.upstream.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   r.cfg.UpstreamPath,
		Headers: map[string]string{
			"Content-Type":             c.GetHeader("Content-Type"),
			"Accept":                   "application/json",
			middleware.HeaderRequestID: c.GetString("request_id"),
		},
		Body: body,
	})
	if resp != nil {
		observability.SetSpanAttribute(ctx, "relay.upstream_status", resp.StatusCode)
		if err != nil {
			log.Warn("Upstream rejected upload", logger.Fields(
				logger.FieldStatus, resp.StatusCode, logger.FieldSize, len(body)))
		}
		contentType := resp.Headers["Content-Type"]
		if contentType == "" {
			contentType = gin.MIMEJSON
		}
		c.Data(resp.StatusCode, contentType, resp.Body)
		return
	}

	observability.SetSpanError(ctx, err)
	log.Error("Upstream unavailable", logger.ErrorFields("forward", err))
	switch {
	case stderrors.Is(err, resilience.ErrCircuitOpen):
		server.RespondDetail(c, http.StatusServiceUnavailable, detailCircuitOpen)
	case httpclient.IsTimeout(err):
		server.RespondWithError(c, apperrors.Timeout("relay_forward"))
	default:
		server.RespondDetail(c, http.StatusBadGateway, detailUnreachable)
	}
}
