// Package transcription defines the domain types shared by the submission
// pipeline: audio sources, requests, the upstream response shape and the
// projected result, plus the client configuration.
//
// The pipeline itself lives in subpackages:
//
//	capture     microphone capture and encoding negotiation
//	intake      size and format checks on a selected file
//	token       short-lived bearer tokens for the direct path
//	transport   proxy/direct upload over multipart HTTP
//	normalize   retries and error taxonomy mapping
//	projection  response to result mapping and language suggestion
//	session     per-submission state machine tying it together
package transcription
