// Package httpclient is the HTTP layer shared by the transcription client and
// the relay. It builds requests (JSON, raw and multipart bodies), applies
// authentication and a User-Agent, bounds every call with a context timeout,
// and classifies failures into typed *Error values.
//
//	client, err := httpclient.New(httpclient.Config{
//	    BaseURL: "https://api.example.com",
//	    Timeout: 60 * time.Second,
//	})
//
//	resp, err := client.Do(ctx, httpclient.Request{
//	    Method: http.MethodPost,
//	    Path:   "/transcribe",
//	    Auth:   httpclient.BearerAuth(token),
//	    Body: &httpclient.MultipartBody{
//	        Fields: []httpclient.FormField{{Name: "language_code", Value: "en"}},
//	        Files:  []httpclient.FileField{{FieldName: "audio", FileName: "a.wav", Reader: f}},
//	    },
//	})
//
// Non-2xx responses return both the *Response and an *Error carrying the
// status and body, so callers can inspect structured error bodies.
package httpclient
