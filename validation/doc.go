// Package validation validates requests and configuration before any work is
// done with them.
//
// Struct tag validation uses go-playground/validator with two extra tags:
// language_code (a BCP 47 tag or "auto", never the "undefined"/"null"
// placeholders) and script (an ISO 15924 script code). A third tag, size,
// accepts human-readable byte sizes such as "4MB".
//
//	type Request struct {
//	    LanguageCode string `json:"language_code" validate:"language_code"`
//	    ChunkSize    int    `json:"chunk_size" validate:"oneof=60 120 180"`
//	}
//	err := validation.Validate(req)
//
// The programmatic Validator collects field errors in the same shape:
//
//	v := validation.New()
//	v.Required("api_base_url", cfg.APIBaseURL).URL("api_base_url", cfg.APIBaseURL)
//	err := v.Validate()
package validation
