package transcription

import "github.com/kbukum/transcribekit/provider"

// Provider sends one request to one upload path.
type Provider = provider.RequestResponse[*Request, *APIResponse]

// NewRegistry creates a registry of upload-path providers.
func NewRegistry() *provider.Registry[Provider] {
	return provider.NewRegistry[Provider]()
}
