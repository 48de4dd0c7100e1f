package capture

// DefaultCandidates are tried in order: MPEG-4/AAC, Ogg/Opus, WebM/Opus, WebM.
var DefaultCandidates = []string{
	"audio/mp4",
	"audio/ogg;codecs=opus",
	"audio/webm;codecs=opus",
	"audio/webm",
}

// SupportProbe reports whether the platform claims to encode mimeType.
type SupportProbe func(mimeType string) bool

// Encoding is a negotiated container with the recorder that produces it.
type Encoding struct {
	MIMEType string
	Recorder Recorder
}

// SelectEncoding returns the first candidate that the probe reports as
// supported and that instantiates without error. Platforms sometimes claim
// support and then refuse to construct a recorder, so both checks are
// required.
func SelectEncoding(candidates []string, probe SupportProbe, instantiate func(mimeType string) (Recorder, error)) (Encoding, bool) {
	for _, mt := range candidates {
		if probe != nil && !probe(mt) {
			continue
		}
		rec, err := instantiate(mt)
		if err != nil || rec == nil {
			continue
		}
		return Encoding{MIMEType: mt, Recorder: rec}, true
	}
	return Encoding{}, false
}
