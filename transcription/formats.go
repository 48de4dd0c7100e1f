package transcription

import (
	"mime"
	"path/filepath"
	"strings"
)

// Format is an audio or video container the client recognizes.
type Format struct {
	Ext       string
	MIMETypes []string
	// APIAccepted is false for containers the service rejects even though
	// the client can produce or select them.
	APIAccepted bool
}

// Formats is the client allow-list. The first MIME type of each entry is
// the canonical one.
var Formats = []Format{
	{Ext: "mp3", MIMETypes: []string{"audio/mpeg", "audio/mp3"}, APIAccepted: true},
	{Ext: "wav", MIMETypes: []string{"audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave"}, APIAccepted: true},
	{Ext: "m4a", MIMETypes: []string{"audio/mp4", "audio/x-m4a", "audio/m4a"}, APIAccepted: true},
	{Ext: "mp4", MIMETypes: []string{"video/mp4"}, APIAccepted: true},
	{Ext: "aac", MIMETypes: []string{"audio/aac", "audio/x-aac"}, APIAccepted: true},
	{Ext: "ogg", MIMETypes: []string{"audio/ogg", "application/ogg"}, APIAccepted: true},
	{Ext: "oga", MIMETypes: []string{"audio/ogg"}, APIAccepted: true},
	{Ext: "opus", MIMETypes: []string{"audio/opus"}, APIAccepted: true},
	{Ext: "flac", MIMETypes: []string{"audio/flac", "audio/x-flac"}, APIAccepted: true},
	{Ext: "webm", MIMETypes: []string{"audio/webm", "video/webm"}, APIAccepted: false},
	{Ext: "weba", MIMETypes: []string{"audio/webm"}, APIAccepted: false},
	{Ext: "mov", MIMETypes: []string{"video/quicktime"}, APIAccepted: true},
	{Ext: "mpeg", MIMETypes: []string{"audio/mpeg", "video/mpeg"}, APIAccepted: true},
	{Ext: "mpga", MIMETypes: []string{"audio/mpeg"}, APIAccepted: true},
	{Ext: "3gp", MIMETypes: []string{"audio/3gpp", "video/3gpp"}, APIAccepted: true},
	{Ext: "amr", MIMETypes: []string{"audio/amr"}, APIAccepted: true},
	{Ext: "wma", MIMETypes: []string{"audio/x-ms-wma"}, APIAccepted: true},
}

// BaseMIMEType strips parameters and lowercases: "audio/webm;codecs=opus" -> "audio/webm".
func BaseMIMEType(mimeType string) string {
	if mimeType == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
		return mt
	}
	base, _, _ := strings.Cut(mimeType, ";")
	return strings.ToLower(strings.TrimSpace(base))
}

// Extension returns the lowercased extension of name without the dot.
func Extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// FormatByExtension looks up a format by file extension.
func FormatByExtension(ext string) (Format, bool) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, f := range Formats {
		if f.Ext == ext {
			return f, true
		}
	}
	return Format{}, false
}

// FormatByMIME looks up the first format listing mimeType. Parameters are ignored.
func FormatByMIME(mimeType string) (Format, bool) {
	mt := BaseMIMEType(mimeType)
	if mt == "" {
		return Format{}, false
	}
	for _, f := range Formats {
		for _, m := range f.MIMETypes {
			if m == mt {
				return f, true
			}
		}
	}
	return Format{}, false
}

// MIMETypeForName returns the canonical MIME type for a file name, or "".
func MIMETypeForName(name string) string {
	if f, ok := FormatByExtension(Extension(name)); ok {
		return f.MIMETypes[0]
	}
	return ""
}
