package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/kbukum/transcribekit/transcription/projection"
)

// printProjection writes the transcript. Text output labels speakers when
// the result carries them and ends with the language suggestion, if any.
func printProjection(w io.Writer, p *projection.Projection, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	}

	var b strings.Builder
	if hasSpeakers(p) {
		for _, seg := range p.Result.Segments {
			if seg.Speaker != "" {
				fmt.Fprintf(&b, "%s: %s\n", seg.Speaker, strings.TrimSpace(seg.Text))
			} else {
				fmt.Fprintln(&b, strings.TrimSpace(seg.Text))
			}
		}
	} else {
		fmt.Fprintln(&b, strings.TrimSpace(p.Result.Text))
	}

	if sg := p.Suggestion; sg != nil {
		fmt.Fprintf(&b, "\nDetected %s (%s). Re-run with --language %s to select it.\n",
			sg.Language.Name, sg.Detected, sg.Language.Code)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func hasSpeakers(p *projection.Projection) bool {
	for _, seg := range p.Result.Segments {
		if seg.Speaker != "" {
			return true
		}
	}
	return false
}
