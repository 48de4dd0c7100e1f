// Package projection turns a raw service response into the result shown to
// the user, plus an optional language-selection suggestion.
package projection

import (
	"math"
	"slices"
	"time"

	"github.com/kbukum/transcribekit/transcription"
	"github.com/kbukum/transcribekit/validation"
)

// Suggestion proposes switching the language selection to the detected one.
// It is advisory and never blocks the result.
type Suggestion struct {
	Detected string    `json:"detected"`
	Language Language  `json:"language"`
	Match    MatchKind `json:"match"`
}

// Projection is the outcome of Project.
type Projection struct {
	Result     transcription.Result `json:"result"`
	Suggestion *Suggestion          `json:"suggestion,omitempty"`
}

// Projector projects responses against a language table.
type Projector struct {
	table *Table
}

// New creates a Projector. A nil table uses DefaultTable.
func New(table *Table) *Projector {
	if table == nil {
		table = DefaultTable()
	}
	return &Projector{table: table}
}

// Project uses the embedded language table.
func Project(resp *transcription.APIResponse, req *transcription.Request, elapsed time.Duration) Projection {
	return New(nil).Project(resp, req, elapsed)
}

// Project maps resp onto a Result. elapsed is the client wall-clock time of
// the submission. The Result owns its slices.
func (p *Projector) Project(resp *transcription.APIResponse, req *transcription.Request, elapsed time.Duration) Projection {
	result := transcription.Result{
		Text:                resp.Text,
		Segments:            slices.Clone(resp.Segments),
		DetectedLanguage:    resp.DetectedLanguage,
		LanguageProbability: resp.LanguageProbability,
		Confidence:          Confidence(resp.LanguageProbability),
		ProcessingTime:      elapsed,
		ServerTime:          resp.TotalTime,
		Speakers:            slices.Clone(resp.UniqueSpeakers),
		FileName:            resp.Filename,
	}
	if result.Segments == nil {
		result.Segments = []transcription.Segment{}
	}
	if len(result.Speakers) == 0 {
		result.Speakers = speakersFromSegments(resp.Segments)
	}
	if result.FileName == "" && req != nil {
		result.FileName = req.Audio.Name
	}

	out := Projection{Result: result}
	var requested string
	if req != nil {
		requested = req.LanguageCode
	}
	out.Suggestion = p.suggest(resp.DetectedLanguage, requested)
	return out
}

// Confidence converts a probability to a 0-100 integer: 0.87 -> 87.
func Confidence(probability float64) int {
	if math.IsNaN(probability) {
		return 0
	}
	c := math.Round(probability * 100)
	return int(math.Max(0, math.Min(100, c)))
}

// suggest proposes the detected language when it differs from the request.
// With "auto" any resolvable detection is proposed.
func (p *Projector) suggest(detected, requested string) *Suggestion {
	if detected == "" {
		return nil
	}
	if requested != validation.AutoLanguage && SameLanguage(detected, requested) {
		return nil
	}
	lang, kind, ok := p.table.Resolve(detected)
	if !ok {
		return nil
	}
	return &Suggestion{Detected: detected, Language: lang, Match: kind}
}

// speakersFromSegments lists speaker IDs in order of first appearance.
func speakersFromSegments(segments []transcription.Segment) []string {
	seen := make(map[string]bool)
	speakers := []string{}
	for _, s := range segments {
		if s.Speaker == "" || seen[s.Speaker] {
			continue
		}
		seen[s.Speaker] = true
		speakers = append(speakers, s.Speaker)
	}
	return speakers
}
