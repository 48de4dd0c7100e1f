package projection

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed languages.yaml
var languagesYAML []byte

// Language is an entry of the language selector.
type Language struct {
	Code string `yaml:"code" json:"code"`
	Name string `yaml:"name" json:"name"`
}

// MatchKind says how a detected code was resolved.
type MatchKind string

const (
	MatchExact  MatchKind = "exact"
	MatchBase   MatchKind = "base"
	MatchPrefix MatchKind = "prefix"
)

// Table is an ordered language list.
type Table struct {
	langs []Language
}

// ParseTable decodes a YAML document with a top-level "languages" list.
func ParseTable(data []byte) (*Table, error) {
	var doc struct {
		Languages []Language `yaml:"languages"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse language table: %w", err)
	}
	for i, l := range doc.Languages {
		if l.Code == "" {
			return nil, fmt.Errorf("parse language table: entry %d has no code", i)
		}
	}
	return &Table{langs: doc.Languages}, nil
}

var (
	defaultTable     *Table
	defaultTableOnce sync.Once
)

// DefaultTable returns the embedded language table.
func DefaultTable() *Table {
	defaultTableOnce.Do(func() {
		t, err := ParseTable(languagesYAML)
		if err != nil {
			panic(err)
		}
		defaultTable = t
	})
	return defaultTable
}

// Languages returns a copy of the table entries.
func (t *Table) Languages() []Language {
	return append([]Language(nil), t.langs...)
}

// Resolve finds the entry for a detected code. An exact code match wins,
// then the first entry with the same base language, then the first entry
// whose code extends the detected one (or vice versa).
func (t *Table) Resolve(detected string) (Language, MatchKind, bool) {
	code := normalizeCode(detected)
	if code == "" {
		return Language{}, "", false
	}

	for _, l := range t.langs {
		if strings.EqualFold(l.Code, code) {
			return l, MatchExact, true
		}
	}

	if base, ok := baseOf(code); ok {
		for _, l := range t.langs {
			if lb, ok := baseOf(l.Code); ok && lb == base {
				return l, MatchBase, true
			}
		}
	}

	lower := strings.ToLower(code)
	for _, l := range t.langs {
		lc := strings.ToLower(l.Code)
		if strings.HasPrefix(lc, lower) || strings.HasPrefix(lower, lc+"-") {
			return l, MatchPrefix, true
		}
	}
	return Language{}, "", false
}

// SameLanguage reports whether two codes share a base language.
func SameLanguage(a, b string) bool {
	ab, aok := baseOf(normalizeCode(a))
	bb, bok := baseOf(normalizeCode(b))
	if aok && bok {
		return ab == bb
	}
	return strings.EqualFold(normalizeCode(a), normalizeCode(b))
}

func normalizeCode(code string) string {
	return strings.ReplaceAll(strings.TrimSpace(code), "_", "-")
}

// baseOf returns the base language of a BCP 47 tag, rejecting low-confidence
// guesses so unknown strings fall through to prefix matching.
func baseOf(code string) (language.Base, bool) {
	tag, err := language.Parse(code)
	if err != nil {
		return language.Base{}, false
	}
	base, conf := tag.Base()
	if conf == language.No {
		return language.Base{}, false
	}
	return base, true
}
