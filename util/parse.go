package util

import (
	"fmt"
	"strconv"
	"strings"
)

// Binary size units.
const (
	KiB int64 = 1 << 10
	MiB int64 = 1 << 20
	GiB int64 = 1 << 30
)

var sizeSuffixes = []struct {
	suffix string
	mult   int64
}{
	{"GIB", GiB}, {"MIB", MiB}, {"KIB", KiB},
	{"GB", GiB}, {"MB", MiB}, {"KB", KiB},
	{"B", 1},
}

// ParseSize parses a human-readable size ("4MB", "512KiB", "100mb", "1024")
// into bytes. Units are binary: 1MB is 1 MiB.
func ParseSize(s string) (int64, error) {
	raw := s
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}

	mult := int64(1)
	for _, u := range sizeSuffixes {
		if strings.HasSuffix(s, u.suffix) {
			mult = u.mult
			s = strings.TrimSpace(strings.TrimSuffix(s, u.suffix))
			break
		}
	}

	val, err := strconv.ParseInt(s, 10, 64)
	if err != nil || val < 0 {
		return 0, fmt.Errorf("invalid size %q", raw)
	}
	return val * mult, nil
}

// ParseSizeOr is ParseSize returning def when s is empty or invalid.
func ParseSizeOr(s string, def int64) int64 {
	n, err := ParseSize(s)
	if err != nil {
		return def
	}
	return n
}

// FormatSize renders bytes with the largest whole binary unit, e.g. "4 MB".
func FormatSize(n int64) string {
	switch {
	case n >= GiB && n%GiB == 0:
		return fmt.Sprintf("%d GB", n/GiB)
	case n >= MiB && n%MiB == 0:
		return fmt.Sprintf("%d MB", n/MiB)
	case n >= MiB:
		return fmt.Sprintf("%.1f MB", float64(n)/float64(MiB))
	case n >= KiB:
		return fmt.Sprintf("%d KB", n/KiB)
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// MaskSecret hides sensitive parts of a string for safe display in logs.
// If the string is shorter than visiblePrefix, it is fully masked.
func MaskSecret(s string, visiblePrefix int) string {
	if len(s) <= visiblePrefix {
		return "***"
	}
	return s[:visiblePrefix] + "***"
}
