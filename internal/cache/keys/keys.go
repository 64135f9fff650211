package keys

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

const axisPrefix = "edr:axes"

// Fingerprint identifies one version of a dataset file. Rewriting the file
// changes its size or modification time and therefore its fingerprint.
func Fingerprint(path string, size int64, modTime time.Time) string {
	var b strings.Builder
	b.Grow(len(path) + 40)
	b.WriteString(path)
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(size, 10))
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(modTime.UnixNano(), 10))
	return fmt.Sprintf("%016x", xxhash.Sum64String(b.String()))
}

// Stat fingerprints the file currently at path.
func Stat(path string) (string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	return Fingerprint(path, fi.Size(), fi.ModTime()), nil
}

// AxisKey is the shared-cache key of the axis properties of one dataset
// version of a collection.
func AxisKey(collection, fingerprint string) string {
	return axisPrefix + ":" + sanitizeCollection(strings.TrimSpace(collection)) + ":" + fingerprint
}

// AxisPattern matches every AxisKey of collection.
func AxisPattern(collection string) string {
	return axisPrefix + ":" + sanitizeCollection(strings.TrimSpace(collection)) + ":*"
}

// sanitizeCollection keeps ids usable as key segments and as SCAN patterns:
// whitespace runs become '_', anything else outside [A-Za-z0-9_-] becomes '-'.
func sanitizeCollection(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f':
			out = '_'
		case isAlphaNum(r) || r == '_' || r == '-':
			out = r
		default:
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r < unicode.MaxASCII && unicode.IsDigit(r))
}
