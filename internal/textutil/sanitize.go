package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxSegmentBytes caps a single path segment.
const MaxSegmentBytes = 200

const illegalPathChars = `<>:"/\|?*`

// SanitizeFileName removes characters that are illegal in file names on common
// filesystems, collapses whitespace, trims surrounding spaces and dots, and
// caps the result at MaxSegmentBytes without splitting a UTF-8 sequence.
func SanitizeFileName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		case strings.ContainsRune(illegalPathChars, r) || unicode.IsControl(r):
		default:
			b.WriteRune(r)
		}
	}
	cleaned := strings.Join(strings.Fields(b.String()), " ")
	cleaned = strings.Trim(cleaned, " .")
	return truncateBytes(cleaned, MaxSegmentBytes)
}

// TruncateSegment caps value at limit bytes on a rune boundary and trims
// trailing spaces and dots left by the cut.
func TruncateSegment(value string, limit int) string {
	if limit <= 0 {
		return ""
	}
	return truncateBytes(value, limit)
}

func truncateBytes(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return strings.TrimRight(value[:cut], " .")
}
