package query

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// SanitizeFTSPattern implements spec §6's FTS search pattern: doubling
// any '"' or '\'' in the caller's pattern, wrapping it in double
// quotes, and suffixing "* " for a prefix match. The pattern is
// NFC-normalized first so composed and decomposed input match the
// NFC text the catalog stores. Patterns shorter than three characters
// (after trimming) return ok=false, signalling the caller to return an
// empty query rather than hit FTS with a degenerate pattern.
func SanitizeFTSPattern(pattern string) (sanitized string, ok bool) {
	trimmed := norm.NFC.String(strings.TrimSpace(pattern))
	if utf8.RuneCountInString(trimmed) < 3 {
		return "", false
	}
	escaped := strings.NewReplacer(`"`, `""`, `'`, `''`).Replace(trimmed)
	return `"` + escaped + `"* `, true
}
