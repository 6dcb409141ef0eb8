// Package span locates answer substrings inside contexts, resolves which
// occurrences are the intended answers, and fans multi-answer rows out into
// single-answer rows.
package span

import (
	"strings"
	"unicode/utf8"
)

// Locate returns the code-point offset of every occurrence of needle in
// haystack, left to right. Overlapping occurrences are included and the
// needle is matched literally and case-sensitively. An empty needle has no
// occurrences.
func Locate(needle, haystack string) []int {
	if needle == "" {
		return nil
	}

	var (
		offsets []int
		runeAt  int // code-point offset of byteAt
		byteAt  int
		from    int
	)
	for from+len(needle) <= len(haystack) {
		i := strings.Index(haystack[from:], needle)
		if i < 0 {
			break
		}
		match := from + i
		runeAt += utf8.RuneCountInString(haystack[byteAt:match])
		byteAt = match
		offsets = append(offsets, runeAt)

		// Shift by one code point so overlapping matches are tested too.
		_, size := utf8.DecodeRuneInString(haystack[match:])
		from = match + size
	}
	return offsets
}
