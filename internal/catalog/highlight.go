/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalog

import "strings"

// HighlightSpan is a half-open [Start, End) byte range in the original
// display name that matched the query.
type HighlightSpan struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// HighlightMatches finds where the normalized query occurs in the normalized
// form of text and maps those offsets back onto the original string.
// Decomposition changes per-character length, so the mapping is built rune
// by rune.
func HighlightMatches(text, query string) []HighlightSpan {
	normQuery := NormalizeSearchText(strings.TrimSpace(query))
	if normQuery == "" {
		return nil
	}

	// Normalize one rune at a time, remembering which original byte offset
	// each normalized byte came from.
	var normalized strings.Builder
	var byteMap []int
	for i, r := range text {
		normRune := NormalizeSearchText(string(r))
		for range normRune {
			byteMap = append(byteMap, i)
		}
		normalized.WriteString(normRune)
	}
	haystack := normalized.String()

	var spans []HighlightSpan
	idx := 0
	for {
		rel := strings.Index(haystack[idx:], normQuery)
		if rel < 0 {
			break
		}
		at := idx + rel
		last := at + len(normQuery) - 1
		start := byteMap[at]
		end := byteMap[last]
		// Extend end to the last byte of the original rune it points into.
		endRuneLen := 1
		for _, r := range text[end:] {
			endRuneLen = len(string(r))
			break
		}
		spans = append(spans, HighlightSpan{Start: start, End: end + endRuneLen})
		idx = at + len(normQuery)
	}
	return spans
}
