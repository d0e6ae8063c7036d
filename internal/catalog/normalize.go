/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var searchNormalizer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))

// NormalizeSearchText decomposes the string, strips combining marks, and
// lower-cases it. It is applied identically to stored display names and
// query text so matching is diacritic-insensitive.
func NormalizeSearchText(value string) string {
	out, _, err := transform.String(searchNormalizer, value)
	if err != nil {
		// Fall back to plain lower-casing on malformed input.
		return strings.ToLower(value)
	}
	return strings.ToLower(out)
}
