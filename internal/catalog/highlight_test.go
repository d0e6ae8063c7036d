/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalog

import "testing"

func TestNormalizeSearchText(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in, want string
	}{
		{"Beyoncé", "beyonce"},
		{"CAFÉ del MAR", "cafe del mar"},
		{"plain", "plain"},
		{"", ""},
		{"Ångström", "angstrom"},
	}
	for _, tc := range cases {
		if got := NormalizeSearchText(tc.in); got != tc.want {
			t.Errorf("NormalizeSearchText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestHighlightMatchesMapsBackToOriginalOffsets(t *testing.T) {
	t.Parallel()

	spans := HighlightMatches("Beyoncé Live", "beyonce")
	if len(spans) != 1 {
		t.Fatalf("expected one span, got %d", len(spans))
	}
	got := "Beyoncé Live"[spans[0].Start:spans[0].End]
	if got != "Beyoncé" {
		t.Fatalf("span covers %q, want %q", got, "Beyoncé")
	}
}

func TestHighlightMatchesMultipleOccurrences(t *testing.T) {
	t.Parallel()

	text := "la la land"
	spans := HighlightMatches(text, "la")
	if len(spans) != 3 {
		t.Fatalf("expected three spans, got %d: %+v", len(spans), spans)
	}
	for _, span := range spans {
		if text[span.Start:span.Start+2] != "la" {
			t.Fatalf("span %+v does not cover a match", span)
		}
	}
}

func TestHighlightMatchesEmptyQuery(t *testing.T) {
	t.Parallel()
	if spans := HighlightMatches("anything", "   "); spans != nil {
		t.Fatalf("blank query should yield no spans, got %+v", spans)
	}
}

func TestHighlightMatchesNoMatch(t *testing.T) {
	t.Parallel()
	if spans := HighlightMatches("Alpha", "zulu"); len(spans) != 0 {
		t.Fatalf("expected no spans, got %+v", spans)
	}
}
