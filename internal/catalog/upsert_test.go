/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalog

import "testing"

func TestUpsertNewValueByDialect(t *testing.T) {
	t.Parallel()
	cases := []struct {
		dialect string
		want    string
	}{
		{"sqlite", "excluded.display_name"},
		{"postgres", "excluded.display_name"},
		{"mysql", "VALUES(display_name)"},
	}
	for _, tc := range cases {
		if got := upsertNewValue(tc.dialect, "display_name").SQL; got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.dialect, got, tc.want)
		}
	}
}

func TestUpsertCoalesceByDialect(t *testing.T) {
	t.Parallel()
	cases := []struct {
		dialect string
		want    string
	}{
		{"sqlite", "COALESCE(excluded.duration_ms, media_items.duration_ms)"},
		{"postgres", "COALESCE(excluded.duration_ms, media_items.duration_ms)"},
		{"mysql", "COALESCE(VALUES(duration_ms), media_items.duration_ms)"},
	}
	for _, tc := range cases {
		if got := upsertCoalesce(tc.dialect, "media_items", "duration_ms").SQL; got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.dialect, got, tc.want)
		}
	}
}
