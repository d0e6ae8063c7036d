/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package logbuffer

import (
	"sort"
	"testing"
	"time"
)

func entry(level, component, message string) LogEntry {
	return LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Component: component,
		Message:   message,
	}
}

func TestRingEvictsOldestEntries(t *testing.T) {
	t.Parallel()
	buf := New(3)
	for _, msg := range []string{"one", "two", "three", "four"} {
		buf.Add(entry("info", "player", msg))
	}

	got := buf.Query(QueryParams{})
	if len(got) != 3 {
		t.Fatalf("entries = %d, want capacity 3", len(got))
	}
	// Newest first, oldest entry evicted.
	if got[0].Message != "four" || got[2].Message != "two" {
		t.Fatalf("order = [%s %s %s], want [four three two]", got[0].Message, got[1].Message, got[2].Message)
	}
}

func TestQueryFilters(t *testing.T) {
	t.Parallel()
	buf := New(10)
	buf.Add(entry("info", "importer", "import finished"))
	buf.Add(entry("warn", "player", "engine control call failed"))
	buf.Add(entry("info", "player", "playback session started"))

	byLevel := buf.Query(QueryParams{Level: "warn"})
	if len(byLevel) != 1 || byLevel[0].Component != "player" {
		t.Fatalf("level filter = %+v", byLevel)
	}

	byComponent := buf.Query(QueryParams{Component: "player"})
	if len(byComponent) != 2 {
		t.Fatalf("component filter = %d entries, want 2", len(byComponent))
	}

	bySearch := buf.Query(QueryParams{Search: "SESSION"})
	if len(bySearch) != 1 || bySearch[0].Message != "playback session started" {
		t.Fatalf("search filter = %+v", bySearch)
	}

	limited := buf.Query(QueryParams{Limit: 2})
	if len(limited) != 2 || limited[0].Message != "playback session started" {
		t.Fatalf("limit = %+v, want two newest entries", limited)
	}
}

func TestComponentsAndClear(t *testing.T) {
	t.Parallel()
	buf := New(10)
	buf.Add(entry("info", "importer", "a"))
	buf.Add(entry("info", "player", "b"))
	buf.Add(entry("info", "player", "c"))
	buf.Add(entry("info", "", "no component"))

	components := buf.Components()
	sort.Strings(components)
	if len(components) != 2 || components[0] != "importer" || components[1] != "player" {
		t.Fatalf("components = %v", components)
	}

	buf.Clear()
	if got := buf.Query(QueryParams{}); len(got) != 0 {
		t.Fatalf("entries after clear = %d", len(got))
	}
}

func TestWriterParsesZerologLines(t *testing.T) {
	t.Parallel()
	buf := New(10)
	w := NewWriter(buf)

	line := []byte(`{"level":"info","component":"player","media":"m1","time":"2026-01-02T03:04:05Z","message":"now playing"}`)
	n, err := w.Write(line)
	if err != nil || n != len(line) {
		t.Fatalf("write = (%d, %v)", n, err)
	}

	got := buf.Query(QueryParams{})
	if len(got) != 1 {
		t.Fatalf("entries = %d, want 1", len(got))
	}
	e := got[0]
	if e.Level != "info" || e.Component != "player" || e.Message != "now playing" {
		t.Fatalf("entry = %+v", e)
	}
	if e.Fields["media"] != "m1" {
		t.Fatalf("fields = %v, want media preserved", e.Fields)
	}
	if _, kept := e.Fields["time"]; kept {
		t.Fatal("time field should be dropped")
	}

	// Non-JSON input is swallowed without error.
	if _, err := w.Write([]byte("plain console line\n")); err != nil {
		t.Fatalf("non-json write: %v", err)
	}
	if got := buf.Query(QueryParams{}); len(got) != 1 {
		t.Fatalf("entries = %d, unparseable input must be dropped", len(got))
	}
}
