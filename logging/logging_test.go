package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_Formats(t *testing.T) {
	for _, format := range []string{"", FormatText, FormatJSON, FormatPretty} {
		var buf bytes.Buffer
		log, err := New(&buf, format, slog.LevelInfo)
		if err != nil {
			t.Fatalf("format %q: %v", format, err)
		}
		log.Info("move", "turn", 3)
		log.Debug("hidden")
		out := buf.String()
		if !strings.Contains(out, "move") || strings.Contains(out, "hidden") {
			t.Fatalf("format %q wrote %q", format, out)
		}
	}
	if _, err := New(&bytes.Buffer{}, "xml", slog.LevelInfo); err == nil {
		t.Fatalf("unknown format accepted")
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{"": slog.LevelInfo, "debug": slog.LevelDebug, "WARN": slog.LevelWarn, "error": slog.LevelError} {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q)=%v,%v want=%v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("bad level accepted")
	}
}

func TestPrettyJSONHandler_Groups(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyJSONHandler(&buf, nil)).
		With("game", "g1").
		WithGroup("search").
		With("depth", 3)
	log.Info("decided", "nodes", 42)

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not one JSON object: %v\n%s", err, buf.String())
	}
	if got["game"] != "g1" || got["msg"] != "decided" {
		t.Fatalf("top level=%v", got)
	}
	search, ok := got["search"].(map[string]any)
	if !ok {
		t.Fatalf("missing search group: %v", got)
	}
	if search["depth"] != float64(3) || search["nodes"] != float64(42) {
		t.Fatalf("search group=%v want depth=3 nodes=42", search)
	}
}
