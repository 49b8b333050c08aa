package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestRepairPartialJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"complete object", `{"title":"Go"}`, `{"title":"Go"}`},
		{"open object", `{"title":"Go"`, `{"title":"Go"}`},
		{"open string", `{"title":"Go Bas`, `{"title":"Go Bas"}`},
		{"dangling colon", `{"title":`, `{"title":null}`},
		{"trailing comma", `{"title":"Go",`, `{"title":"Go"}`},
		{"nested arrays", `{"modules":[{"title":"M1","lessons":[{"title":"L1"`, `{"modules":[{"title":"M1","lessons":[{"title":"L1"}]}]}`},
		{"leading prose", "Here you go: {\"title\":\"Go\"}", `{"title":"Go"}`},
		{"escaped quote in open string", `{"title":"say \"hi`, `{"title":"say \"hi"}`},
		{"fenced", "```json\n{\"title\":\"Go\"\n```", `{"title":"Go"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := repairPartialJSON(tc.in)
			if !ok {
				t.Fatalf("repairPartialJSON(%q) failed", tc.in)
			}
			if got != tc.want {
				t.Errorf("repairPartialJSON(%q) = %q, want %q", tc.in, got, tc.want)
			}
			if !json.Valid([]byte(got)) {
				t.Errorf("repaired output is not valid JSON: %q", got)
			}
		})
	}
}

func TestRepairPartialJSON_Unrepairable(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"no object", "just some text"},
		{"empty", ""},
		{"mismatched close", `{"a":[}`},
		{"stray close", `{"a":1}]`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok := repairPartialJSON(tc.in); ok {
				t.Errorf("Expected repair to fail for %q", tc.in)
			}
		})
	}
}

func TestDecodePartialOutline(t *testing.T) {
	raw := `{"title":"Go Basics","modules":[{"title":"Module 1","lessons":[{"title":"Intro","timestampStart":"0:0`

	partial, ok := decodePartialOutline(raw)
	if !ok {
		t.Fatal("Expected truncated buffer to decode")
	}
	if partial.Title == nil || *partial.Title != "Go Basics" {
		t.Errorf("Expected title Go Basics, got %v", partial.Title)
	}
	if len(partial.Modules) != 1 {
		t.Fatalf("Expected 1 module, got %d", len(partial.Modules))
	}
	if len(partial.Modules[0].Lessons) != 1 {
		t.Fatalf("Expected 1 lesson, got %d", len(partial.Modules[0].Lessons))
	}
}

func TestDecodeFinalOutline(t *testing.T) {
	raw := "```json\n" + `{
		"title": "Go Basics",
		"description": "Learn Go from one lecture",
		"category": "Programming",
		"difficulty": "beginner",
		"modules": [
			{"title": "Module 1", "lessons": [{"title": "Intro", "timestampStart": "0:00"}]}
		]
	}` + "\n```"

	outline, err := decodeFinalOutline(raw)
	if err != nil {
		t.Fatalf("decodeFinalOutline returned error: %v", err)
	}
	if outline.Title != "Go Basics" {
		t.Errorf("Expected title Go Basics, got %q", outline.Title)
	}
	if len(outline.Modules) != 1 {
		t.Errorf("Expected 1 module, got %d", len(outline.Modules))
	}
}

func TestDecodeFinalOutline_Failures(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr error
	}{
		{"array response", `[{"title":"Go"}]`, ErrOutlineInvalid},
		{"no json", "sorry, I cannot do that", ErrOutlineInvalid},
		{"missing fields", `{"title":"Go"}`, ErrOutlineMissingInfo},
		{"no modules", `{"title":"T","description":"D","category":"C","difficulty":"beginner"}`, ErrOutlineNoModules},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := decodeFinalOutline(tc.in); !errors.Is(err, tc.wantErr) {
				t.Errorf("Expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestStripCodeFences(t *testing.T) {
	in := "```json\n{\"a\":1}\n```"
	if got := stripCodeFences(in); got != `{"a":1}` {
		t.Errorf("stripCodeFences = %q", got)
	}
	if got := stripCodeFences(`{"a":1}`); got != `{"a":1}` {
		t.Errorf("Expected unfenced input unchanged, got %q", got)
	}
}

func TestBuildOutlinePrompt_IncludesTimestampedTranscript(t *testing.T) {
	input := GenerationInput{
		VideoTitle:  "Concurrency Patterns",
		ChannelName: "GopherCon",
		Transcript:  "hello world",
		Segments:    testSegments(),
	}

	prompt := buildOutlinePrompt(input)

	if !strings.Contains(prompt, "Concurrency Patterns") {
		t.Error("Expected prompt to contain the video title")
	}
	if !strings.Contains(prompt, "[0:05]") {
		t.Error("Expected prompt to contain timestamped transcript lines")
	}
}

func TestTruncate_KeepsRuneBoundaries(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
	}{
		{"two-byte rune straddles the cut", strings.Repeat("a", 1999) + "é" + strings.Repeat("b", 10), 2000},
		{"three-byte runes", strings.Repeat("日", 700), 2000},
		{"four-byte rune at the cut", strings.Repeat("a", 1997) + "𝕘opher", 2000},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := truncate(tc.in, tc.max)
			if !utf8.ValidString(got) {
				t.Fatalf("truncate produced invalid UTF-8: %q", got[len(got)-8:])
			}
			if len(got) > tc.max+len("...") {
				t.Errorf("Expected at most %d bytes plus ellipsis, got %d", tc.max, len(got))
			}
		})
	}

	if got := truncate("short", 2000); got != "short" {
		t.Errorf("Expected input under the limit unchanged, got %q", got)
	}
}

func TestBuildOutlinePrompt_ValidUTF8WithLongDescription(t *testing.T) {
	input := GenerationInput{
		VideoTitle:       "Go 入門",
		VideoDescription: strings.Repeat("a", 1999) + "é" + strings.Repeat("日本語の説明", 100),
		Transcript:       "hello world",
	}

	if prompt := buildOutlinePrompt(input); !utf8.ValidString(prompt) {
		t.Error("Expected the prompt to be valid UTF-8 after description truncation")
	}
}

func TestMockOutlineGenerator_StreamsPartialsThenFinal(t *testing.T) {
	gen := NewMockOutlineGenerator()
	stream, err := gen.StreamOutline(context.Background(), GenerationInput{
		VideoTitle:  "Intro to Go",
		ChannelName: "GopherCon",
	})
	if err != nil {
		t.Fatalf("StreamOutline returned error: %v", err)
	}

	var partials int
	for range stream.Partials() {
		partials++
	}
	if partials == 0 {
		t.Error("Expected at least one partial frame")
	}

	outline, err := stream.Wait()
	if err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	if err := ValidateOutline(outline); err != nil {
		t.Errorf("Mock outline failed validation: %v", err)
	}
	if !strings.Contains(outline.Title, "Intro to Go") {
		t.Errorf("Expected outline title to reference the video, got %q", outline.Title)
	}
}
