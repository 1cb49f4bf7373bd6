// Package parser turns raw completion-service output into a typed
// result or a handler-specific fallback. It never fails past its own
// boundary: every call yields a value with the same field shape the
// success path would have produced, so callers proceed identically
// regardless of which path ran.
package parser

import (
	"encoding/json"
	"strings"
)

// Source tells which path produced the decoded value.
type Source string

const (
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
)

// Outcome is the result of one decode attempt. Fields holds the full
// decoded object including keys outside the typed schema, so unknown
// extra fields survive the decode; it is nil on the fallback path.
type Outcome[T any] struct {
	Value  T
	Fields map[string]any
	Source Source
}

// Fallback builds a schema-shaped value from raw text that could not
// be decoded. Each handler supplies its own policy.
type Fallback[T any] func(raw string) T

// Decode attempts to read raw as a JSON object of type T. Models often
// wrap JSON in markdown fences or prose, so the outermost object is
// extracted first. On any decode failure the handler's fallback runs
// instead.
func Decode[T any](raw string, fallback Fallback[T]) Outcome[T] {
	candidate := extractObject(raw)
	if candidate != "" {
		var value T
		if err := json.Unmarshal([]byte(candidate), &value); err == nil {
			var fields map[string]any
			// The object decoded as T, so this cannot fail structurally.
			_ = json.Unmarshal([]byte(candidate), &fields)
			return Outcome[T]{Value: value, Fields: fields, Source: SourceModel}
		}
	}
	return Outcome[T]{Value: fallback(raw), Source: SourceFallback}
}

// extractObject returns the outermost {...} span of s, or "" when no
// plausible object is present.
func extractObject(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
