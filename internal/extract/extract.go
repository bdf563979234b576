// Package extract recovers structured payloads from raw model output.
// Model responses are free text that usually, but not always, contains the
// requested structure; both extractors scan for the first candidate region
// and leave anything after it untouched.
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

// ErrNoJSONObject is returned when the text contains no brace-delimited
// span at all.
var ErrNoJSONObject = errors.New("no JSON object found in text")

// Greedy: first opening brace to last closing brace, so prose around the
// object is tolerated but nested objects stay intact.
var jsonSpan = regexp.MustCompile(`(?s)\{.*\}`)

// JSONObject extracts and parses the first brace-delimited span in text.
func JSONObject(text string) (map[string]any, error) {
	span := jsonSpan.FindString(text)
	if span == "" {
		return nil, ErrNoJSONObject
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(span), &payload); err != nil {
		return nil, fmt.Errorf("parse JSON object: %w", err)
	}
	return payload, nil
}

// Tag returns the content between <tag> and </tag>, trimmed. An absent tag
// pair yields "", which callers must treat as "no match", not as an error:
// a model that declines to emit the region is a valid terminal outcome.
func Tag(text, tag string) string {
	pattern := fmt.Sprintf(`(?s)<%s>\s*(.*?)\s*</%s>`, regexp.QuoteMeta(tag), regexp.QuoteMeta(tag))
	match := regexp.MustCompile(pattern).FindStringSubmatch(text)
	if match == nil {
		return ""
	}
	return match[1]
}
