package engine

import (
	"strconv"
	"strings"

	"github.com/SafePath-UK/SafePath/internal/models"
)

// maxInferredOption bounds numeric replies when no option list is known.
const maxInferredOption = 12

// Interpret resolves one raw user message against a gate's option list
// without any model calls, so the same input always yields the same
// selection. Resolution order:
//
//  1. a bare number within range selects that option directly
//  2. an input equal to a label (case-insensitive) matches it
//  3. exactly one label containing the whole input matches it
//  4. an input that contains the first word of exactly one label
//     matches that label
//
// Anything else is unclear, including substring hits on more than one
// label ("male" is a substring of both "Male" and "Female"; only the
// exact-equality rule may decide between them). A nil option list
// accepts numbers 1 through maxInferredOption and nothing textual.
func Interpret(raw string, options []string) models.Selection {
	text := strings.ToLower(strings.TrimSpace(raw))
	text = strings.TrimRight(text, ".!?")
	if text == "" {
		return models.SelectionUnclear
	}

	if n, err := strconv.Atoi(text); err == nil {
		limit := len(options)
		if options == nil {
			limit = maxInferredOption
		}
		if n >= 1 && n <= limit {
			return models.Selection{Index: n}
		}
		return models.SelectionUnclear
	}

	// Single characters match too aggressively as substrings.
	if len(text) < 2 {
		return models.SelectionUnclear
	}

	for i, opt := range options {
		if strings.ToLower(opt) == text {
			return models.Selection{Index: i + 1}
		}
	}

	contains := 0
	for i, opt := range options {
		if strings.Contains(strings.ToLower(opt), text) {
			if contains != 0 {
				return models.SelectionUnclear
			}
			contains = i + 1
		}
	}
	if contains != 0 {
		return models.Selection{Index: contains}
	}

	match := 0
	for i, opt := range options {
		first := firstWord(strings.ToLower(opt))
		if first == "" || !strings.Contains(text, first) {
			continue
		}
		if match != 0 {
			return models.SelectionUnclear
		}
		match = i + 1
	}
	if match != 0 {
		return models.Selection{Index: match}
	}
	return models.SelectionUnclear
}

func firstWord(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, ' '); i > 0 {
		s = s[:i]
	}
	return strings.Trim(s, ",.!?'\"")
}
