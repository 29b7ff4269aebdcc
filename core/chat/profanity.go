package chat

import (
	"regexp"
	"strings"
)

// Blacklisted words are redacted, never rejected: each match is replaced by
// asterisks of the same length so the message keeps its shape.
var blacklist = []string{
	"faca", "facada", "matar", "morrer", "droga", "cocaina",
	"maconha", "crack", "merda", "porra", "caralho", "puta",
	"viado", "bicha", "otario", "idiota", "burro", "imbecil",
}

var profanityRegex = regexp.MustCompile(`(?i)\b(` + strings.Join(blacklist, "|") + `)\b`)

// Redact masks blacklisted whole words (case-insensitive) with asterisks
// of equal length. Non-blacklisted text is returned unchanged.
func Redact(s string) string {
	return profanityRegex.ReplaceAllStringFunc(s, func(match string) string {
		return strings.Repeat("*", len(match))
	})
}
