// Package narrative builds the incident statement from typed text and spoken segments.
package narrative

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinGenerateLength is the exclusive lower bound on normalized narrative
// length for a generation request.
const MinGenerateLength = 30

// Normalize trims text and collapses every whitespace run to one space.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Length is the rune count of the normalized narrative.
func Length(text string) int {
	return utf8.RuneCountInString(Normalize(text))
}

// LongEnough reports whether text may be submitted for generation.
func LongEnough(text string) bool {
	return Length(text) > MinGenerateLength
}

// AppendSegment adds one committed spoken segment to the narrative, separated
// by a single space. Blank segments leave the narrative unchanged.
func AppendSegment(current, segment string) string {
	segment = FormatSegment(segment)
	if segment == "" {
		return current
	}
	if current == "" {
		return segment
	}
	return current + " " + segment
}

// FormatSegment normalizes whitespace and applies sentence casing.
func FormatSegment(segment string) string {
	return SentenceCase(Normalize(segment))
}

var pronounI = regexp.MustCompile(`\bi\b`)

// SentenceCase upper-cases the first letter of each sentence and the
// standalone pronoun "i". A sentence starts after . ! or ? followed by whitespace.
func SentenceCase(text string) string {
	var out strings.Builder
	out.Grow(len(text))

	capitalize, boundary := true, false
	for _, r := range text {
		switch {
		case capitalize && unicode.IsLetter(r):
			r = unicode.ToUpper(r)
			capitalize = false
		case capitalize && unicode.IsDigit(r):
			capitalize = false
		case boundary && unicode.IsSpace(r):
			capitalize = true
		}
		boundary = r == '.' || r == '!' || r == '?'
		out.WriteRune(r)
	}

	return pronounI.ReplaceAllLiteralString(out.String(), "I")
}
