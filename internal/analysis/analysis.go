// Package analysis computes completeness and severity signals for FIR drafts.
package analysis

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Severity is the coarse seriousness tier of an incident.
type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
	SeverityLow    Severity = "LOW"
)

// Valid reports whether s is one of the three known tiers.
func (s Severity) Valid() bool {
	switch s {
	case SeverityHigh, SeverityMedium, SeverityLow:
		return true
	default:
		return false
	}
}

// Result is one (score, severity) pair computed from a single draft text.
type Result struct {
	Score    int
	Severity Severity
}

const (
	// MinScoringLength is the draft length below which Score is always zero.
	MinScoringLength = 40
	MaxScore         = 100
	signalWeight     = 20
)

// Signal is one completeness category with its detection pattern.
type Signal struct {
	Name    string
	pattern *regexp.Regexp
}

// Signals lists the five completeness categories in report order.
var Signals = []Signal{
	{Name: "time", pattern: regexp.MustCompile(`\b(time|date|am|pm|\d{1,2}:\d{2}|\d{1,2}\s?(am|pm)|yesterday|today|morning|afternoon|evening|night)\b`)},
	{Name: "location", pattern: regexp.MustCompile(`\b(location|place|at|near|in front of|behind|address|road|street|market)\b`)},
	{Name: "incident", pattern: regexp.MustCompile(`\b(theft|stole|robbery|robbed|assault|attacked|hit|punched|harassment|harassed|threat|threatened|snatched|lost|missing)\b`)},
	{Name: "accused", pattern: regexp.MustCompile(`\b(accused|person|man|woman|boy|girl|they|he|she|unknown person)\b`)},
	{Name: "property", pattern: regexp.MustCompile(`\b(property|item|cash|money|phone|wallet|jewelry|bag|bike|car|loss|harm|injured|hurt|bleeding|pain)\b`)},
}

var (
	highKeywords   = []string{"robbery", "assault", "weapon", "violence", "injured", "attacked", "kidnapped"}
	mediumKeywords = []string{"theft", "threat", "harassment", "stolen", "snatched", "break-in"}
	lowKeywords    = []string{"lost item", "complaint", "missing", "lost my"}
)

// Score returns the 0-100 completeness estimate for draft.
func Score(draft string) int {
	if utf8.RuneCountInString(draft) < MinScoringLength {
		return 0
	}
	score := len(MatchedSignals(draft)) * signalWeight
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// MatchedSignals returns the names of categories present in draft, ignoring the length floor.
func MatchedSignals(draft string) []string {
	lower := strings.ToLower(draft)
	matched := make([]string, 0, len(Signals))
	for _, signal := range Signals {
		if signal.pattern.MatchString(lower) {
			matched = append(matched, signal.Name)
		}
	}
	return matched
}

// MissingSignals returns the names of categories absent from draft.
func MissingSignals(draft string) []string {
	lower := strings.ToLower(draft)
	missing := make([]string, 0, len(Signals))
	for _, signal := range Signals {
		if !signal.pattern.MatchString(lower) {
			missing = append(missing, signal.Name)
		}
	}
	return missing
}

// Classify returns the severity tier of draft. HIGH keywords win over MEDIUM,
// MEDIUM over LOW; a draft with no keyword at all is LOW.
func Classify(draft string) Severity {
	lower := strings.ToLower(draft)
	switch {
	case containsAny(lower, highKeywords):
		return SeverityHigh
	case containsAny(lower, mediumKeywords):
		return SeverityMedium
	case containsAny(lower, lowKeywords):
		return SeverityLow
	default:
		return SeverityLow
	}
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}
