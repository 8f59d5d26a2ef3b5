package services

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Levenshtein returns the rune-level edit distance between a and b
func Levenshtein(a, b string) int {
	return levenshtein.ComputeDistance(a, b)
}

// CalculateSimilarity returns 1 - distance/maxLen over the lower-cased
// inputs. Identical strings score 1 and an empty input scores 0.
func CalculateSimilarity(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}

	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	return 1 - float64(Levenshtein(a, b))/float64(maxLen)
}
