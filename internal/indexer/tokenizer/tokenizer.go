// Package tokenizer turns raw text into normalized word forms. Text is
// decomposed (NFD), stripped of everything that is not a letter or
// whitespace, lower-cased, split on whitespace and stemmed with the Snowball
// English stemmer.
package tokenizer

import (
	"slices"
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"
	"golang.org/x/text/unicode/norm"
)

// Clean lower-cases text and removes every rune that is neither a letter nor
// whitespace. Accented letters lose their diacritics.
func Clean(text string) string {
	decomposed := norm.NFD.String(text)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		switch {
		case unicode.IsLetter(r):
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return b.String()
}

// Split cleans text and splits it into words without stemming.
func Split(text string) []string {
	return strings.Fields(Clean(text))
}

// Stem returns the Snowball English stem of a cleaned word.
func Stem(word string) string {
	return english.Stem(word, true)
}

// Normalize returns the stemmed words of text in order of appearance.
// Duplicates are kept; each element is one token position.
func Normalize(text string) []string {
	words := Split(text)
	stems := make([]string, 0, len(words))
	for _, w := range words {
		if s := Stem(w); s != "" {
			stems = append(stems, s)
		}
	}
	return stems
}

// UniqueStems returns the distinct stems of text in ascending order.
func UniqueStems(text string) []string {
	stems := Normalize(text)
	slices.Sort(stems)
	return slices.Compact(stems)
}
