package nlp

import (
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CleanText lowercases, strips combining marks (Arabic harakat, Latin
// accents), folds eastern digits to ASCII and collapses everything that is
// not a letter, digit or space.
func CleanText(text string) string {
	text = strings.ToLower(text)
	text = NormalizeDigits(text)

	t := transform.Chain(norm.NFD, transform.RemoveFunc(isMn), norm.NFC)
	result, _, _ := transform.String(t, text)

	result = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, result)

	words := strings.Fields(result)
	return strings.Join(words, " ")
}

func isMn(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}

// Tokens splits cleaned text into word tokens, dropping stop words.
func Tokens(text string) []string {
	var tokens []string
	for _, word := range strings.Fields(CleanText(text)) {
		if stopWords[word] {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

var stopWords = map[string]bool{
	// English
	"the": true, "a": true, "an": true, "to": true, "of": true,
	"i": true, "want": true, "would": true, "like": true, "please": true,
	"me": true, "my": true, "get": true, "have": true, "some": true,
	// Arabic
	"من": true, "في": true, "على": true, "ابغى": true, "ابي": true,
	"اريد": true, "عايز": true, "ممكن": true, "لو": true, "سمحت": true,
	"يا": true,
}
