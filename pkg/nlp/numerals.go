package nlp

import (
	"strconv"
	"strings"
)

// Eastern Arabic (٠-٩) and extended/Persian (۰-۹) digits mapped to ASCII.
var digitFold = map[rune]rune{
	'٠': '0', '١': '1', '٢': '2', '٣': '3', '٤': '4',
	'٥': '5', '٦': '6', '٧': '7', '٨': '8', '٩': '9',
	'۰': '0', '۱': '1', '۲': '2', '۳': '3', '۴': '4',
	'۵': '5', '۶': '6', '۷': '7', '۸': '8', '۹': '9',
}

func NormalizeDigits(text string) string {
	return strings.Map(func(r rune) rune {
		if d, ok := digitFold[r]; ok {
			return d
		}
		return r
	}, text)
}

var numberWords = map[string]int{
	// English
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "dozen": 12, "fifteen": 15, "twenty": 20,
	// Arabic (with common spelling variants, diacritics already stripped)
	"واحد": 1, "واحده": 1, "واحدة": 1,
	"اثنين": 2, "اثنان": 2, "ثنتين": 2, "تنين": 2,
	"ثلاثة": 3, "ثلاثه": 3, "ثلاث": 3, "تلاتة": 3, "تلاته": 3,
	"اربعة": 4, "اربعه": 4, "اربع": 4,
	"خمسة": 5, "خمسه": 5, "خمس": 5,
	"ستة": 6, "سته": 6, "ست": 6,
	"سبعة": 7, "سبعه": 7, "سبع": 7,
	"ثمانية": 8, "ثمانيه": 8, "ثمان": 8, "تمانية": 8, "تمانيه": 8,
	"تسعة": 9, "تسعه": 9, "تسع": 9,
	"عشرة": 10, "عشره": 10, "عشر": 10,
}

// ParseNumber extracts a single integer from free text: a bare numeral
// (either digit system) or a number word. The first hit wins.
func ParseNumber(text string) (int, bool) {
	for _, token := range strings.Fields(CleanText(text)) {
		if n, err := strconv.Atoi(token); err == nil {
			return n, true
		}
		if n, ok := numberWords[token]; ok {
			return n, true
		}
	}
	return 0, false
}

// ParseExactDigit accepts only an utterance that is, after normalization,
// exactly one single digit token. "12" or "1 please 2" do not match. Used
// for strict small-enum steps like service-type selection.
func ParseExactDigit(text string) (int, bool) {
	cleaned := CleanText(text)
	if len(cleaned) != 1 {
		return 0, false
	}
	if cleaned[0] < '0' || cleaned[0] > '9' {
		return 0, false
	}
	return int(cleaned[0] - '0'), true
}

// wordToNumber resolves one already-cleaned token.
func wordToNumber(token string) (int, bool) {
	if n, err := strconv.Atoi(token); err == nil {
		return n, true
	}
	n, ok := numberWords[token]
	return n, ok
}
