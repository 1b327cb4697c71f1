package nlp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDigits(t *testing.T) {
	assert.Equal(t, "123", NormalizeDigits("١٢٣"))
	assert.Equal(t, "2 latte", NormalizeDigits("٢ latte"))
	assert.Equal(t, "57", NormalizeDigits("۵۷"))
	assert.Equal(t, "abc", NormalizeDigits("abc"))
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
		ok   bool
	}{
		{"bare digit", "3", 3, true},
		{"digit in sentence", "i want 2 please", 2, true},
		{"arabic digit", "٥", 5, true},
		{"english word", "two lattes", 2, true},
		{"arabic word", "خمسة", 5, true},
		{"arabic word variant", "ثلاث قهوة", 3, true},
		{"no number", "latte please", 0, false},
		{"empty", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseNumber(tt.text)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseExactDigit(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
		ok   bool
	}{
		{"single digit", "1", 1, true},
		{"single digit with spaces", "  2  ", 2, true},
		{"arabic single digit", "١", 1, true},
		{"two digits rejected", "12", 0, false},
		{"digit with word rejected", "1 please", 0, false},
		{"letter rejected", "a", 0, false},
		{"empty rejected", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseExactDigit(tt.text)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
