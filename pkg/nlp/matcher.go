package nlp

import (
	"math"
	"sort"
	"strings"
)

// Candidate is one menu entry (item, category or subcategory) the fuzzy
// matcher can resolve free text against. Names carries every known spelling
// (English, Arabic, aliases).
type Candidate struct {
	ID    string
	Names []string
}

type Match struct {
	ID    string
	Name  string
	Score float64
}

const matchThreshold = 0.55

// BestMatch resolves text against the candidate set and returns the winner
// plus up to three runner-up suggestions for "did you mean" replies.
func BestMatch(text string, candidates []Candidate) (Match, []Match, bool) {
	matches := rankMatches(text, candidates)
	if len(matches) == 0 || matches[0].Score < matchThreshold {
		limit := len(matches)
		if limit > 3 {
			limit = 3
		}
		return Match{}, matches[:limit], false
	}

	suggestions := matches[1:]
	if len(suggestions) > 3 {
		suggestions = suggestions[:3]
	}
	return matches[0], suggestions, true
}

func rankMatches(text string, candidates []Candidate) []Match {
	cleaned := CleanText(text)
	if cleaned == "" {
		return nil
	}

	var matches []Match
	for _, cand := range candidates {
		best := 0.0
		bestName := ""
		for _, name := range cand.Names {
			score := similarity(cleaned, CleanText(name))
			if score > best {
				best = score
				bestName = name
			}
		}
		if best > 0.2 {
			matches = append(matches, Match{ID: cand.ID, Name: bestName, Score: best})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}

func similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	if strings.Contains(a, b) || strings.Contains(b, a) {
		shorter, longer := a, b
		if len(a) > len(b) {
			shorter, longer = b, a
		}
		return float64(len(shorter)) / float64(len(longer))
	}

	distance := levenshtein(a, b)
	maxLen := math.Max(float64(len(a)), float64(len(b)))
	return math.Max(0, 1.0-float64(distance)/maxLen)
}

func levenshtein(s1, s2 string) int {
	r1 := []rune(s1)
	r2 := []rune(s2)
	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

	matrix := make([][]int, len(r1)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(r2)+1)
		matrix[i][0] = i
	}
	for j := 0; j <= len(r2); j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= len(r1); i++ {
		for j := 1; j <= len(r2); j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			matrix[i][j] = minOf(
				matrix[i-1][j]+1,
				matrix[i][j-1]+1,
				matrix[i-1][j-1]+cost,
			)
		}
	}

	return matrix[len(r1)][len(r2)]
}

func minOf(a, b, c int) int {
	if a < b && a < c {
		return a
	} else if b < c {
		return b
	}
	return c
}
