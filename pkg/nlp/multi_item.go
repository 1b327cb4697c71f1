package nlp

import "strings"

// ItemPair is an (item, quantity) pair pulled out of a compound utterance
// like "2 lattes and 1 tea, delivery".
type ItemPair struct {
	ID       string
	Name     string
	Quantity int
}

// Applied to the raw utterance. Punctuation separators must be seen
// before cleaning folds them into spaces.
var segmentSeparators = []string{" and ", " و ", " مع ", ",", "+", "&"}

// ExtractItemPairs splits an utterance into segments and resolves each
// segment to a menu candidate with a quantity. A segment with no number
// defaults to quantity 1. Service keywords are stripped before matching so
// "1 tea, delivery" does not poison the item match.
func ExtractItemPairs(text string, candidates []Candidate) []ItemPair {
	var pairs []ItemPair
	for _, raw := range splitSegments(strings.ToLower(text)) {
		segment := CleanText(raw)
		for _, w := range append(deliveryWords, dineInWords...) {
			segment = strings.ReplaceAll(" "+segment+" ", " "+w+" ", " ")
			segment = strings.TrimSpace(segment)
		}

		quantity := 1
		var nameTokens []string
		for _, token := range strings.Fields(segment) {
			if stopWords[token] {
				continue
			}
			if n, ok := wordToNumber(token); ok && quantity == 1 {
				quantity = n
				continue
			}
			nameTokens = append(nameTokens, token)
		}
		if len(nameTokens) == 0 {
			continue
		}

		name := strings.Join(nameTokens, " ")
		match, _, ok := BestMatch(name, candidates)
		if !ok {
			continue
		}

		pairs = mergePair(pairs, ItemPair{ID: match.ID, Name: match.Name, Quantity: quantity})
	}
	return pairs
}

func splitSegments(text string) []string {
	segments := []string{text}
	for _, sep := range segmentSeparators {
		var next []string
		for _, seg := range segments {
			for _, part := range strings.Split(seg, sep) {
				part = strings.TrimSpace(part)
				if part != "" {
					next = append(next, part)
				}
			}
		}
		segments = next
	}
	return segments
}

// mergePair keeps one pair per item id; a repeat replaces the quantity,
// matching the cart's replace-on-merge contract.
func mergePair(pairs []ItemPair, pair ItemPair) []ItemPair {
	for i := range pairs {
		if pairs[i].ID == pair.ID {
			pairs[i].Quantity = pair.Quantity
			return pairs
		}
	}
	return append(pairs, pair)
}
