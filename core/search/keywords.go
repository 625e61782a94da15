package search

import "strings"

// MaxKeywords caps how many query terms are used for document search.
const MaxKeywords = 5

// ExtractKeywords lowercases the query, splits it on whitespace, drops
// terms shorter than three characters and keeps at most MaxKeywords
// terms in query order.
func ExtractKeywords(query string) []string {
	var keywords []string
	for _, term := range strings.Fields(strings.ToLower(query)) {
		if len(term) < 3 {
			continue
		}

		keywords = append(keywords, term)
		if len(keywords) == MaxKeywords {
			break
		}
	}

	return keywords
}

// ScoreByKeywords counts how many of the given keywords appear in the
// content as case-insensitive substrings.
func ScoreByKeywords(content string, keywords []string) int {
	lowered := strings.ToLower(content)

	score := 0
	for _, keyword := range keywords {
		if strings.Contains(lowered, keyword) {
			score++
		}
	}

	return score
}
