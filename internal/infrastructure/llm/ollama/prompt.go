package ollama

import (
	"fmt"
	"strings"
)

const maxPassageRunes = 1500

func buildRelevancePrompt(query, text string) string {
	var sb strings.Builder
	sb.WriteString("You grade how relevant a passage is to a question about pharmaceutical quality documents.\n")
	sb.WriteString("Answer with a single number between 0 and 1. No words, no explanation.\n")
	sb.WriteString("0 means unrelated, 1 means the passage directly answers the question.\n\n")
	fmt.Fprintf(&sb, "Question: %s\n\n", query)
	fmt.Fprintf(&sb, "Passage: %s\n\n", truncateRunes(text, maxPassageRunes))
	sb.WriteString("Relevance:")
	return sb.String()
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
