// Package lexical implements the from-scratch lexical index: tokenization,
// inverted-index construction and BM25 scoring. The package has no external
// state; a built index is self-contained and queries are pure functions of
// (tokens, index).
package lexical

import (
	"strings"
	"unicode"
)

// minTokenRunes drops single-character latin/digit noise. Han unigrams are
// kept: one ideograph carries meaning, and bigrams alone would miss
// single-character query terms.
const minTokenRunes = 2

var stopWords = map[string]struct{}{
	// English
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "for": {}, "from": {}, "has": {}, "have": {}, "in": {},
	"is": {}, "it": {}, "its": {}, "of": {}, "on": {}, "or": {}, "that": {},
	"the": {}, "this": {}, "to": {}, "was": {}, "were": {}, "which": {},
	"what": {}, "with": {},
	// Chinese function words
	"的": {}, "了": {}, "和": {}, "与": {}, "及": {}, "在": {}, "是": {},
	"有": {}, "对": {}, "中": {}, "等": {}, "或": {},
}

// Tokenize normalizes and segments text for indexing and querying:
// full-width characters are folded to half-width, everything is lower-cased,
// latin/digit runs become single tokens, and Han runs emit unigrams plus
// bigrams so ideographic terms match without a dictionary segmenter.
// Stop words and sub-minimum latin tokens are dropped.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}

	out := make([]string, 0, 24)
	var latin strings.Builder
	var han []rune

	flushLatin := func() {
		if latin.Len() == 0 {
			return
		}
		token := latin.String()
		latin.Reset()
		if len([]rune(token)) < minTokenRunes {
			return
		}
		if _, stop := stopWords[token]; stop {
			return
		}
		out = append(out, token)
	}
	flushHan := func() {
		for i, r := range han {
			uni := string(r)
			if _, stop := stopWords[uni]; !stop {
				out = append(out, uni)
			}
			if i+1 < len(han) {
				out = append(out, string(han[i:i+2]))
			}
		}
		han = han[:0]
	}

	for _, r := range text {
		r = foldWidth(r)
		r = unicode.ToLower(r)
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			flushHan()
			latin.WriteRune(r)
		case unicode.Is(unicode.Han, r):
			flushLatin()
			han = append(han, r)
		default:
			flushLatin()
			flushHan()
		}
	}
	flushLatin()
	flushHan()

	return out
}

// foldWidth maps full-width ASCII forms (U+FF01..U+FF5E) and the ideographic
// space onto their half-width equivalents.
func foldWidth(r rune) rune {
	switch {
	case r >= 0xFF01 && r <= 0xFF5E:
		return r - 0xFF01 + '!'
	case r == 0x3000:
		return ' '
	default:
		return r
	}
}

// TokenSet returns the distinct tokens of text, used for set-similarity
// computations in fusion and diversity control.
func TokenSet(text string) map[string]struct{} {
	tokens := Tokenize(text)
	out := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		out[t] = struct{}{}
	}
	return out
}

// Jaccard computes token-set Jaccard similarity between two sets.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	common := 0
	for t := range small {
		if _, ok := large[t]; ok {
			common++
		}
	}
	union := len(a) + len(b) - common
	if union == 0 {
		return 0
	}
	return float64(common) / float64(union)
}
