package source

import (
	"sort"
	"strings"
	"unicode"
)

// chunkTokens is the size of the blocks Excerpt ranks.
const chunkTokens = 300

// EstimateTokens gives a rough token count, about 1.33 tokens per word.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return max(1, tokensFor(len(strings.Fields(text))))
}

func tokensFor(words int) int {
	return int(float64(words) * 1.33)
}

// Excerpt returns the parts of text most relevant to query, in their
// original order, within maxTokens. Text that already fits is returned
// whole; with no usable query the leading chunks are kept.
func Excerpt(text, query string, maxTokens int) string {
	text = strings.TrimSpace(text)
	if text == "" || maxTokens <= 0 {
		return ""
	}
	if EstimateTokens(text) <= maxTokens {
		return text
	}

	chunks := Chunks(text, min(chunkTokens, maxTokens))
	terms := queryTerms(query)

	type ranked struct {
		index, score int
	}
	order := make([]ranked, len(chunks))
	for i, c := range chunks {
		order[i] = ranked{index: i, score: termScore(c, terms)}
	}
	sort.SliceStable(order, func(a, b int) bool { return order[a].score > order[b].score })

	keep := make([]bool, len(chunks))
	words := 0
	for _, r := range order {
		n := len(strings.Fields(chunks[r.index]))
		if words > 0 {
			n++ // separator
		}
		if tokensFor(words+n) > maxTokens {
			break
		}
		keep[r.index] = true
		words += n
	}

	var out []string
	for i, c := range chunks {
		if keep[i] {
			out = append(out, c)
		}
	}
	return strings.Join(out, "\n\n[...]\n\n")
}

// Chunks splits text into blocks of at most targetTokens, on paragraph
// boundaries where possible and on sentence boundaries otherwise. A single
// sentence longer than the target becomes its own block.
func Chunks(text string, targetTokens int) []string {
	var result, current []string
	words := 0
	flush := func() {
		if len(current) > 0 {
			result = append(result, strings.Join(current, "\n\n"))
		}
		current, words = nil, 0
	}

	for _, para := range splitByParagraphs(text) {
		n := len(strings.Fields(para))
		if tokensFor(n) > targetTokens {
			flush()
			result = append(result, splitBySentences(para, targetTokens)...)
			continue
		}
		if words > 0 && tokensFor(words+n) > targetTokens {
			flush()
		}
		current = append(current, para)
		words += n
	}
	flush()
	return result
}

func splitByParagraphs(text string) []string {
	var result []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}

func splitBySentences(text string, targetTokens int) []string {
	var result, current []string
	words := 0
	for _, sent := range splitSentences(text) {
		n := len(strings.Fields(sent))
		if words > 0 && tokensFor(words+n) > targetTokens {
			result = append(result, strings.Join(current, " "))
			current, words = nil, 0
		}
		current = append(current, sent)
		words += n
	}
	if len(current) > 0 {
		result = append(result, strings.Join(current, " "))
	}
	return result
}

func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	for i, r := range text {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(text) && text[i+1] == ' ' {
			sentences = append(sentences, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func queryTerms(query string) []string {
	var terms []string
	seen := map[string]bool{}
	for _, w := range strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len([]rune(w)) < 3 || seen[w] {
			continue
		}
		seen[w] = true
		terms = append(terms, w)
	}
	return terms
}

// termScore counts occurrences of the query terms in chunk.
func termScore(chunk string, terms []string) int {
	if len(terms) == 0 {
		return 0
	}
	lower := strings.ToLower(chunk)
	score := 0
	for _, t := range terms {
		score += strings.Count(lower, t)
	}
	return score
}
