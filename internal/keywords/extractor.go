// Package keywords scores how well a résumé covers the vocabulary of a job
// description. Everything here is a pure function of its input text.
package keywords

import "strings"

// Extract converts a free-text document into a weight map.
//
// Rules run in a fixed order. Abbreviations, compound phrases, acronyms and
// model phrases accumulate weight. Plain word frequencies only fill keys that
// none of those produced, so a weighted term is never diluted by its raw count.
// Role nouns and tool names are added last and always accumulate.
func Extract(text string) *WeightMap {
	weights := newWeightMap()
	if text == "" {
		return weights
	}

	lower := strings.ToLower(text)
	words := significantWords(lower)

	addMatches(weights, abbreviationPatterns, lower, abbreviationWeight, false)
	addMatches(weights, phrasePatterns, lower, phraseWeight, true)

	for _, acronym := range wordRuns(text, acronymPattern) {
		weights.add(strings.ToLower(acronym), acronymWeight)
	}

	addMatches(weights, modelPhrasePatterns, lower, modelPhraseWeight, true)

	for _, wc := range countWords(words) {
		weights.setIfAbsent(wc.word, float64(wc.count))
	}

	for _, role := range rolePattern.findAll(lower) {
		weights.add(role, roleWeight)
	}

	for _, tool := range toolPattern.findAll(lower) {
		weights.add(tool, toolWeight)
	}

	return weights
}

func addMatches(weights *WeightMap, patterns []pattern, text string, weight float64, normalize bool) {
	for _, p := range patterns {
		for _, match := range p.findAll(text) {
			if normalize {
				match = normalizePhrase(match)
			}
			weights.add(match, weight)
		}
	}
}

func significantWords(lower string) []string {
	candidates := wordRuns(lower, wordPattern)
	words := candidates[:0]
	for _, w := range candidates {
		if isStopWord(w) {
			continue
		}
		words = append(words, w)
	}
	return words
}

type wordCount struct {
	word  string
	count int
}

// countWords counts occurrences keeping the order of first appearance.
func countWords(words []string) []wordCount {
	index := make(map[string]int, len(words))
	counts := make([]wordCount, 0, len(words))
	for _, w := range words {
		if idx, ok := index[w]; ok {
			counts[idx].count++
			continue
		}
		index[w] = len(counts)
		counts = append(counts, wordCount{word: w, count: 1})
	}
	return counts
}
