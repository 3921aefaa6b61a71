package keywords

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	abbreviationWeight = 2
	phraseWeight       = 3
	acronymWeight      = 2
	modelPhraseWeight  = 3
	roleWeight         = 1.5
	toolWeight         = 2
)

var stopWords = toSet(
	"the", "and", "or", "but", "in", "on", "at", "to", "for", "of", "with", "by",
	"a", "an", "is", "are", "was", "were", "be", "been", "have", "has", "had",
	"do", "does", "did", "will", "would", "could", "should", "this", "that",
	"these", "those", "i", "you", "he", "she", "it", "we", "they", "who", "what",
	"when", "where", "why", "how", "all", "any", "both", "each", "few", "more",
	"most", "other", "some", "such", "no", "nor", "not", "only", "own", "same",
	"so", "than", "too", "very", "can", "just", "now", "get", "may", "new",
	"work", "also", "well", "way", "even", "back", "good", "make", "first",
	"through", "after", "without", "around", "must", "need", "using", "used",
	"our", "your", "their", "one", "two", "three", "include", "including",
)

var (
	// RE2 only knows ASCII word boundaries. Tokens are taken from whole runs
	// of Unicode word characters instead, so "Zürich" never yields "rich".
	wordRunPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)
	wordPattern    = regexp.MustCompile(`^[a-z]{2,}$`)
	acronymPattern = regexp.MustCompile(`^[A-Z]{2,6}$`)

	// Short technical abbreviations. Matched on lowercased text, so they count
	// even where the word itself is a stop word ("it").
	abbreviationPatterns = compileAll(wordBounded(
		"ml", "ai", "api", "sql", "aws", "gcp",
		"etl", "ci", "cd", "ui", "ux", "id",
		"kpi", "roi", "crm", "erp", "seo", "ppc",
		"hr", "pr", "it", "qa", "ba", "pm",
	)...)

	// Multi-word domain terms. These are intentionally not word bounded.
	phrasePatterns = compileAll(
		`machine\s+learning`, `deep\s+learning`, `data\s+science`, `data\s+analysis`,
		`artificial\s+intelligence`, `computer\s+vision`, `natural\s+language`,
		`project\s+management`, `product\s+management`, `customer\s+service`,
		`business\s+intelligence`, `software\s+development`, `web\s+development`,
		`quality\s+assurance`, `user\s+experience`, `digital\s+marketing`,
		`financial\s+analysis`, `risk\s+management`, `supply\s+chain`,
		`human\s+resources`, `sales\s+management`, `content\s+creation`,
		`large\s+language\s+models?`, `language\s+models?`, `mlops`, `devops`,
		`data\s+engineering`, `software\s+engineering`, `model\s+deployment`,
		`feature\s+engineering`, `cross\s+functional`, `full\s+stack`,
		`front\s+end`, `back\s+end`, `real\s+time`, `big\s+data`,
	)

	modelPhrasePatterns = compileAll(
		`\bllms?\b`, `\bgpt\b`, `\bbert\b`, `\btransformer\b`, `\bneural\s+network`,
		`\bdeep\s+neural`, `\blanguage\s+model`, `\bgenerative\s+ai`,
	)

	rolePattern = newPattern(`\b(?:engineer|developer|analyst|manager|specialist|coordinator|director|lead|senior|junior|scientist|architect|consultant)\b`)

	toolPattern = newPattern(`\b(?:python|java|javascript|react|angular|vue|node|docker|kubernetes|terraform|git|jenkins|jira|slack|excel|powerbi|tableau|salesforce|hubspot)\b`)
)

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func wordBounded(terms ...string) []string {
	patterns := make([]string, 0, len(terms))
	for _, t := range terms {
		patterns = append(patterns, `\b`+regexp.QuoteMeta(t)+`\b`)
	}
	return patterns
}

// pattern is a regexp whose leading and trailing \b are re-checked against
// Unicode letters and digits.
type pattern struct {
	re   *regexp.Regexp
	head bool
	tail bool
}

func newPattern(expr string) pattern {
	return pattern{
		re:   regexp.MustCompile(expr),
		head: strings.HasPrefix(expr, `\b`),
		tail: strings.HasSuffix(expr, `\b`),
	}
}

func compileAll(exprs ...string) []pattern {
	compiled := make([]pattern, 0, len(exprs))
	for _, expr := range exprs {
		compiled = append(compiled, newPattern(expr))
	}
	return compiled
}

// findAll returns the non-overlapping matches of p in text, dropping those
// that sit inside a longer word.
func (p pattern) findAll(text string) []string {
	locs := p.re.FindAllStringIndex(text, -1)
	matches := make([]string, 0, len(locs))
	for _, loc := range locs {
		if p.head {
			if r, _ := utf8.DecodeLastRuneInString(text[:loc[0]]); isWordRune(r) {
				continue
			}
		}
		if p.tail {
			if r, _ := utf8.DecodeRuneInString(text[loc[1]:]); isWordRune(r) {
				continue
			}
		}
		matches = append(matches, text[loc[0]:loc[1]])
	}
	return matches
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

// wordRuns returns the maximal runs of word characters in text that match re
// as a whole.
func wordRuns(text string, re *regexp.Regexp) []string {
	runs := wordRunPattern.FindAllString(text, -1)
	out := runs[:0]
	for _, run := range runs {
		if re.MatchString(run) {
			out = append(out, run)
		}
	}
	return out
}

func isStopWord(word string) bool {
	_, ok := stopWords[word]
	return ok
}

// normalizePhrase collapses internal whitespace runs to a single space.
func normalizePhrase(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
