package tracking

import (
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/spigell/cv-tailor/internal/resume"
	"github.com/spigell/cv-tailor/internal/utils"
)

const (
	ActionUpload     = "cv_upload"
	ActionGeneration = "generation_complete"

	textLimit        = 5000
	jobKeywordsCount = 10
	minKeywordLength = 4
)

var keywordSkipWords = map[string]struct{}{
	"the": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {},
	"at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
}

// Event is a single usage record handed to the sinks.
type Event struct {
	ID         string      `json:"id"`
	Action     string      `json:"action"`
	SessionID  string      `json:"session_id"`
	Timestamp  time.Time   `json:"timestamp"`
	Upload     *Upload     `json:"upload,omitempty"`
	Generation *Generation `json:"generation,omitempty"`
}

// Upload is recorded when a résumé is uploaded and parsed.
type Upload struct {
	Filename  string         `json:"filename"`
	Details   resume.Details `json:"details"`
	WordCount int            `json:"word_count"`
	Text      string         `json:"text"`
}

// Generation is recorded once documents were generated for a session.
type Generation struct {
	Company           string   `json:"company"`
	JobKeywords       []string `json:"job_keywords"`
	OriginalWordCount int      `json:"original_word_count"`
	GeneratedCV       string   `json:"generated_cv"`
	CoverLetter       string   `json:"cover_letter"`
	MatchBefore       float64  `json:"match_before"`
	MatchAfter        float64  `json:"match_after"`
}

// GenerationInput carries the raw documents of a finished generation.
type GenerationInput struct {
	OriginalCV     string
	JobDescription string
	GeneratedCV    string
	CoverLetter    string
	Company        string
	MatchBefore    float64
	MatchAfter     float64
}

func newEvent(action, sessionID string) Event {
	return Event{
		ID:        uuid.NewString(),
		Action:    action,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
	}
}

// NewUploadEvent parses the résumé text into an upload event.
func NewUploadEvent(sessionID, filename, text string) Event {
	details := resume.ParseDetails(text)

	e := newEvent(ActionUpload, sessionID)
	e.Upload = &Upload{
		Filename:  filename,
		Details:   details,
		WordCount: details.WordCount,
		Text:      utils.Clip(text, textLimit),
	}
	return e
}

// NewGenerationEvent summarizes a finished generation.
func NewGenerationEvent(sessionID string, in GenerationInput) Event {
	e := newEvent(ActionGeneration, sessionID)
	e.Generation = &Generation{
		Company:           in.Company,
		JobKeywords:       TopKeywords(in.JobDescription, jobKeywordsCount),
		OriginalWordCount: len(strings.Fields(in.OriginalCV)),
		GeneratedCV:       utils.Clip(in.GeneratedCV, textLimit),
		CoverLetter:       utils.Clip(in.CoverLetter, textLimit),
		MatchBefore:       in.MatchBefore,
		MatchAfter:        in.MatchAfter,
	}
	return e
}

// TopKeywords returns up to n of the most frequent alphabetic words longer than
// three letters. Ties keep the order of first appearance.
func TopKeywords(text string, n int) []string {
	if n <= 0 {
		return []string{}
	}

	counts := make(map[string]int)
	order := make([]string, 0)

	for _, word := range strings.Fields(strings.ToLower(text)) {
		if utf8.RuneCountInString(word) < minKeywordLength || !isAlpha(word) {
			continue
		}
		if _, skip := keywordSkipWords[word]; skip {
			continue
		}
		if counts[word] == 0 {
			order = append(order, word)
		}
		counts[word]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if len(order) > n {
		order = order[:n]
	}
	return order
}

func isAlpha(word string) bool {
	for _, r := range word {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return word != ""
}
