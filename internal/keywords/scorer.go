package keywords

import (
	"sort"
	"strconv"
)

const (
	// DisplayLimit caps the matching and missing keyword lists.
	DisplayLimit = 15
	// HighPriorityLimit caps the high priority missing list.
	HighPriorityLimit = 5
	// DefaultBreakdownLimit is the number of job keywords shown in a breakdown.
	DefaultBreakdownLimit = 20
)

// Rating is a coarse verdict on the match percentage.
type Rating string

const (
	RatingExcellent        Rating = "excellent"
	RatingGood             Rating = "good"
	RatingNeedsImprovement Rating = "needs_improvement"
)

// Report is the result of comparing a résumé against a job description.
type Report struct {
	MatchPercentage     float64  `json:"match_percentage"`
	MatchingKeywords    []string `json:"matching_keywords"`
	MissingKeywords     []string `json:"missing_keywords"`
	HighPriorityMissing []string `json:"high_priority_missing"`
	ResumeKeywordCount  int      `json:"resume_keyword_count"`
	JobKeywordCount     int      `json:"job_keyword_count"`

	ResumeKeywords *WeightMap `json:"resume_keywords_detail,omitempty"`
	JobKeywords    *WeightMap `json:"job_keywords_detail,omitempty"`
}

// KeywordMatch is one row of the detailed job keyword breakdown.
type KeywordMatch struct {
	Keyword
	Matched bool `json:"matched"`
}

// Analyze extracts keywords from both texts and compares them.
func Analyze(resumeText, jobText string) *Report {
	return Compare(Extract(resumeText), Extract(jobText))
}

// Compare builds a report from two weight maps. Either map may be empty or nil.
func Compare(resume, job *WeightMap) *Report {
	matching, missing := partition(resume, job)

	var percentage float64
	if total := job.Total(); job.Len() > 0 && total > 0 {
		var matched float64
		for _, kw := range matching {
			matched += kw.Weight
		}
		percentage = matched / total * 100
	}

	sortByWeight(matching)
	sortByWeight(missing)

	missingTerms := terms(missing, DisplayLimit)

	return &Report{
		MatchPercentage:     roundPercentage(percentage),
		MatchingKeywords:    terms(matching, DisplayLimit),
		MissingKeywords:     missingTerms,
		HighPriorityMissing: head(missingTerms, HighPriorityLimit),
		ResumeKeywordCount:  resume.Len(),
		JobKeywordCount:     job.Len(),
		ResumeKeywords:      resume,
		JobKeywords:         job,
	}
}

// partition splits the job keywords into those present in the résumé and the
// rest. Both slices carry job weights and keep job first-seen order.
func partition(resume, job *WeightMap) (matching, missing []Keyword) {
	matching = make([]Keyword, 0)
	missing = make([]Keyword, 0)
	for _, kw := range job.Keywords() {
		if resume.Has(kw.Term) {
			matching = append(matching, kw)
			continue
		}
		missing = append(missing, kw)
	}
	return matching, missing
}

func sortByWeight(kws []Keyword) {
	sort.SliceStable(kws, func(i, j int) bool {
		return kws[i].Weight > kws[j].Weight
	})
}

func terms(kws []Keyword, limit int) []string {
	if len(kws) > limit {
		kws = kws[:limit]
	}
	out := make([]string, 0, len(kws))
	for _, kw := range kws {
		out = append(out, kw.Term)
	}
	return out
}

func head(s []string, n int) []string {
	if len(s) > n {
		s = s[:n]
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// roundPercentage rounds to two decimals, half to even, on the exact binary
// value of p. 2.675 becomes 2.67 because its binary value is below the tie.
func roundPercentage(p float64) float64 {
	rounded, err := strconv.ParseFloat(strconv.FormatFloat(p, 'f', 2, 64), 64)
	if err != nil {
		return p
	}
	return rounded
}

// Rating classifies the match percentage.
func (r *Report) Rating() Rating {
	switch {
	case r.MatchPercentage >= 70:
		return RatingExcellent
	case r.MatchPercentage >= 50:
		return RatingGood
	default:
		return RatingNeedsImprovement
	}
}

// Advice returns a short hint for very low or very high matches.
func (r *Report) Advice() string {
	switch {
	case r.MatchPercentage < 60:
		return "keyword match is low; consider adding relevant terms from the missing keywords list"
	case r.MatchPercentage >= 80:
		return "excellent keyword match; the resume is well optimized for this job"
	default:
		return ""
	}
}

// OtherMissing returns the missing keywords that follow the high priority ones,
// at most five of them.
func (r *Report) OtherMissing() []string {
	if len(r.MissingKeywords) <= HighPriorityLimit {
		return []string{}
	}
	return head(r.MissingKeywords[HighPriorityLimit:], 5)
}

// Breakdown lists the job keywords by importance with their match status.
// A non-positive limit selects DefaultBreakdownLimit.
func (r *Report) Breakdown(limit int) []KeywordMatch {
	if limit <= 0 {
		limit = DefaultBreakdownLimit
	}

	kws := r.JobKeywords.Keywords()
	sortByWeight(kws)
	if len(kws) > limit {
		kws = kws[:limit]
	}

	rows := make([]KeywordMatch, 0, len(kws))
	for _, kw := range kws {
		rows = append(rows, KeywordMatch{Keyword: kw, Matched: r.ResumeKeywords.Has(kw.Term)})
	}
	return rows
}
