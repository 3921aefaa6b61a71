// Package resume pulls contact and profile details out of plain résumé text.
package resume

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/spigell/cv-tailor/internal/utils"
)

const (
	nameLineLimit  = 5
	nameMaxWords   = 4
	skillLineSpan  = 5
	nameLimit      = 50
	phoneLimit     = 20
	locationLimit  = 100
	skillsLimit    = 200
	educationLimit = 100
)

// Details is the structured profile guessed from a résumé.
type Details struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Location        string `json:"location"`
	Skills          string `json:"skills"`
	ExperienceYears string `json:"experience_years"`
	Education       string `json:"education"`
	WordCount       int    `json:"word_count"`
}

var (
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\+?[\d\s\-()]{10,}`),
		regexp.MustCompile(`\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`),
		regexp.MustCompile(`\b\d{2,4}[-.\s]?\d{3}[-.\s]?\d{3,4}\b`),
	}

	experiencePattern = regexp.MustCompile(`(\d+)\+?\s*years?\s*(?:of\s*)?(?:experience|exp)`)

	nameStopWords      = []string{"cv", "resume", "curriculum", "vitae"}
	locationKeywords   = []string{"istanbul", "ankara", "izmir", "turkey", "turkiye", "usa", "uk", "germany"}
	skillIndicators    = []string{"skill", "technical", "programming", "software", "tools", "technologies"}
	educationKeywords  = []string{"university", "college", "degree", "bachelor", "master", "phd", "education"}
	nameForbiddenChars = "@+."
)

// ParseDetails extracts best-effort profile fields. Missing fields are left empty.
func ParseDetails(text string) Details {
	lines := strings.Split(text, "\n")
	lower := strings.ToLower(text)

	return Details{
		Name:            utils.Clip(parseName(text), nameLimit),
		Email:           emailPattern.FindString(text),
		Phone:           utils.Clip(parsePhone(text), phoneLimit),
		Location:        utils.Clip(parseLocation(lines, lower), locationLimit),
		Skills:          utils.Clip(parseSkills(lines), skillsLimit),
		ExperienceYears: parseExperience(lower),
		Education:       utils.Clip(firstLineWith(lines, educationKeywords), educationLimit),
		WordCount:       len(strings.Fields(text)),
	}
}

func parseName(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) > nameLineLimit {
		lines = lines[:nameLineLimit]
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || len(strings.Fields(line)) > nameMaxWords {
			continue
		}
		if strings.ContainsAny(line, nameForbiddenChars) {
			continue
		}
		if containsAny(strings.ToLower(line), nameStopWords) {
			continue
		}
		return line
	}

	return ""
}

// parsePhone returns the first candidate that actually contains a digit; the
// loosest pattern also matches runs of whitespace.
func parsePhone(text string) string {
	for _, pattern := range phonePatterns {
		for _, candidate := range pattern.FindAllString(text, -1) {
			candidate = strings.TrimSpace(candidate)
			if strings.IndexFunc(candidate, unicode.IsDigit) >= 0 {
				return candidate
			}
		}
	}
	return ""
}

func parseLocation(lines []string, lower string) string {
	for _, keyword := range locationKeywords {
		if !strings.Contains(lower, keyword) {
			continue
		}
		for _, line := range lines {
			if strings.Contains(strings.ToLower(line), keyword) {
				return strings.TrimSpace(line)
			}
		}
		return ""
	}
	return ""
}

func parseSkills(lines []string) string {
	for i, line := range lines {
		if !containsAny(strings.ToLower(line), skillIndicators) {
			continue
		}

		end := min(i+skillLineSpan, len(lines))
		block := make([]string, 0, skillLineSpan)
		for _, next := range lines[i:end] {
			if next = strings.TrimSpace(next); next != "" {
				block = append(block, next)
			}
		}
		return strings.Join(block, " | ")
	}
	return ""
}

func parseExperience(lower string) string {
	match := experiencePattern.FindStringSubmatch(lower)
	if match == nil {
		return ""
	}
	return match[1] + " years"
}

func firstLineWith(lines []string, keywords []string) string {
	for _, line := range lines {
		if containsAny(strings.ToLower(line), keywords) {
			return strings.TrimSpace(line)
		}
	}
	return ""
}

func containsAny(s string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}
