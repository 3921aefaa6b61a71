package resume

import (
	"regexp"
	"strings"
)

const minWordCount = 100

var (
	validEmailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	validPhonePattern = regexp.MustCompile(`^\+?[1-9]\d{0,15}$`)
	phoneSeparators   = regexp.MustCompile(`[\s\-()]`)

	contactKeywords    = []string{"email", "@", "phone", "contact"}
	experienceKeywords = []string{"experience", "work", "employment", "job"}
	skillKeywords      = []string{"skill", "technical", "competenc"}
	educationSections  = []string{"education", "degree", "university", "college"}
)

// Checklist reports which essential sections a résumé appears to contain.
type Checklist struct {
	ContactInfo      bool `json:"has_contact_info"`
	Experience       bool `json:"has_experience"`
	Skills           bool `json:"has_skills"`
	Education        bool `json:"has_education"`
	SufficientLength bool `json:"sufficient_length"`
}

// Check inspects the résumé text for essential sections.
func Check(text string) Checklist {
	lower := strings.ToLower(text)

	return Checklist{
		ContactInfo:      containsAny(lower, contactKeywords),
		Experience:       containsAny(lower, experienceKeywords),
		Skills:           containsAny(lower, skillKeywords),
		Education:        containsAny(lower, educationSections),
		SufficientLength: len(strings.Fields(text)) > minWordCount,
	}
}

// Missing lists the failed checks in a fixed order.
func (c Checklist) Missing() []string {
	missing := make([]string, 0, 5)
	if !c.ContactInfo {
		missing = append(missing, "contact information")
	}
	if !c.Experience {
		missing = append(missing, "work experience")
	}
	if !c.Skills {
		missing = append(missing, "skills")
	}
	if !c.Education {
		missing = append(missing, "education")
	}
	if !c.SufficientLength {
		missing = append(missing, "sufficient length")
	}
	return missing
}

// ValidEmail reports whether email looks like a single address.
func ValidEmail(email string) bool {
	return validEmailPattern.MatchString(email)
}

// ValidPhone accepts at least seven digits with an optional leading plus once
// spaces, dashes and parentheses are removed.
func ValidPhone(phone string) bool {
	cleaned := phoneSeparators.ReplaceAllString(phone, "")
	return len(cleaned) >= 7 && validPhonePattern.MatchString(cleaned)
}

// MissingFields returns the required keys that are absent or blank in data.
func MissingFields(data map[string]string, required ...string) []string {
	missing := make([]string, 0)
	for _, field := range required {
		if strings.TrimSpace(data[field]) == "" {
			missing = append(missing, field)
		}
	}
	return missing
}
