package headhunter

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"go.uber.org/zap"
)

var (
	vacancyIDPattern  = regexp.MustCompile(`^\d+$`)
	vacancyURLPattern = regexp.MustCompile(`/vacancy/(\d+)`)
)

type Named struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

type KeySkill struct {
	Name string `json:"name,omitempty"`
}

type Vacancy struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name,omitempty"`
	Area   Named  `json:"area,omitempty"`
	Salary *struct {
		From     int    `json:"from,omitempty"`
		To       int    `json:"to,omitempty"`
		Currency string `json:"currency,omitempty"`
	} `json:"salary,omitempty"`
	Experience   Named      `json:"experience,omitempty"`
	Schedule     Named      `json:"schedule,omitempty"`
	Employer     Named      `json:"employer,omitempty"`
	AlternateURL string     `json:"alternate_url,omitempty"`
	Description  string     `json:"description,omitempty"`
	KeySkills    []KeySkill `json:"key_skills,omitempty"`
	Archived     bool       `json:"archived,omitempty"`
}

// GetVacancy fetches a single vacancy with its full HTML description.
func (c *Client) GetVacancy(ctx context.Context, id string) (*Vacancy, error) {
	id = strings.TrimSpace(id)
	if !vacancyIDPattern.MatchString(id) {
		return nil, fmt.Errorf("invalid vacancy id %q", id)
	}

	var vacancy Vacancy
	if err := c.getJSON(ctx, fmt.Sprintf("%s/vacancies/%s", c.APIURL, id), nil, &vacancy); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("vacancy %s: %w", id, err)
		}
		return nil, fmt.Errorf("get vacancy %s: %w", id, err)
	}

	c.logger.Debug("got vacancy",
		zap.String("vacancy_id", vacancy.ID),
		zap.String("name", vacancy.Name),
		zap.Bool("archived", vacancy.Archived),
	)

	return &vacancy, nil
}

// ParseVacancyID accepts a bare id or an hh.ru vacancy URL.
func ParseVacancyID(input string) (string, error) {
	input = strings.TrimSpace(input)
	if vacancyIDPattern.MatchString(input) {
		return input, nil
	}

	candidate := input
	if !strings.Contains(candidate, "://") {
		candidate = "https://" + candidate
	}
	if u, err := url.Parse(candidate); err == nil {
		if m := vacancyURLPattern.FindStringSubmatch(u.Path); m != nil {
			return m[1], nil
		}
	}

	return "", fmt.Errorf("cannot find a vacancy id in %q", input)
}

// JobDescription renders the vacancy as Markdown suitable for keyword scoring
// and prompting.
func (va *Vacancy) JobDescription() (string, error) {
	var b strings.Builder

	if va.Name != "" {
		fmt.Fprintf(&b, "# %s\n\n", va.Name)
	}

	for _, line := range []struct{ label, value string }{
		{"Company", va.Employer.Name},
		{"Location", va.Area.Name},
		{"Experience", va.Experience.Name},
		{"Schedule", va.Schedule.Name},
	} {
		if line.value != "" {
			fmt.Fprintf(&b, "%s: %s\n", line.label, line.value)
		}
	}

	if strings.TrimSpace(va.Description) != "" {
		md, err := htmltomarkdown.ConvertString(va.Description)
		if err != nil {
			return "", fmt.Errorf("convert description: %w", err)
		}
		fmt.Fprintf(&b, "\n%s\n", strings.TrimSpace(md))
	}

	if len(va.KeySkills) > 0 {
		skills := make([]string, 0, len(va.KeySkills))
		for _, s := range va.KeySkills {
			if name := strings.TrimSpace(s.Name); name != "" {
				skills = append(skills, name)
			}
		}
		if len(skills) > 0 {
			fmt.Fprintf(&b, "\nKey skills: %s\n", strings.Join(skills, ", "))
		}
	}

	return strings.TrimSpace(b.String()), nil
}

// FetchJobDescription resolves ref (an id or URL) and returns the rendered job description.
func (c *Client) FetchJobDescription(ctx context.Context, ref string) (string, error) {
	id, err := ParseVacancyID(ref)
	if err != nil {
		return "", err
	}

	vacancy, err := c.GetVacancy(ctx, id)
	if err != nil {
		return "", err
	}

	return vacancy.JobDescription()
}
