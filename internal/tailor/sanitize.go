package tailor

import (
	"strings"

	"github.com/spigell/cv-tailor/internal/utils"
)

const singleLineLimit = 200

var bracketReplacer = strings.NewReplacer("{", "(", "}", ")", "<", "(", ">", ")")

// SanitizeLine collapses whitespace in a single-line user value and neutralizes
// template-like brackets.
func SanitizeLine(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = bracketReplacer.Replace(s)
	return utils.Clip(s, singleLineLimit)
}

func sanitizeList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value = SanitizeLine(value); value != "" {
			out = append(out, value)
		}
	}
	return out
}
