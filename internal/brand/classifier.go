// Package brand marks keywords that contain a site's own brand terms.
package brand

import (
	"regexp"
	"strings"
)

// Classifier matches keywords against a set of whole-word brand terms.
type Classifier struct {
	terms   []string
	pattern *regexp.Regexp
}

// ParseTerms splits comma-separated input into trimmed, non-blank terms.
func ParseTerms(raw string) []string {
	return CleanTerms(strings.Split(raw, ","))
}

// CleanTerms trims each term and drops blank ones.
func CleanTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// New builds a classifier, or returns nil when no usable term remains after
// trimming. Terms are matched literally, case-insensitively, on word
// boundaries.
func New(terms []string) *Classifier {
	cleaned := CleanTerms(terms)
	if len(cleaned) == 0 {
		return nil
	}
	alts := make([]string, len(cleaned))
	for i, t := range cleaned {
		alts[i] = `\b` + regexp.QuoteMeta(t) + `\b`
	}
	return &Classifier{
		terms:   cleaned,
		pattern: regexp.MustCompile(`(?i)` + strings.Join(alts, "|")),
	}
}

// Terms returns the cleaned terms the classifier matches.
func (c *Classifier) Terms() []string {
	return append([]string(nil), c.terms...)
}

// Branded reports whether keyword contains any term as a whole word.
func (c *Classifier) Branded(keyword string) bool {
	return c.pattern.MatchString(strings.ToLower(keyword))
}
