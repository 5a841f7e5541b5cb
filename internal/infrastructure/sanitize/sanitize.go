// Package sanitize cleans user-submitted text before it is stored.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer holds two policies: strict for single-line fields, UGC for bodies.
// Both policies are safe for concurrent use once built.
type Sanitizer struct {
	strict *bluemonday.Policy
	ugc    *bluemonday.Policy
}

func New() *Sanitizer {
	return &Sanitizer{
		strict: bluemonday.StrictPolicy(),
		ugc:    bluemonday.UGCPolicy(),
	}
}

// PlainText strips every tag. Entities produced by the policy are decoded so a
// title like "Q&A" is stored as typed.
func (s *Sanitizer) PlainText(in string) string {
	return strings.TrimSpace(html.UnescapeString(s.strict.Sanitize(in)))
}

// RichText keeps the user-generated-content subset of HTML.
func (s *Sanitizer) RichText(in string) string {
	return strings.TrimSpace(s.ugc.Sanitize(in))
}
