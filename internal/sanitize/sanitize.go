// Package sanitize strips markup from user supplied text before it is stored.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// maxPasses bounds the strip/unescape loop for deeply entity-encoded input.
const maxPasses = 8

type Sanitizer interface {
	Sanitize(raw string) string
}

// Strict removes every HTML element and attribute, keeping only text.
type Strict struct {
	policy *bluemonday.Policy
}

func NewStrict() *Strict {
	return &Strict{policy: bluemonday.StrictPolicy()}
}

// Sanitize returns raw without markup. Plain characters such as "&" are kept
// unescaped; markup hidden behind entities is stripped too, because the
// policy runs again on the unescaped text until the result stops changing.
func (s *Strict) Sanitize(raw string) string {
	text := raw
	for i := 0; i < maxPasses; i++ {
		stripped := html.UnescapeString(s.policy.Sanitize(text))
		if stripped == text {
			return strings.TrimSpace(text)
		}
		text = stripped
	}
	// Still changing: fall back to the escaped policy output.
	return strings.TrimSpace(s.policy.Sanitize(text))
}
