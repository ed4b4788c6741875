// Package claimtext renders claims into their canonical text form and back.
//
// The text form is the persisted output contract:
//
//	|{|K1, V1|,|K2, V2|}, METRIC, OUTCOME|        flat and hierarchical tables
//	|{|ENTITY_DIM, ENTITY|, |SPEC, VALUE|}, METRIC, OUTCOME|   keyed tables
//
// The form carries no escaping. Parse recovers the original claim only when
// no key and no outcome contains ", "; otherwise the split lands on a
// different boundary. Render(Parse(text)) == text holds either way.
package claimtext

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/tabclaim/internal/model"
)

// ErrMalformed is returned when text is not in the canonical claim form
var ErrMalformed = errors.New("malformed claim text")

const (
	fieldSep = ", "
	kvSep    = ", "
)

// pairSeparator returns the text between two rendered pairs
func pairSeparator(layout model.LayoutType) string {
	if layout == model.LayoutKeyed {
		return ", "
	}
	return ","
}

// Render returns the canonical text of a claim
func Render(c model.Claim) string {
	var b strings.Builder
	b.WriteString("|{")
	sep := pairSeparator(c.Layout())
	for i, p := range c.Specification().Pairs() {
		if i > 0 {
			b.WriteString(sep)
		}
		b.WriteString("|")
		b.WriteString(p.Key)
		b.WriteString(kvSep)
		b.WriteString(p.Value)
		b.WriteString("|")
	}
	b.WriteString("}")
	b.WriteString(fieldSep)
	b.WriteString(c.Metric())
	b.WriteString(fieldSep)
	b.WriteString(c.Outcome())
	b.WriteString("|")
	return b.String()
}

// Parse reads canonical text rendered for layout back into a claim.
//
// The form has no escaping, so parsing assumes keys and the outcome contain
// no ", " and no text contains "|}, " or the pair separator.
func Parse(text string, layout model.LayoutType) (model.Claim, error) {
	if len(text) < len("|{}, , |") || !strings.HasPrefix(text, "|{") || !strings.HasSuffix(text, "|") {
		return model.Claim{}, fmt.Errorf("%w: missing delimiters", ErrMalformed)
	}
	body := text[1 : len(text)-1]

	var specText, rest string
	if strings.HasPrefix(body, "{}") {
		rest = body[2:]
	} else {
		end := strings.Index(body, "|}"+fieldSep)
		if end < 0 {
			return model.Claim{}, fmt.Errorf("%w: unterminated specification", ErrMalformed)
		}
		specText = body[1 : end+1]
		rest = body[end+2:]
	}

	if !strings.HasPrefix(rest, fieldSep) {
		return model.Claim{}, fmt.Errorf("%w: missing metric", ErrMalformed)
	}
	rest = rest[len(fieldSep):]

	cut := strings.LastIndex(rest, fieldSep)
	if cut < 0 {
		return model.Claim{}, fmt.Errorf("%w: missing outcome", ErrMalformed)
	}
	metric, outcome := rest[:cut], rest[cut+len(fieldSep):]

	pairs, err := parsePairs(specText, layout)
	if err != nil {
		return model.Claim{}, err
	}

	claim, err := model.NewClaim(layout, metric, outcome, pairs...)
	if err != nil {
		return model.Claim{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return claim, nil
}

func parsePairs(specText string, layout model.LayoutType) ([]model.Pair, error) {
	if specText == "" {
		return nil, nil
	}
	if !strings.HasPrefix(specText, "|") || !strings.HasSuffix(specText, "|") || len(specText) < 2 {
		return nil, fmt.Errorf("%w: bad specification %q", ErrMalformed, specText)
	}

	inner := specText[1 : len(specText)-1]
	parts := strings.Split(inner, "|"+pairSeparator(layout)+"|")

	pairs := make([]model.Pair, 0, len(parts))
	for _, part := range parts {
		key, value, ok := strings.Cut(part, kvSep)
		if !ok {
			return nil, fmt.Errorf("%w: bad pair %q", ErrMalformed, part)
		}
		pairs = append(pairs, model.Pair{Key: key, Value: value})
	}
	return pairs, nil
}
