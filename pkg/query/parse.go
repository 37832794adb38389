package query

import (
	"regexp"
	"strings"

	"github.com/trustify/trustify/pkg/apperr"
)

// filterPattern recognizes "field op value..." terms; the longest
// operators are tried first via the alternation order so "!=" doesn't
// get split as "!" + "=".
var filterPattern = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_.]*)(>=|<=|!=|!~|~|>|<|=)(.*)$`)

const (
	escapedPipe = "\x00"
	escapedAmp  = "\x01"
)

// Parse compiles a raw q= parameter into a Query AST. Per spec.md §4.3
// the parser first encodes `\|` and `\&` escapes to sentinel bytes,
// splits on unescaped '&' into constraints, then applies filterPattern
// to each constraint to distinguish a Filter from a FullText term.
func Parse(raw string) (*Query, error) {
	if strings.TrimSpace(raw) == "" {
		return &Query{}, nil
	}

	encoded := strings.NewReplacer(`\|`, escapedPipe, `\&`, escapedAmp).Replace(raw)

	var constraints []Constraint
	for _, term := range strings.Split(encoded, "&") {
		if term == "" {
			continue
		}
		c, err := parseConstraint(term)
		if err != nil {
			return nil, err
		}
		constraints = append(constraints, c)
	}
	return &Query{Constraints: constraints}, nil
}

func parseConstraint(term string) (Constraint, error) {
	if m := filterPattern.FindStringSubmatch(term); m != nil {
		field, op, valueList := m[1], Op(m[2]), m[3]
		if valueList == "" {
			return Constraint{}, apperr.New(apperr.KindSearchSyntax, "filter %q has no value", term)
		}
		return Constraint{
			Field:  field,
			Op:     op,
			Values: splitValues(valueList),
		}, nil
	}
	return Constraint{IsFullText: true, Values: splitValues(term)}, nil
}

func splitValues(s string) []string {
	parts := strings.Split(s, "|")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, unescapeValue(p))
	}
	return out
}

func unescapeValue(s string) string {
	s = strings.ReplaceAll(s, escapedPipe, "|")
	s = strings.ReplaceAll(s, escapedAmp, "&")
	return s
}

// render is the inverse of Parse, used by round-trip tests (spec.md
// §8's "parse∘render round-trip" property).
func (q *Query) render() string {
	terms := make([]string, 0, len(q.Constraints))
	for _, c := range q.Constraints {
		values := make([]string, 0, len(c.Values))
		for _, v := range c.Values {
			v = strings.ReplaceAll(v, "&", `\&`)
			v = strings.ReplaceAll(v, "|", `\|`)
			values = append(values, v)
		}
		valueList := strings.Join(values, "|")
		if c.IsFullText {
			terms = append(terms, valueList)
		} else {
			terms = append(terms, c.Field+string(c.Op)+valueList)
		}
	}
	return strings.Join(terms, "&")
}
