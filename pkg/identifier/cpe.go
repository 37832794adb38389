package identifier

import (
	"strings"

	"github.com/google/uuid"

	"github.com/trustify/trustify/pkg/apperr"
)

// Cpe is a parsed CPE 2.3 formatted-string identifier
// ("cpe:2.3:part:vendor:product:version:update:edition:language:...").
// Trustify only models the seven components spec.md §3 persists; the
// trailing sw_edition/target_sw/target_hw/other fields are not part of
// the graph schema, are discarded on parse, and render as "*".
type Cpe struct {
	Part     string // "a" (application), "o" (OS), "h" (hardware)
	Vendor   string
	Product  string
	Version  string
	Update   string
	Edition  string
	Language string

	UUID uuid.UUID
}

const cpeAny = "*"
const cpeNA = "-"

// ParseCpe parses a CPE 2.3 formatted string. Wildcards ("*") and the
// "not applicable" marker ("-") are both stored literally per spec.md
// §3 — matching semantics interpret them, not the parser.
func ParseCpe(raw string) (*Cpe, error) {
	parts := strings.Split(raw, ":")
	if len(parts) < 5 || parts[0] != "cpe" || parts[1] != "2.3" {
		return nil, apperr.New(apperr.KindCpe, "not a cpe:2.3 formatted string: %q", raw)
	}
	// parts: cpe : 2.3 : part : vendor : product : version : update : edition : language : ...
	get := func(i int) string {
		if i < len(parts) {
			return unbind(parts[i])
		}
		return cpeAny
	}

	c := &Cpe{
		Part:     get(2),
		Vendor:   get(3),
		Product:  get(4),
		Version:  get(5),
		Update:   get(6),
		Edition:  get(7),
		Language: get(8),
	}
	c.UUID = uuid.NewSHA1(NamespaceTrustify, []byte(c.String()))
	return c, nil
}

// unbind undoes CPE's backslash escaping of special characters within a
// component; WFN binding is not otherwise modeled since Trustify stores
// components as opaque strings.
func unbind(component string) string {
	if component == "" {
		return cpeAny
	}
	return strings.ReplaceAll(component, `\`, "")
}

// String renders the canonical cpe:2.3 formatted string.
func (c *Cpe) String() string {
	fields := []string{"cpe", "2.3", bind(c.Part), bind(c.Vendor), bind(c.Product),
		bind(c.Version), bind(c.Update), bind(c.Edition), bind(c.Language),
		cpeAny, cpeAny, cpeAny, cpeAny}
	return strings.Join(fields, ":")
}

func bind(component string) string {
	if component == "" {
		return cpeAny
	}
	return component
}

// Matches reports whether c (typically a concrete CPE extracted from an
// SBOM) satisfies pattern (typically an advisory's affected-product
// CPE). Per spec.md §4.1, a "*" component on either side matches any
// value on the other side, "-" matches only a literal "-", and any
// other value must match case-insensitively (CPE 2.3's restricted glob
// also applies when a component embeds "*"/"?").
func (c *Cpe) Matches(pattern *Cpe) bool {
	return matchComponent(c.Part, pattern.Part) &&
		matchComponent(c.Vendor, pattern.Vendor) &&
		matchComponent(c.Product, pattern.Product) &&
		matchComponent(c.Version, pattern.Version) &&
		matchComponent(c.Update, pattern.Update) &&
		matchComponent(c.Edition, pattern.Edition) &&
		matchComponent(c.Language, pattern.Language)
}

func matchComponent(value, pattern string) bool {
	if pattern == cpeAny || value == cpeAny {
		return true
	}
	if pattern == cpeNA || value == cpeNA {
		return value == pattern
	}
	if strings.ContainsAny(pattern, "*?") || strings.ContainsAny(value, "*?") {
		lv, lp := strings.ToLower(value), strings.ToLower(pattern)
		return matchGlob(lv, lp) || matchGlob(lp, lv)
	}
	return strings.EqualFold(value, pattern)
}

// matchGlob implements CPE's restricted glob: "*" matches zero or more
// characters, "?" matches exactly one character. Both value and pattern
// are assumed already lowercased by the caller.
func matchGlob(value, pattern string) bool {
	return globMatch(value, pattern)
}

func globMatch(value, pattern string) bool {
	if pattern == "" {
		return value == ""
	}
	switch pattern[0] {
	case '*':
		if globMatch(value, pattern[1:]) {
			return true
		}
		for i := range value {
			if globMatch(value[i+1:], pattern[1:]) {
				return true
			}
		}
		return false
	case '?':
		if value == "" {
			return false
		}
		return globMatch(value[1:], pattern[1:])
	default:
		if value == "" || value[0] != pattern[0] {
			return false
		}
		return globMatch(value[1:], pattern[1:])
	}
}
