package identifier

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	packageurl "github.com/package-url/packageurl-go"

	"github.com/trustify/trustify/pkg/apperr"
)

// NamespaceTrustify is the fixed UUID namespace every deterministic
// identifier in Trustify is hashed under (spec.md §4.1).
var NamespaceTrustify = uuid.MustParse("b8f31bbc-3b3e-4f5d-9a7e-7a5d9d2b7b1f")

// Purl is a parsed, normalized Package URL split into the three levels
// the graph store persists independently: base (type/namespace/name),
// versioned (base+version), and qualified (versioned+qualifiers).
type Purl struct {
	Type       string
	Namespace  string
	Name       string
	Version    string
	Qualifiers map[string]string
	Subpath    string

	BaseUUID      uuid.UUID
	VersionUUID   uuid.UUID
	QualifiedUUID uuid.UUID
}

// ParsePurl parses and normalizes raw into a Purl, deriving its three
// deterministic UUIDs. Normalization lowercases the scheme/type per the
// packageurl-go library's type rules, URL-decodes components, and sorts
// qualifier keys lexicographically before hashing (spec.md §4.1).
func ParsePurl(raw string) (*Purl, error) {
	instance, err := packageurl.FromString(raw)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPurl, err, "parse purl %q", raw)
	}

	qualifiers := make(map[string]string, len(instance.Qualifiers))
	for _, q := range instance.Qualifiers {
		qualifiers[q.Key] = q.Value
	}

	p := &Purl{
		Type:       strings.ToLower(instance.Type),
		Namespace:  instance.Namespace,
		Name:       instance.Name,
		Version:    instance.Version,
		Qualifiers: qualifiers,
		Subpath:    instance.Subpath,
	}
	p.deriveUUIDs()
	return p, nil
}

// NewPurl builds a Purl from components already split out (e.g. from a
// Creator batch), deriving UUIDs the same way ParsePurl does.
func NewPurl(typ, namespace, name, version string, qualifiers map[string]string) *Purl {
	p := &Purl{
		Type:       strings.ToLower(typ),
		Namespace:  namespace,
		Name:       name,
		Version:    version,
		Qualifiers: qualifiers,
	}
	p.deriveUUIDs()
	return p
}

func (p *Purl) deriveUUIDs() {
	p.BaseUUID = uuid.NewSHA1(NamespaceTrustify, []byte(p.baseString()))
	p.VersionUUID = uuid.NewSHA1(NamespaceTrustify, append([]byte(p.BaseUUID.String()), p.Version...))
	p.QualifiedUUID = uuid.NewSHA1(NamespaceTrustify, append([]byte(p.VersionUUID.String()), p.canonicalQualifiers()...))
}

func (p *Purl) baseString() string {
	if p.Namespace != "" {
		return fmt.Sprintf("pkg:%s/%s/%s", p.Type, p.Namespace, p.Name)
	}
	return fmt.Sprintf("pkg:%s/%s", p.Type, p.Name)
}

// canonicalQualifiers renders qualifiers as "key=value" pairs joined with
// "&", sorted by key, so hashing is independent of the original map
// iteration order (spec.md §4.1, tested by §8's "independent of
// qualifier ordering" property).
func (p *Purl) canonicalQualifiers() string {
	if len(p.Qualifiers) == 0 {
		return ""
	}
	keys := make([]string, 0, len(p.Qualifiers))
	for k := range p.Qualifiers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(p.Qualifiers[k])
	}
	return b.String()
}

// String renders the canonical pURL form.
func (p *Purl) String() string {
	instance := packageurl.NewPackageURL(p.Type, p.Namespace, p.Name, p.Version, qualifiersSlice(p.Qualifiers), p.Subpath)
	return instance.ToString()
}

func qualifiersSlice(qs map[string]string) packageurl.Qualifiers {
	if len(qs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(qs))
	for k := range qs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(packageurl.Qualifiers, 0, len(keys))
	for _, k := range keys {
		out = append(out, packageurl.Qualifier{Key: k, Value: qs[k]})
	}
	return out
}
