package analysis

import (
	"strconv"
	"strings"

	"github.com/trustify/trustify/pkg/apperr"
	"github.com/trustify/trustify/pkg/identifier"
	"github.com/trustify/trustify/pkg/query"
)

// ComponentKind selects which identity a Component GraphQuery matches
// nodes by (spec.md §4.8: "Component(Id | Name | Purl | Cpe)").
type ComponentKind int

const (
	ComponentID ComponentKind = iota
	ComponentName
	ComponentPurl
	ComponentCpe
)

// ComponentQuery matches every node whose chosen identity equals Value
// exactly (Id/Name) or contains Value among its pURLs/CPEs (Purl/Cpe).
type ComponentQuery struct {
	Kind  ComponentKind
	Value string
}

// GraphQuery is either a direct component lookup or a parsed DSL query
// evaluated in-memory against a node's sbom_id/node_id/name/version
// fields (spec.md §4.8's "DSL form exposes fields ... over the node
// context").
type GraphQuery struct {
	Component *ComponentQuery
	DSL       *query.Query
}

// Find returns every node in g matching q, in map-iteration order (the
// caller sorts/paginates results that matter for display ordering).
func Find(g *PackageGraph, q GraphQuery) []*PackageNode {
	switch {
	case q.Component != nil:
		return findComponent(g, *q.Component)
	case q.DSL != nil:
		return findDSL(g, q.DSL)
	default:
		return nil
	}
}

func findComponent(g *PackageGraph, c ComponentQuery) []*PackageNode {
	var out []*PackageNode
	for _, n := range g.Nodes {
		if matchesComponent(n, c) {
			out = append(out, n)
		}
	}
	return out
}

func matchesComponent(n *PackageNode, c ComponentQuery) bool {
	switch c.Kind {
	case ComponentID:
		return n.NodeID == c.Value
	case ComponentName:
		return n.Name == c.Value
	case ComponentPurl:
		return containsString(n.Purl, c.Value)
	case ComponentCpe:
		return matchesCpe(n.Cpe, c.Value)
	default:
		return false
	}
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// matchesCpe reports whether any of a node's CPEs matches pattern under
// CPE 2.3 wildcard semantics (spec.md §4.1/§4.8: Component(Cpe) "contains
// Value among its ... CPEs"), so a query CPE like
// "cpe:2.3:a:apache:log4j:*:*:*:*:*:*:*:*" matches every concrete
// version on the node. A pattern that doesn't parse as a CPE, or a node
// CPE that doesn't either, falls back to an exact string comparison.
func matchesCpe(cpes []string, pattern string) bool {
	parsedPattern, err := identifier.ParseCpe(pattern)
	if err != nil {
		return containsString(cpes, pattern)
	}
	for _, raw := range cpes {
		if raw == pattern {
			return true
		}
		parsed, err := identifier.ParseCpe(raw)
		if err != nil {
			continue
		}
		if parsed.Matches(parsedPattern) {
			return true
		}
	}
	return false
}

func findDSL(g *PackageGraph, q *query.Query) []*PackageNode {
	var out []*PackageNode
	for _, n := range g.Nodes {
		ok, err := matchesDSL(n, q)
		if err == nil && ok {
			out = append(out, n)
		}
	}
	return out
}

// nodeFieldValue resolves the DSL's fixed field set over a PackageNode
// (spec.md §4.8): sbom_id, node_id, name and version. Every operator,
// '~' included, applies to every one of these fields.
func nodeFieldValue(n *PackageNode, field string) (string, bool) {
	switch strings.ToLower(field) {
	case "sbom_id":
		return n.SbomID.String(), true
	case "node_id":
		return n.NodeID, true
	case "name":
		return n.Name, true
	case "version":
		return n.Version, true
	default:
		return "", false
	}
}

func matchesDSL(n *PackageNode, q *query.Query) (bool, error) {
	for _, c := range q.Constraints {
		ok, err := matchesConstraint(n, c)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func matchesConstraint(n *PackageNode, c query.Constraint) (bool, error) {
	if c.IsFullText {
		for _, field := range []string{"name", "version"} {
			value, _ := nodeFieldValue(n, field)
			for _, v := range c.Values {
				if strings.Contains(strings.ToLower(value), strings.ToLower(v)) {
					return true, nil
				}
			}
		}
		return false, nil
	}

	value, ok := nodeFieldValue(n, c.Field)
	if !ok {
		return false, apperr.New(apperr.KindSearchSyntax, "unknown graph query field %q", c.Field)
	}

	for _, v := range c.Values {
		if matchesOp(value, c.Op, v) {
			return true, nil
		}
	}
	return false, nil
}

func matchesOp(value string, op query.Op, target string) bool {
	switch op {
	case query.OpEq:
		return value == target
	case query.OpNe:
		return value != target
	case query.OpLike:
		return strings.Contains(strings.ToLower(value), strings.ToLower(target))
	case query.OpNotLike:
		return !strings.Contains(strings.ToLower(value), strings.ToLower(target))
	case query.OpGe, query.OpGt, query.OpLe, query.OpLt:
		return compareNumeric(value, op, target)
	default:
		return false
	}
}

// compareNumeric supports the ordering operators only when both sides
// parse as numbers (e.g. a "version" filter against a purely numeric
// scheme); a non-numeric comparison is simply false rather than an
// error, matching the DSL's general "no match" behavior for a
// constraint that can't apply to a field.
func compareNumeric(value string, op query.Op, target string) bool {
	v, err1 := strconv.ParseFloat(value, 64)
	t, err2 := strconv.ParseFloat(target, 64)
	if err1 != nil || err2 != nil {
		return false
	}
	switch op {
	case query.OpGe:
		return v >= t
	case query.OpGt:
		return v > t
	case query.OpLe:
		return v <= t
	case query.OpLt:
		return v < t
	default:
		return false
	}
}
