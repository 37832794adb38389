package analysis

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/trustify/trustify/pkg/apperr"
	"github.com/trustify/trustify/pkg/graph"
	"github.com/trustify/trustify/pkg/identifier"
)

// buildGraph streams sbom_node (joined to sbom_package for version),
// the purl/cpe reference tables, and package_relates_to_package for one
// SBOM and assembles a PackageGraph, exactly the join spec.md §4.8
// describes ("streaming sbom_node + sbom_package + refs +
// package_relates_to_package joined rows"). It is built once per SBOM;
// the caller (Service) is responsible for caching the result.
func buildGraph(ctx context.Context, db graph.Connectable, sbomID uuid.UUID) (*PackageGraph, error) {
	g := newPackageGraph(sbomID)

	if err := loadNodes(ctx, db, g); err != nil {
		return nil, err
	}
	if err := loadPurlRefs(ctx, db, g); err != nil {
		return nil, err
	}
	if err := loadCpeRefs(ctx, db, g); err != nil {
		return nil, err
	}
	if err := loadEdges(ctx, db, g); err != nil {
		return nil, err
	}

	detectCycles(g)
	return g, nil
}

func loadNodes(ctx context.Context, db graph.Connectable, g *PackageGraph) error {
	const sql = `
SELECT n.node_id, n.name, COALESCE(p.version, '')
FROM sbom_node n
LEFT JOIN sbom_package p ON p.sbom_id = n.sbom_id AND p.node_id = n.node_id
WHERE n.sbom_id = $1`

	rows, err := db.Query(ctx, sql, g.SbomID)
	if err != nil {
		return apperr.Wrap(apperr.KindDatabase, err, "load sbom_node for %s", g.SbomID)
	}
	defer rows.Close()

	for rows.Next() {
		n := &PackageNode{SbomID: g.SbomID}
		if err := rows.Scan(&n.NodeID, &n.Name, &n.Version); err != nil {
			return apperr.Wrap(apperr.KindDatabase, err, "scan sbom_node for %s", g.SbomID)
		}
		g.Nodes[n.NodeID] = n
	}
	if err := rows.Err(); err != nil {
		return apperr.Wrap(apperr.KindDatabase, err, "iterate sbom_node for %s", g.SbomID)
	}
	return nil
}

func loadPurlRefs(ctx context.Context, db graph.Connectable, g *PackageGraph) error {
	const sql = `
SELECT spr.node_id, bp.type, bp.namespace, bp.name, vp.version, qp.qualifiers
FROM sbom_package_purl_ref spr
JOIN qualified_purl qp ON qp.id = spr.qualified_purl_id
JOIN versioned_purl vp ON vp.id = qp.versioned_purl_id
JOIN base_purl bp ON bp.id = vp.base_purl_id
WHERE spr.sbom_id = $1`

	rows, err := db.Query(ctx, sql, g.SbomID)
	if err != nil {
		return apperr.Wrap(apperr.KindDatabase, err, "load sbom_package_purl_ref for %s", g.SbomID)
	}
	defer rows.Close()

	for rows.Next() {
		var nodeID, typ, namespace, name, version string
		var qualifiersJSON []byte
		if err := rows.Scan(&nodeID, &typ, &namespace, &name, &version, &qualifiersJSON); err != nil {
			return apperr.Wrap(apperr.KindDatabase, err, "scan sbom_package_purl_ref for %s", g.SbomID)
		}
		var qualifiers map[string]string
		if len(qualifiersJSON) > 0 {
			if err := json.Unmarshal(qualifiersJSON, &qualifiers); err != nil {
				return apperr.Wrap(apperr.KindGeneric, err, "unmarshal purl qualifiers for %s/%s", g.SbomID, nodeID)
			}
		}
		if n, ok := g.Nodes[nodeID]; ok {
			p := identifier.NewPurl(typ, namespace, name, version, qualifiers)
			n.Purl = append(n.Purl, p.String())
		}
	}
	return rows.Err()
}

func loadCpeRefs(ctx context.Context, db graph.Connectable, g *PackageGraph) error {
	const sql = `
SELECT scr.node_id, c.part, c.vendor, c.product, c.version, c.update, c.edition, c.language
FROM sbom_package_cpe_ref scr
JOIN cpe c ON c.id = scr.cpe_id
WHERE scr.sbom_id = $1`

	rows, err := db.Query(ctx, sql, g.SbomID)
	if err != nil {
		return apperr.Wrap(apperr.KindDatabase, err, "load sbom_package_cpe_ref for %s", g.SbomID)
	}
	defer rows.Close()

	for rows.Next() {
		var nodeID string
		c := &identifier.Cpe{}
		if err := rows.Scan(&nodeID, &c.Part, &c.Vendor, &c.Product, &c.Version, &c.Update, &c.Edition, &c.Language); err != nil {
			return apperr.Wrap(apperr.KindDatabase, err, "scan sbom_package_cpe_ref for %s", g.SbomID)
		}
		if n, ok := g.Nodes[nodeID]; ok {
			n.Cpe = append(n.Cpe, c.String())
		}
	}
	return rows.Err()
}

func loadEdges(ctx context.Context, db graph.Connectable, g *PackageGraph) error {
	const sql = `
SELECT left_node_id, relationship, right_node_id
FROM package_relates_to_package
WHERE sbom_id = $1`

	rows, err := db.Query(ctx, sql, g.SbomID)
	if err != nil {
		return apperr.Wrap(apperr.KindDatabase, err, "load package_relates_to_package for %s", g.SbomID)
	}
	defer rows.Close()

	for rows.Next() {
		var left, right string
		var rel graph.Relationship
		if err := rows.Scan(&left, &rel, &right); err != nil {
			return apperr.Wrap(apperr.KindDatabase, err, "scan package_relates_to_package for %s", g.SbomID)
		}
		g.addEdge(left, rel, right)
	}
	return rows.Err()
}
