package creator

import (
	"context"
	"strings"

	"github.com/trustify/trustify/pkg/apperr"
	"github.com/trustify/trustify/pkg/graph"
)

// PackageCreator buffers sbom_node/sbom_package/identity-ref/license
// rows across one document ingest and flushes them in FK order
// (spec.md §4.5): nodes first, then the package specialization, then
// the identity refs and licenses that point at them.
type PackageCreator struct {
	nodes    []graph.SbomNode
	packages []graph.SbomPackage
	files    []graph.SbomFile
	purlRefs []graph.PackagePurlRef
	cpeRefs  []graph.PackageCpeRef
	licenses []graph.SbomPackageLicense
}

// NewPackageCreator returns an empty PackageCreator.
func NewPackageCreator() *PackageCreator {
	return &PackageCreator{}
}

func (c *PackageCreator) AddNode(n graph.SbomNode)             { c.nodes = append(c.nodes, n) }
func (c *PackageCreator) AddPackage(p graph.SbomPackage)        { c.packages = append(c.packages, p) }
func (c *PackageCreator) AddFile(f graph.SbomFile)              { c.files = append(c.files, f) }
func (c *PackageCreator) AddPurlRef(r graph.PackagePurlRef)     { c.purlRefs = append(c.purlRefs, r) }
func (c *PackageCreator) AddCpeRef(r graph.PackageCpeRef)       { c.cpeRefs = append(c.cpeRefs, r) }
func (c *PackageCreator) AddLicense(l graph.SbomPackageLicense) { c.licenses = append(c.licenses, l) }

// NodeIDs returns every node_id this creator has buffered for sbomID,
// for RelationshipCreator's reference validation.
func (c *PackageCreator) NodeIDs(sbomID string) map[string]struct{} {
	out := make(map[string]struct{}, len(c.nodes))
	for _, n := range c.nodes {
		if n.SbomID.String() == sbomID {
			out[n.NodeID] = struct{}{}
		}
	}
	return out
}

// Create flushes every buffered row set in FK order.
func (c *PackageCreator) Create(ctx context.Context, db graph.Connectable) error {
	if err := c.insertNodes(ctx, db); err != nil {
		return err
	}
	if err := c.insertPackages(ctx, db); err != nil {
		return err
	}
	if err := c.insertFiles(ctx, db); err != nil {
		return err
	}
	if err := c.insertPurlRefs(ctx, db); err != nil {
		return err
	}
	if err := c.insertCpeRefs(ctx, db); err != nil {
		return err
	}
	return c.insertLicenses(ctx, db)
}

func (c *PackageCreator) insertNodes(ctx context.Context, db graph.Connectable) error {
	const cols = 3
	for _, rng := range chunkIndices(len(c.nodes), chunkSize(cols)) {
		var sb strings.Builder
		sb.WriteString("INSERT INTO sbom_node (sbom_id, node_id, name) VALUES ")
		var args []any
		for i := rng[0]; i < rng[1]; i++ {
			n := c.nodes[i]
			writePlaceholderGroup(&sb, len(args), cols, i > rng[0])
			args = append(args, n.SbomID, n.NodeID, n.Name)
		}
		sb.WriteString(" ON CONFLICT (sbom_id, node_id) DO UPDATE SET name = EXCLUDED.name")
		if _, err := db.Exec(ctx, sb.String(), args...); err != nil {
			return apperr.Wrap(apperr.KindDatabase, err, "batch insert sbom_node")
		}
	}
	return nil
}

func (c *PackageCreator) insertPackages(ctx context.Context, db graph.Connectable) error {
	const cols = 4
	for _, rng := range chunkIndices(len(c.packages), chunkSize(cols)) {
		var sb strings.Builder
		sb.WriteString("INSERT INTO sbom_package (sbom_id, node_id, \"group\", version) VALUES ")
		var args []any
		for i := rng[0]; i < rng[1]; i++ {
			p := c.packages[i]
			writePlaceholderGroup(&sb, len(args), cols, i > rng[0])
			args = append(args, p.SbomID, p.NodeID, p.Group, p.Version)
		}
		sb.WriteString(" ON CONFLICT (sbom_id, node_id) DO UPDATE SET \"group\" = EXCLUDED.\"group\", version = EXCLUDED.version")
		if _, err := db.Exec(ctx, sb.String(), args...); err != nil {
			return apperr.Wrap(apperr.KindDatabase, err, "batch insert sbom_package")
		}
	}
	return nil
}

func (c *PackageCreator) insertFiles(ctx context.Context, db graph.Connectable) error {
	const cols = 2
	for _, rng := range chunkIndices(len(c.files), chunkSize(cols)) {
		var sb strings.Builder
		sb.WriteString("INSERT INTO sbom_file (sbom_id, node_id) VALUES ")
		var args []any
		for i := rng[0]; i < rng[1]; i++ {
			f := c.files[i]
			writePlaceholderGroup(&sb, len(args), cols, i > rng[0])
			args = append(args, f.SbomID, f.NodeID)
		}
		sb.WriteString(" ON CONFLICT (sbom_id, node_id) DO NOTHING")
		if _, err := db.Exec(ctx, sb.String(), args...); err != nil {
			return apperr.Wrap(apperr.KindDatabase, err, "batch insert sbom_file")
		}
	}
	return nil
}

func (c *PackageCreator) insertPurlRefs(ctx context.Context, db graph.Connectable) error {
	const cols = 3
	for _, rng := range chunkIndices(len(c.purlRefs), chunkSize(cols)) {
		var sb strings.Builder
		sb.WriteString("INSERT INTO sbom_package_purl_ref (sbom_id, node_id, qualified_purl_id) VALUES ")
		var args []any
		for i := rng[0]; i < rng[1]; i++ {
			r := c.purlRefs[i]
			writePlaceholderGroup(&sb, len(args), cols, i > rng[0])
			args = append(args, r.SbomID, r.NodeID, r.QualifiedPurlID)
		}
		sb.WriteString(" ON CONFLICT DO NOTHING")
		if _, err := db.Exec(ctx, sb.String(), args...); err != nil {
			return apperr.Wrap(apperr.KindInvalidReference, err, "batch insert sbom_package_purl_ref")
		}
	}
	return nil
}

func (c *PackageCreator) insertCpeRefs(ctx context.Context, db graph.Connectable) error {
	const cols = 3
	for _, rng := range chunkIndices(len(c.cpeRefs), chunkSize(cols)) {
		var sb strings.Builder
		sb.WriteString("INSERT INTO sbom_package_cpe_ref (sbom_id, node_id, cpe_id) VALUES ")
		var args []any
		for i := rng[0]; i < rng[1]; i++ {
			r := c.cpeRefs[i]
			writePlaceholderGroup(&sb, len(args), cols, i > rng[0])
			args = append(args, r.SbomID, r.NodeID, r.CpeID)
		}
		sb.WriteString(" ON CONFLICT DO NOTHING")
		if _, err := db.Exec(ctx, sb.String(), args...); err != nil {
			return apperr.Wrap(apperr.KindInvalidReference, err, "batch insert sbom_package_cpe_ref")
		}
	}
	return nil
}

func (c *PackageCreator) insertLicenses(ctx context.Context, db graph.Connectable) error {
	const cols = 4
	for _, rng := range chunkIndices(len(c.licenses), chunkSize(cols)) {
		var sb strings.Builder
		sb.WriteString("INSERT INTO sbom_package_license (sbom_id, node_id, license_id, license_type) VALUES ")
		var args []any
		for i := rng[0]; i < rng[1]; i++ {
			l := c.licenses[i]
			writePlaceholderGroup(&sb, len(args), cols, i > rng[0])
			args = append(args, l.SbomID, l.NodeID, l.LicenseID, l.LicenseType)
		}
		sb.WriteString(" ON CONFLICT DO NOTHING")
		if _, err := db.Exec(ctx, sb.String(), args...); err != nil {
			return apperr.Wrap(apperr.KindDatabase, err, "batch insert sbom_package_license")
		}
	}
	return nil
}
