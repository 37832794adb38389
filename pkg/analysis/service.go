package analysis

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/google/uuid"

	"github.com/trustify/trustify/pkg/apperr"
	"github.com/trustify/trustify/pkg/database"
	"github.com/trustify/trustify/pkg/graph"
	"github.com/trustify/trustify/pkg/logger"
)

// defaultCacheSize bounds how many SBOMs' graphs are held in memory at
// once (spec.md §4.8: "a bounded LRU of (sbom_id -> Arc<PackageGraph>)");
// Rust's Arc sharing has no Go analog here since *PackageGraph is built
// once and never mutated after buildGraph returns.
const defaultCacheSize = 256

// Service is the analysis engine: a bounded LRU of per-SBOM graphs
// built lazily from the database on first reference.
type Service struct {
	db     *database.DB
	cache  *lru.Cache[uuid.UUID, *PackageGraph]
	logger *logger.Logger
}

// NewService builds an analysis Service with the default cache size.
func NewService(db *database.DB, log *logger.Logger) (*Service, error) {
	cache, err := lru.New[uuid.UUID, *PackageGraph](defaultCacheSize)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindGeneric, err, "create analysis graph cache")
	}
	return &Service{db: db, cache: cache, logger: log}, nil
}

// Graph returns sbomID's PackageGraph, building and caching it on a
// miss.
func (s *Service) Graph(ctx context.Context, sbomID uuid.UUID) (*PackageGraph, error) {
	if g, ok := s.cache.Get(sbomID); ok {
		return g, nil
	}

	g, err := buildGraph(ctx, s.db.Pool, sbomID)
	if err != nil {
		return nil, err
	}
	if !g.Acyclic && s.logger != nil {
		s.logger.WarnContext(ctx, "sbom graph is not acyclic", "sbom_id", sbomID, "warnings", g.Warnings)
	}
	s.cache.Add(sbomID, g)
	return g, nil
}

// Evict drops sbomID's cached graph, forcing a rebuild on next
// reference. No ingest path calls it; a cached graph otherwise stays
// until the LRU evicts it.
func (s *Service) Evict(sbomID uuid.UUID) {
	s.cache.Remove(sbomID)
}

// Collect runs Collect against sbomID's graph, loading it first if
// necessary.
func (s *Service) Collect(ctx context.Context, sbomID uuid.UUID, start string, direction Direction, depth int, relationships []graph.Relationship) (*Tree, error) {
	g, err := s.Graph(ctx, sbomID)
	if err != nil {
		return nil, err
	}
	return Collect(g, start, direction, depth, relationships), nil
}

// Find runs a GraphQuery against sbomID's graph.
func (s *Service) Find(ctx context.Context, sbomID uuid.UUID, q GraphQuery) ([]*PackageNode, error) {
	g, err := s.Graph(ctx, sbomID)
	if err != nil {
		return nil, err
	}
	return Find(g, q), nil
}

// Status reports (sbom_count, graph_count): sbom_count is every SBOM on
// record, graph_count is how many graphs are currently cached (spec.md
// §4.8's status endpoint).
func (s *Service) Status(ctx context.Context) (sbomCount, graphCount int, err error) {
	row := s.db.QueryRow(ctx, `SELECT count(*) FROM sbom`)
	if err := row.Scan(&sbomCount); err != nil {
		return 0, 0, apperr.Wrap(apperr.KindDatabase, err, "count sbom rows")
	}
	return sbomCount, s.cache.Len(), nil
}
