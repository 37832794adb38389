package importer

import (
	"context"
	"sync"
	"time"

	"github.com/trustify/trustify/pkg/apperr"
	"github.com/trustify/trustify/pkg/config"
	"github.com/trustify/trustify/pkg/database"
	"github.com/trustify/trustify/pkg/graph"
	"github.com/trustify/trustify/pkg/ingest"
	"github.com/trustify/trustify/pkg/logger"
	"github.com/trustify/trustify/pkg/queryservice"
)

// Scheduler wakes every PollInterval and, for each Waiting importer
// whose last_change is stale by its own period, CASes it into Running
// and spawns its source-specific Walker in the background
// (services/connectors/internal/scheduler/scheduler.go, generalized
// from "connector sync" to "importer run"; spec.md §4.10). It doesn't
// hold a pkg/events.Publisher itself — ingestSvc.Ingest already
// publishes on every successful commit, so a second publish here would
// double-fire the event for every walker-driven ingest.
type Scheduler struct {
	db        *database.DB
	ingestSvc *ingest.Service
	advisory  *queryservice.AdvisoryService
	sbom      *queryservice.SbomService
	log       *logger.Logger
	cfg       config.ImporterConfig

	active sync.Map // importer name -> struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler wires a Scheduler's ambient dependencies.
func NewScheduler(db *database.DB, ingestSvc *ingest.Service, log *logger.Logger, cfg config.ImporterConfig) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		db:        db,
		ingestSvc: ingestSvc,
		advisory:  queryservice.NewAdvisoryService(db),
		sbom:      queryservice.NewSbomService(db),
		log:       log.WithComponent("importer-scheduler"),
		cfg:       cfg,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start begins the poll loop in the background.
func (s *Scheduler) Start() {
	s.log.Info("starting importer scheduler", "poll_interval", s.cfg.PollInterval.String())
	s.wg.Add(1)
	go s.pollLoop()
}

// Stop cancels every in-flight run and waits for them to unwind.
func (s *Scheduler) Stop() {
	s.log.Info("stopping importer scheduler")
	s.cancel()
	s.wg.Wait()
	s.log.Info("importer scheduler stopped")
}

func (s *Scheduler) pollLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	s.tick()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(s.ctx, time.Minute)
	defer cancel()

	due, err := ListDue(ctx, s.db.Pool, time.Now(), s.cfg.PollInterval)
	if err != nil {
		s.log.ErrorContext(ctx, "list due importers", "error", err)
		return
	}

	inFlight := 0
	for _, imp := range due {
		if _, running := s.active.Load(imp.Name); running {
			continue
		}
		if s.cfg.MaxConcurrent > 0 && inFlight >= s.cfg.MaxConcurrent {
			break
		}
		inFlight++
		s.active.Store(imp.Name, struct{}{})
		s.wg.Add(1)
		go func(imp graph.Importer) {
			defer s.wg.Done()
			defer s.active.Delete(imp.Name)
			s.run(imp)
		}(imp)
	}
}

// ForceRun triggers one importer's run immediately regardless of its
// last_change, subject to the same in-flight dedup as the poll loop
// (the HTTP layer's POST /v1/importer/{name}/force, spec.md §6).
func (s *Scheduler) ForceRun(name string) bool {
	if _, running := s.active.LoadOrStore(name, struct{}{}); running {
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.active.Delete(name)
		imp, err := Get(s.ctx, s.db.Pool, name)
		if err != nil || imp == nil {
			return
		}
		s.run(*imp)
	}()
	return true
}

func (s *Scheduler) run(imp graph.Importer) {
	start := time.Now()
	ctx := logger.SetContextValue(s.ctx, logger.ImporterKey, imp.Name)
	log := s.log.WithImporter(imp.Name)

	newRevision, err := UpdateStart(ctx, s.db.Pool, imp.Name, imp.Revision)
	if err != nil {
		log.ErrorContext(ctx, "update_start failed", "error", err)
		return
	}
	imp.Revision = newRevision

	walker, err := s.buildWalker(imp)
	if err != nil {
		s.finish(ctx, log, imp, start, imp.Continuation, err, nil)
		return
	}

	report := NewReportBuilder()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	newContinuation, runErr := walker.Run(runCtx, imp.Continuation, report)
	if newContinuation == nil {
		newContinuation = imp.Continuation
	}
	s.finish(ctx, log, imp, start, newContinuation, runErr, report)
}

func (s *Scheduler) finish(ctx context.Context, log *logger.Logger, imp graph.Importer, start time.Time, continuation []byte, runErr error, report *ReportBuilder) {
	if _, err := UpdateFinish(ctx, s.db.Pool, imp.Name, imp.Revision, start, continuation, runErr); err != nil {
		log.ErrorContext(ctx, "update_finish failed", "error", err)
	}

	var reportJSON []byte
	if report != nil {
		var err error
		reportJSON, err = report.Build()
		if err != nil {
			log.ErrorContext(ctx, "build report failed", "error", err)
			reportJSON = []byte(`{}`)
		}
	} else {
		reportJSON = []byte(`{}`)
	}
	if err := SaveReport(ctx, s.db.Pool, imp.Name, runErr, reportJSON); err != nil {
		log.ErrorContext(ctx, "save report failed", "error", err)
	}

	if runErr != nil {
		log.ErrorContext(ctx, "importer run failed", "error", runErr, "duration", time.Since(start).String())
		return
	}
	log.InfoContext(ctx, "importer run completed", "duration", time.Since(start).String())
}

// buildWalker dispatches imp.Configuration's "kind" to the matching
// Walker, wiring the shared ingest function and label writer.
func (s *Scheduler) buildWalker(imp graph.Importer) (Walker, error) {
	env, err := parseEnvelope(imp.Configuration)
	if err != nil {
		return nil, err
	}

	switch env.Kind {
	case SourceGit:
		cfg, err := parseGitConfig(imp.Configuration)
		if err != nil {
			return nil, err
		}
		return &GitWalker{
			Name:    imp.Name,
			Config:  cfg,
			WorkDir: workDirFor(s.cfg.WorkDir, imp.Name),
			Timeout: s.cfg.Git.CloneTimeout,
			Ingest:  s.ingestSvc.Ingest,
			Labels:  s.writeLabels,
		}, nil
	case SourceHTTP:
		cfg, err := parseHTTPConfig(imp.Configuration)
		if err != nil {
			return nil, err
		}
		return &HTTPWalker{
			Name:    imp.Name,
			Config:  cfg,
			Timeout: s.cfg.HTTP.RequestTimeout,
			Ingest:  s.ingestSvc.Ingest,
			Labels:  s.writeLabels,
		}, nil
	case SourceQuay:
		cfg, err := parseQuayConfig(imp.Configuration)
		if err != nil {
			return nil, err
		}
		return &QuayWalker{
			Name:       imp.Name,
			Config:     cfg,
			APIBaseURL: s.cfg.Quay.APIBaseURL,
			Timeout:    s.cfg.Quay.RequestTimeout,
			Ingest:     s.ingestSvc.Ingest,
			Labels:     s.writeLabels,
		}, nil
	default:
		return nil, apperr.New(apperr.KindParse, "importer %q: unsupported source kind %q", imp.Name, env.Kind)
	}
}

// writeLabels is the shared LabelWriter every walker is wired with,
// setting the walker-assigned labels (source/importer/file) against
// whichever entity the Ingest result actually produced.
func (s *Scheduler) writeLabels(ctx context.Context, result *ingest.Result, labels map[string]string) error {
	merged := make(queryservice.Labels, len(labels))
	for k, v := range labels {
		merged[k] = v
	}

	switch {
	case result.SbomID != nil:
		return s.sbom.SetLabels(ctx, *result.SbomID, merged)
	case result.AdvisoryID != nil:
		return s.advisory.SetLabels(ctx, *result.AdvisoryID, merged)
	default:
		return nil
	}
}
