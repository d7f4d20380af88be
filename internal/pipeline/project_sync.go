package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"jresolve/internal/analysis"
	"jresolve/internal/config"
	"jresolve/internal/crawler"
	"jresolve/internal/extractor"
	"jresolve/internal/graph"
	"jresolve/internal/storage"
	"jresolve/internal/systemtypes"
)

// ProjectSync resolves a source tree and records the run.
type ProjectSync struct {
	Config *config.Config
	Store  storage.Store
	Logger *log.Entry
}

// SyncReport summarizes one ProjectSync run.
type SyncReport struct {
	Run     *storage.Run
	Result  *Result
	Graph   *graph.Graph
	Skipped []string
	// Impact compares the hierarchy with the previous run; nil when unchanged.
	Impact *analysis.ImpactReport
	// Unchanged is set when the tree matched the latest run and nothing was resolved.
	Unchanged bool
}

type crawlResult struct {
	Sources []*extractor.SourceUnit
	Skipped []string
	Digest  uint64
}

func NewProjectSync(cfg *config.Config, store storage.Store) *ProjectSync {
	return &ProjectSync{
		Config: cfg,
		Store:  store,
		Logger: log.WithField("component", "sync"),
	}
}

// Run crawls the configured root, resolves it and persists the run. Unless
// force is set, a tree whose digest equals the latest run is not resolved
// again.
func (s *ProjectSync) Run(ctx context.Context, force bool) (*SyncReport, error) {
	started := time.Now()
	crawled, err := s.crawlStage(ctx)
	if err != nil {
		return nil, err
	}

	if !force {
		latest, unchanged, err := s.detectChangesStage(ctx, crawled.Digest)
		if err != nil {
			return nil, err
		}
		if unchanged {
			s.Logger.WithField("run", latest.ID).Info("no changes detected")
			return &SyncReport{Run: latest, Skipped: crawled.Skipped, Unchanged: true}, nil
		}
	}

	result, err := s.resolveStage(crawled.Sources)
	if err != nil {
		return nil, err
	}

	g := s.graphStage(result)

	impact, err := s.impactAnalysisStage(ctx, g)
	if err != nil {
		return nil, err
	}

	run := &storage.Run{
		Started: started,
		Root:    s.Config.Project.Root,
		Units:   len(crawled.Sources),
		Digest:  crawled.Digest,
	}
	if err := s.persistStage(ctx, run, g, result); err != nil {
		return nil, err
	}

	return &SyncReport{Run: run, Result: result, Graph: g, Impact: impact, Skipped: crawled.Skipped}, nil
}

func (s *ProjectSync) crawlStage(ctx context.Context) (*crawlResult, error) {
	ext, err := extractor.NewExtractor("java")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create extractor")
	}
	c := crawler.NewCrawler(ext).WithWorkers(s.Config.Project.Workers)
	if len(s.Config.Project.Ignore) > 0 {
		c.WithIgnored(s.Config.Project.Ignore...)
	}

	var sources []*extractor.SourceUnit
	if err := c.ScanProject(ctx, s.Config.Project.Root, func(u *extractor.SourceUnit) {
		sources = append(sources, u)
	}); err != nil {
		return nil, errors.Wrap(err, "crawl")
	}
	s.Logger.WithFields(log.Fields{
		"files":   len(sources),
		"skipped": len(c.Skipped()),
	}).Info("source tree scanned")
	return &crawlResult{Sources: sources, Skipped: c.Skipped(), Digest: BatchDigest(sources)}, nil
}

func (s *ProjectSync) detectChangesStage(ctx context.Context, digest uint64) (*storage.Run, bool, error) {
	latest, err := s.Store.LatestRun(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "load latest run")
	}
	same := latest.Digest == digest && latest.Root == s.Config.Project.Root
	return latest, same, nil
}

func (s *ProjectSync) resolveStage(sources []*extractor.SourceUnit) (*Result, error) {
	universe, err := systemtypes.LoadFiles(s.Config.Universe.Catalogs...)
	if err != nil {
		return nil, errors.Wrap(err, "load type catalogs")
	}
	return RunSources(sources, Options{Universe: universe, Logger: s.Logger})
}

func (s *ProjectSync) graphStage(result *Result) *graph.Graph {
	g := graph.FromDeclarations(result.Declarations, result.Env.TypeInfoResolver())
	g.AddDiagnostics(result.Diagnostics)
	s.Logger.WithFields(log.Fields{
		"nodes":      len(g.Nodes),
		"edges":      len(g.Edges),
		"unresolved": len(g.Unresolved),
	}).Debug("hierarchy built")
	return g
}

// impactAnalysisStage diffs the new hierarchy against the latest stored run.
func (s *ProjectSync) impactAnalysisStage(ctx context.Context, g *graph.Graph) (*analysis.ImpactReport, error) {
	var previous *graph.Graph
	latest, err := s.Store.LatestRun(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return nil, errors.Wrap(err, "load latest run")
	default:
		if previous, err = s.Store.LoadGraph(ctx, latest.ID); err != nil {
			return nil, errors.Wrapf(err, "load hierarchy of run %s", latest.ID)
		}
	}
	report := analysis.NewAnalyzer(g).AnalyzeImpact(previous)
	s.Logger.WithFields(log.Fields{
		"added":    len(report.Added),
		"removed":  len(report.Removed),
		"changed":  len(report.Changed),
		"indirect": len(report.IndirectlyAffected),
	}).Debug("impact analyzed")
	return report, nil
}

func (s *ProjectSync) persistStage(ctx context.Context, run *storage.Run, g *graph.Graph, result *Result) error {
	if err := s.Store.SaveRun(ctx, run, g, result.Diagnostics); err != nil {
		return errors.Wrap(err, "failed to save run")
	}
	if keep := s.Config.Storage.KeepRuns; keep > 0 {
		removed, err := s.Store.PruneRuns(ctx, keep)
		if err != nil {
			return err
		}
		if removed > 0 {
			s.Logger.WithField("removed", removed).Debug("old runs pruned")
		}
	}
	return nil
}
