// Package pipeline runs the resolution passes over a batch and wires their
// results into the hierarchy graph and the run store.
package pipeline

import (
	"sort"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/zeebo/xxh3"

	"jresolve/internal/ast"
	"jresolve/internal/declare"
	"jresolve/internal/diag"
	"jresolve/internal/disambig"
	"jresolve/internal/extractor"
	"jresolve/internal/resolver"
	"jresolve/internal/scoping"
	"jresolve/internal/systemtypes"
)

// Options configure one resolution.
type Options struct {
	// Universe supplies library types; the built-in catalog when nil.
	Universe declare.Universe
	Logger   *log.Entry
}

// Result is everything one resolution produced.
type Result struct {
	Units        []*ast.Node
	Env          *declare.Env
	Declarations []*declare.Declaration
	TypeInfos    []*resolver.TypeInfo
	Diagnostics  []diag.Diagnostic
	// Rewritten counts replacement nodes by type.
	Rewritten map[ast.NodeType]int
	Failed    int
	Timings   map[string]time.Duration
}

// DiagnosticCounts groups the diagnostics of the result by category.
func (r *Result) DiagnosticCounts() map[diag.Category]int {
	counts := make(map[diag.Category]int)
	for _, d := range r.Diagnostics {
		counts[d.Category]++
	}
	return counts
}

// Run resolves a batch: declaration, scoping, then disambiguation. The
// node structure of the input trees is preserved, but declaration and
// scoping attach type infos and resolvers to their nodes. The rewritten
// trees are in the result.
// An error means an engine invariant failed, never a problem in the input.
func Run(units []*ast.Node, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "pipeline")
	}
	universe := opts.Universe
	if universe == nil {
		u, err := systemtypes.Default()
		if err != nil {
			return nil, errors.Wrap(err, "load built-in types")
		}
		universe = u
	}

	res := &Result{Timings: make(map[string]time.Duration)}
	sink := diag.NewCollector(logger)

	start := time.Now()
	env := declare.Run(units, universe, sink, logger)
	res.Timings["declare"] = time.Since(start)

	start = time.Now()
	scoped, err := scoping.Run(units, env.TypeInfoResolver(), logger)
	if err != nil {
		return nil, errors.Wrap(err, "scoping")
	}
	res.Timings["scoping"] = time.Since(start)

	start = time.Now()
	out, pass, err := disambig.Run(scoped, env, sink, logger)
	if err != nil {
		return nil, errors.Wrap(err, "disambiguation")
	}
	res.Timings["disambiguation"] = time.Since(start)

	res.Units = out
	res.Env = env
	res.Declarations = env.Declarations()
	for _, d := range res.Declarations {
		if d.IsTypeParameter() || d.Duplicate {
			continue
		}
		if ti := d.TypeInfo(); ti != nil && ti.Complete {
			res.TypeInfos = append(res.TypeInfos, ti)
		}
	}
	res.Diagnostics = sink.Sorted()
	res.Rewritten = pass.Counts()
	res.Failed = pass.Failed()

	logger.WithFields(log.Fields{
		"units":        len(units),
		"types":        len(res.TypeInfos),
		"diagnostics":  len(res.Diagnostics),
		"rewritten":    pass.Rewritten(),
		"unresolvable": res.Failed,
	}).Info("batch resolved")
	return res, nil
}

// RunSources resolves parsed source files.
func RunSources(sources []*extractor.SourceUnit, opts Options) (*Result, error) {
	units := make([]*ast.Node, 0, len(sources))
	for _, s := range sources {
		units = append(units, s.Root)
	}
	return Run(units, opts)
}

// BatchDigest identifies a batch by its file paths and contents,
// independent of the order the files arrived in.
func BatchDigest(sources []*extractor.SourceUnit) uint64 {
	sorted := append([]*extractor.SourceUnit(nil), sources...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Filepath < sorted[j].Filepath })

	h := xxh3.New()
	var buf [8]byte
	for _, s := range sorted {
		h.WriteString(s.Filepath)
		h.Write([]byte{0})
		for i := 0; i < 8; i++ {
			buf[i] = byte(s.Digest >> (8 * i))
		}
		h.Write(buf[:])
	}
	return h.Sum64()
}
