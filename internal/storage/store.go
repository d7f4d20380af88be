package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"jresolve/internal/diag"
	"jresolve/internal/graph"
)

// ErrNotFound is returned when a requested run or type does not exist.
var ErrNotFound = errors.New("not found")

// Run is one persisted resolution of a batch.
type Run struct {
	ID      string
	Started time.Time
	Root    string
	Units   int
	// Digest identifies the batch contents, see pipeline.BatchDigest.
	Digest      uint64
	Types       int
	Diagnostics int
}

// Store persists resolution runs.
type Store interface {
	RunStore
	Close() error
}

// RunStore defines operations for persisting runs and their results.
type RunStore interface {
	// SaveRun stores the run together with its hierarchy and diagnostics.
	// An empty run ID is replaced by a fresh one.
	SaveRun(ctx context.Context, run *Run, g *graph.Graph, diags []diag.Diagnostic) error

	// LatestRun returns the most recently started run or ErrNotFound.
	LatestRun(ctx context.Context) (*Run, error)
	GetRun(ctx context.Context, id string) (*Run, error)

	// PruneRuns deletes all but the newest keep runs and returns how many went.
	PruneRuns(ctx context.Context, keep int) (int64, error)

	LoadTypes(ctx context.Context, runID string) ([]*graph.Symbol, error)
	LoadEdges(ctx context.Context, runID string) ([]graph.Edge, error)
	LoadDiagnostics(ctx context.Context, runID string) ([]diag.Diagnostic, error)

	// LoadGraph rebuilds the hierarchy of a run, including its unresolved entries.
	LoadGraph(ctx context.Context, runID string) (*graph.Graph, error)

	// FindTypesByFile retrieves the types a run declared in one file.
	FindTypesByFile(ctx context.Context, runID, filepath string) ([]*graph.Symbol, error)
}
