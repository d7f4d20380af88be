package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jresolve/internal/diag"
	"jresolve/internal/graph"
)

func openStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleGraph() *graph.Graph {
	g := graph.NewGraph()
	g.AddSymbol(&graph.Symbol{ID: "/p/A", Name: "p.A", Package: "p", Kind: "class", Stage: "resolved", Filepath: "p/A.java", Line: 3})
	g.AddSymbol(&graph.Symbol{ID: "/p/I", Name: "p.I", Package: "p", Kind: "interface", Stage: "resolved", Filepath: "p/A.java", Line: 9})
	g.AddSymbol(&graph.Symbol{ID: "/java/lang/Object", Name: "java.lang.Object", Package: "java.lang", Kind: "class", External: true})
	g.AddEdge("/p/A", "/java/lang/Object", graph.RelationExtends)
	g.AddEdge("/p/A", "/p/I", graph.RelationImplements)
	g.Unresolved = []graph.Unresolved{{Symbol: "p/A.java:5:3", Reason: graph.ReasonNoCandidate, Detail: "cannot resolve type Foo"}}
	return g
}

func TestSQLiteStore_SaveRunRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	diags := []diag.Diagnostic{
		{Pos: diag.Position{File: "p/A.java", Line: 5, Column: 3}, Category: diag.CategoryUnresolved, Message: "cannot resolve type Foo"},
	}
	run := &Run{Root: "/src", Units: 1, Digest: 0xdeadbeefcafef00d}
	require.NoError(t, store.SaveRun(ctx, run, sampleGraph(), diags))
	require.NotEmpty(t, run.ID)
	assert.Equal(t, 2, run.Types)
	assert.Equal(t, 1, run.Diagnostics)

	latest, err := store.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, run.ID, latest.ID)
	assert.Equal(t, uint64(0xdeadbeefcafef00d), latest.Digest)
	assert.Equal(t, "/src", latest.Root)
	assert.Equal(t, run.Started.UnixNano(), latest.Started.UnixNano())

	types, err := store.LoadTypes(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, types, 3)
	assert.Equal(t, "java.lang.Object", types[0].Name)
	assert.True(t, types[0].External)
	assert.Equal(t, "p.A", types[1].Name)
	assert.Equal(t, 3, types[1].Line)

	edges, err := store.LoadEdges(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, []graph.Edge{
		{From: "/p/A", To: "/java/lang/Object", Kind: graph.RelationExtends},
		{From: "/p/A", To: "/p/I", Kind: graph.RelationImplements},
	}, edges)

	loadedDiags, err := store.LoadDiagnostics(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, diags, loadedDiags)

	inFile, err := store.FindTypesByFile(ctx, run.ID, "p/A.java")
	require.NoError(t, err)
	require.Len(t, inFile, 2)
	assert.Equal(t, "p.A", inFile[0].Name)
}

func TestSQLiteStore_LoadGraph(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	run := &Run{Root: "/src"}
	require.NoError(t, store.SaveRun(ctx, run, sampleGraph(), nil))

	g, err := store.LoadGraph(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 3)
	assert.Len(t, g.Lookup("A"), 1)
	assert.Len(t, g.GetDependencies("/p/A"), 2)
	assert.Equal(t, map[graph.UnresolvedReason]int{graph.ReasonNoCandidate: 1}, g.UnresolvedReasonCounts())

	// Edges loaded from storage are deduplicated like fresh ones.
	g.AddEdge("/p/A", "/p/I", graph.RelationImplements)
	assert.Len(t, g.Edges, 2)
}

func TestSQLiteStore_LatestRunAndPrune(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	_, err := store.LatestRun(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		run := &Run{Started: base.Add(time.Duration(i) * time.Hour), Digest: uint64(i)}
		require.NoError(t, store.SaveRun(ctx, run, sampleGraph(), nil))
		ids = append(ids, run.ID)
	}

	latest, err := store.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, ids[2], latest.ID)

	removed, err := store.PruneRuns(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	_, err = store.GetRun(ctx, ids[0])
	assert.ErrorIs(t, err, ErrNotFound)
	types, err := store.LoadTypes(ctx, ids[0])
	require.NoError(t, err)
	assert.Empty(t, types)
}
