package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jresolve/internal/ast"
	"jresolve/internal/config"
	"jresolve/internal/diag"
	"jresolve/internal/extractor"
	"jresolve/internal/storage"
)

const shapeSrc = `package geo;

import java.util.*;

public class Shape extends Base implements Comparable<Shape> {
    static final int SIDES = 4;
    List<String> tags = new ArrayList<>();

    int sides() {
        int n = SIDES;
        return n + Base.COUNT + missing;
    }

    public int compareTo(Shape o) { return 0; }
}
`

const baseSrc = `package geo;

public abstract class Base {
    static int COUNT;
}
`

func parse(t *testing.T, path, src string) *extractor.SourceUnit {
	t.Helper()
	ext, err := extractor.NewExtractor("java")
	require.NoError(t, err)
	unit, err := ext.ExtractFromSource(context.Background(), path, []byte(src))
	require.NoError(t, err)
	return unit
}

func collect(units []*ast.Node, typ ast.NodeType) []string {
	var out []string
	for _, u := range units {
		ast.Walk(u, func(n *ast.Node) bool {
			if n.Type == typ {
				out = append(out, ast.Format(n))
			}
			return true
		})
	}
	return out
}

func TestRun_EndToEnd(t *testing.T) {
	sources := []*extractor.SourceUnit{
		parse(t, "geo/Shape.java", shapeSrc),
		parse(t, "geo/Base.java", baseSrc),
	}
	res, err := RunSources(sources, Options{})
	require.NoError(t, err)

	t.Run("Types", func(t *testing.T) {
		var names []string
		for _, ti := range res.TypeInfos {
			names = append(names, ti.CanonicalName.ToDottedString())
		}
		assert.Equal(t, []string{"geo.Shape", "geo.Base"}, names)
		shape := res.TypeInfos[0]
		assert.Equal(t, "geo.Base", shape.SuperType.ToDottedString())
		require.Len(t, shape.Interfaces, 1)
		assert.Equal(t, "java.lang.Comparable", shape.Interfaces[0].ToDottedString())
	})

	t.Run("Names are rewritten", func(t *testing.T) {
		assert.Contains(t, collect(res.Units, ast.Local), "(Local n =n)")
		assert.Contains(t, collect(res.Units, ast.FreeField), "(FreeField SIDES =geo.Shape.SIDES)")
		assert.Contains(t, collect(res.Units, ast.New), "(New <> (ClassType ArrayList =java.util.ArrayList))")
		assert.Equal(t, []string{"(AmbiguousName:expression missing)"}, collect(res.Units, ast.AmbiguousName))
		assert.Positive(t, res.Rewritten[ast.ClassType])
		assert.Equal(t, 1, res.Failed)
	})

	t.Run("Diagnostics", func(t *testing.T) {
		require.Len(t, res.Diagnostics, 1)
		assert.Equal(t, diag.CategoryUnresolved, res.Diagnostics[0].Category)
		assert.Equal(t, "geo/Shape.java", res.Diagnostics[0].Pos.File)
		assert.Equal(t, map[diag.Category]int{diag.CategoryUnresolved: 1}, res.DiagnosticCounts())
	})

	t.Run("Input tree structure is preserved", func(t *testing.T) {
		assert.NotEmpty(t, collect([]*ast.Node{sources[0].Root}, ast.AmbiguousName))
		assert.Empty(t, collect([]*ast.Node{sources[0].Root}, ast.Local))
	})

	for _, stage := range []string{"declare", "scoping", "disambiguation"} {
		assert.Contains(t, res.Timings, stage)
	}
}

func TestRun_UnresolvedClauseReportedOnce(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		written string
	}{
		{"superclass", "package p;\nclass B extends A.X {}\n", "A.X"},
		{"interface", "package p;\nclass B implements Missing {}\n", "Missing"},
		{"bound", "package p;\nclass B<T extends Missing> {}\n", "Missing"},
		{"anonymous base", "package p;\nclass B { Object o = new Missing() {}; }\n", "Missing"},
		{"type argument", "package p;\nclass B implements Comparable<Missing> {}\n", "Missing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := RunSources([]*extractor.SourceUnit{parse(t, "p/B.java", tt.src)}, Options{})
			require.NoError(t, err)
			require.Len(t, res.Diagnostics, 1, "%v", res.Diagnostics)
			assert.Equal(t, diag.CategoryUnresolved, res.Diagnostics[0].Category)
			assert.Contains(t, res.Diagnostics[0].Message, tt.written)
		})
	}
}

func TestBatchDigest_OrderIndependent(t *testing.T) {
	a := &extractor.SourceUnit{Filepath: "a.java", Digest: 1}
	b := &extractor.SourceUnit{Filepath: "b.java", Digest: 2}
	assert.Equal(t, BatchDigest([]*extractor.SourceUnit{a, b}), BatchDigest([]*extractor.SourceUnit{b, a}))

	changed := &extractor.SourceUnit{Filepath: "b.java", Digest: 3}
	assert.NotEqual(t, BatchDigest([]*extractor.SourceUnit{a, b}), BatchDigest([]*extractor.SourceUnit{a, changed}))
}

func TestProjectSync_Run(t *testing.T) {
	root := t.TempDir()
	write := func(rel, src string) {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	}
	write("geo/Shape.java", shapeSrc)
	write("geo/Base.java", baseSrc)

	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	cfg := config.Default()
	cfg.Project.Root = root
	cfg.Storage.KeepRuns = 1
	sync := NewProjectSync(cfg, store)
	ctx := context.Background()

	first, err := sync.Run(ctx, false)
	require.NoError(t, err)
	require.False(t, first.Unchanged)
	assert.Equal(t, 2, first.Run.Units)
	assert.Equal(t, 2, first.Run.Types)
	assert.Len(t, first.Graph.GetDependents("/geo/Base"), 1)
	assert.Equal(t, []string{"geo.Base", "geo.Shape"}, first.Impact.Added)

	types, err := store.LoadTypes(ctx, first.Run.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, types)

	t.Run("Unchanged tree is not resolved again", func(t *testing.T) {
		again, err := sync.Run(ctx, false)
		require.NoError(t, err)
		assert.True(t, again.Unchanged)
		assert.Equal(t, first.Run.ID, again.Run.ID)
	})

	t.Run("Force and changes produce a new run", func(t *testing.T) {
		forced, err := sync.Run(ctx, true)
		require.NoError(t, err)
		assert.False(t, forced.Unchanged)
		assert.NotEqual(t, first.Run.ID, forced.Run.ID)
		assert.True(t, forced.Impact.Empty())

		write("geo/Circle.java", "package geo;\nclass Circle extends Shape {}\n")
		changed, err := sync.Run(ctx, false)
		require.NoError(t, err)
		assert.False(t, changed.Unchanged)
		assert.Equal(t, 3, changed.Run.Units)
		assert.Equal(t, []string{"geo.Circle"}, changed.Impact.Added)
		assert.Empty(t, changed.Impact.Changed)

		// keep_runs: 1
		_, err = store.GetRun(ctx, first.Run.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}
