// Package index writes type hierarchies to portable JSON snapshots.
package index

import (
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"

	"jresolve/internal/graph"
	"jresolve/internal/storage"
)

// Snapshot is the JSON document of one run's hierarchy.
type Snapshot struct {
	Run        string             `json:"run"`
	Root       string             `json:"root"`
	Types      []*graph.Symbol    `json:"types"`
	Edges      []graph.Edge       `json:"edges"`
	Unresolved []graph.Unresolved `json:"unresolved,omitempty"`
}

// NewSnapshot captures the edges and unresolved entries of g next to types,
// as listed by storage.
func NewSnapshot(run *storage.Run, g *graph.Graph, types []*graph.Symbol) *Snapshot {
	s := &Snapshot{Types: types, Edges: g.Edges, Unresolved: g.Unresolved}
	if run != nil {
		s.Run = run.ID
		s.Root = run.Root
	}
	return s
}

// Graph rebuilds the hierarchy held by the snapshot.
func (s *Snapshot) Graph() *graph.Graph {
	g := graph.NewGraph()
	for _, t := range s.Types {
		g.Nodes[t.ID] = &graph.Node{Symbol: t}
	}
	g.Edges = append(g.Edges, s.Edges...)
	g.Unresolved = s.Unresolved

	// Important: Rebuild internal indices that aren't serialized
	g.RebuildIndices()
	return g
}

func (s *Snapshot) Encode(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return errors.Wrap(encoder.Encode(s), "failed to encode snapshot")
}

// Decode reads a snapshot written by Encode.
func Decode(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, errors.Wrap(err, "failed to decode snapshot")
	}
	return &s, nil
}

// SaveFile persists the snapshot to a JSON file.
func (s *Snapshot) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create snapshot file")
	}
	defer f.Close()
	return s.Encode(f)
}

// LoadFile loads a snapshot from a JSON file.
func LoadFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open snapshot file")
	}
	defer f.Close()
	return Decode(f)
}
