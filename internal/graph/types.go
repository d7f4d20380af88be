package graph

type RelationKind string

const (
	RelationExtends    RelationKind = "extends"
	RelationImplements RelationKind = "implements"
	RelationEncloses   RelationKind = "encloses"
)

type UnresolvedReason string

const (
	ReasonNoCandidate   UnresolvedReason = "no_candidate"
	ReasonAmbiguous     UnresolvedReason = "ambiguous"
	ReasonCycle         UnresolvedReason = "cycle"
	ReasonSourceMissing UnresolvedReason = "source_missing"
)

// Symbol is the graph-domain node payload: one resolved type.
type Symbol struct {
	ID        string `json:"id"` // internal name, e.g. /p/Outer$Inner
	Name      string `json:"name"`
	Package   string `json:"package"`
	Filepath  string `json:"filepath,omitempty"`
	Line      int    `json:"line,omitempty"`
	Kind      string `json:"kind"`
	Modifiers string `json:"modifiers,omitempty"`
	Stage     string `json:"stage,omitempty"`
	// External marks types that come from the ambient universe.
	External bool `json:"external,omitempty"`
}

// Unresolved records a name or type the hierarchy could not be completed for.
type Unresolved struct {
	Symbol string           `json:"symbol"`
	Reason UnresolvedReason `json:"reason"`
	Detail string           `json:"detail,omitempty"`
}
