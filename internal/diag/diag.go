package diag

import (
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"
)

// Category groups diagnostics by the kind of problem found in the input.
type Category string

const (
	CategoryDuplicate        Category = "duplicate"
	CategoryUnresolved       Category = "unresolved"
	CategoryAmbiguous        Category = "ambiguous"
	CategoryCycle            Category = "cycle"
	CategoryCollision        Category = "collision"
	CategoryMisplacedDiamond Category = "misplaced_diamond"
)

// Position is a source location. The zero value means "no position".
type Position struct {
	File   string `json:"file,omitempty"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

func (p Position) IsValid() bool {
	return p.Line > 0
}

func (p Position) String() string {
	if !p.IsValid() {
		if p.File != "" {
			return p.File
		}
		return "-"
	}
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// Diagnostic is one non-fatal problem found in the input program.
type Diagnostic struct {
	Pos      Position `json:"pos"`
	Category Category `json:"category"`
	Message  string   `json:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Pos, d.Category, d.Message)
}

// Sink receives diagnostics.
type Sink interface {
	Report(d Diagnostic)
}

// Reportf formats and reports a diagnostic. A nil sink drops it.
func Reportf(s Sink, pos Position, cat Category, format string, args ...interface{}) {
	if s == nil {
		return
	}
	s.Report(Diagnostic{Pos: pos, Category: cat, Message: fmt.Sprintf(format, args...)})
}

// Collector records diagnostics in arrival order and logs each one.
type Collector struct {
	Items  []Diagnostic
	logger *log.Entry
}

func NewCollector(logger *log.Entry) *Collector {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Collector{logger: logger}
}

func (c *Collector) Report(d Diagnostic) {
	c.Items = append(c.Items, d)
	c.logger.WithFields(log.Fields{
		"category": d.Category,
		"pos":      d.Pos.String(),
	}).Warn(d.Message)
}

// ByCategory returns the diagnostics of one category.
func (c *Collector) ByCategory(cat Category) []Diagnostic {
	var out []Diagnostic
	for _, d := range c.Items {
		if d.Category == cat {
			out = append(out, d)
		}
	}
	return out
}

// Counts returns the number of diagnostics per category.
func (c *Collector) Counts() map[Category]int {
	counts := make(map[Category]int)
	for _, d := range c.Items {
		counts[d.Category]++
	}
	return counts
}

// Sorted returns the diagnostics ordered by file, line and column.
func (c *Collector) Sorted() []Diagnostic {
	out := append([]Diagnostic(nil), c.Items...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Pos, out[j].Pos
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
	return out
}
