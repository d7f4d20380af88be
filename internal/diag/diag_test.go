package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPosition_String(t *testing.T) {
	assert.Equal(t, "A.java:3:7", Position{File: "A.java", Line: 3, Column: 7}.String())
	assert.Equal(t, "3:7", Position{Line: 3, Column: 7}.String())
	assert.False(t, Position{}.IsValid())
}

func TestCollector(t *testing.T) {
	c := NewCollector(nil)
	Reportf(c, Position{File: "B.java", Line: 1, Column: 1}, CategoryCycle, "cycle through %s", "p.B")
	Reportf(c, Position{File: "A.java", Line: 9, Column: 2}, CategoryUnresolved, "cannot resolve %s", "x")
	Reportf(c, Position{File: "A.java", Line: 2, Column: 5}, CategoryUnresolved, "cannot resolve %s", "y")
	Reportf(nil, Position{}, CategoryDuplicate, "dropped")

	require.Len(t, c.Items, 3)
	assert.Equal(t, "cycle through p.B", c.Items[0].Message)
	assert.Len(t, c.ByCategory(CategoryUnresolved), 2)
	assert.Equal(t, map[Category]int{CategoryCycle: 1, CategoryUnresolved: 2}, c.Counts())

	var order []string
	for _, d := range c.Sorted() {
		order = append(order, d.Pos.String())
	}
	assert.Equal(t, []string{"A.java:2:5", "A.java:9:2", "B.java:1:1"}, order)
	assert.Equal(t, "A.java:2:5: unresolved: cannot resolve y", c.Sorted()[0].String())
}
