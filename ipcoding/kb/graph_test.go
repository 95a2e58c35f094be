package kb

import (
	"testing"

	"github.com/CMSgov/ipcoding-app/ipcoding/testUtils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGraph(t *testing.T) {
	g := NewGraph([]Edge{
		{Keep: "B", Drop: "C", Source: "first"},
		{Keep: "A", Drop: "C"},
		{Keep: "A", Drop: "B"},
		{Keep: "B", Drop: "C", Source: "duplicate"},
	})

	assert.Equal(t, []string{"A", "B", "C"}, g.Nodes())
	assert.Equal(t, []string{"B", "C"}, g.Successors("A"))
	assert.Empty(t, g.Successors("C"))
	assert.Equal(t, 3, g.Len())

	e, ok := g.Edge("B", "C")
	assert.True(t, ok)
	assert.Equal(t, "first", e.Source)
	_, ok = g.Edge("C", "B")
	assert.False(t, ok)
}

func TestBuildGraph(t *testing.T) {
	kb, err := LoadFile(testUtils.ReferenceKB)
	require.NoError(t, err)

	g := BuildGraph(kb, []Edge{{Keep: "31653", Drop: "31652", Source: "static"}})

	// modifier allowed pairs are not hard bundles
	_, ok := g.Edge("31652", "31629")
	assert.False(t, ok)

	e, ok := g.Edge("31625", "31623")
	assert.True(t, ok)
	assert.Equal(t, "ncci_pairs", e.Source)

	e, ok = g.Edge("31653", "31629")
	assert.True(t, ok)
	assert.Equal(t, "EBUS-INCLUDES-TBNA", e.Source)

	_, ok = g.Edge("31653", "31652")
	assert.True(t, ok)
	assert.Equal(t, []string{"32560", "32601", "32609"}, g.Successors("32650"))
}
