package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneIsDeep(t *testing.T) {
	g := NewGraph()
	g.Journeys = append(g.Journeys, Journey{
		ID: "a", Name: "A", Description: "d",
		Steps: []Step{{ID: "s1", Label: "S1", Category: CategoryDisplay,
			OutgoingIDs: []string{"s2"}, EdgeLabels: []string{"go"}}},
	})

	c := g.Clone()
	c.Journeys[0].Name = "changed"
	c.Journeys[0].Steps[0].OutgoingIDs[0] = "sX"
	c.Journeys[0].Steps[0].EdgeLabels[0] = "changed"

	assert.Equal(t, "A", g.Journeys[0].Name)
	assert.Equal(t, "s2", g.Journeys[0].Steps[0].OutgoingIDs[0])
	assert.Equal(t, "go", g.Journeys[0].Steps[0].EdgeLabels[0])
}

func TestCloneNil(t *testing.T) {
	var g *Graph
	c := g.Clone()
	require.NotNil(t, c)
	assert.Equal(t, FormatVersion, c.FormatVersion)
	assert.NotNil(t, c.Journeys)
}

func TestStepByEntityDocumentOrder(t *testing.T) {
	g := NewGraph()
	g.Journeys = append(g.Journeys,
		Journey{ID: "first", Name: "F", Description: "d", Steps: []Step{
			{ID: "s1", Label: "Same", SourceEntity: "SameView", Category: CategoryDisplay},
		}},
		Journey{ID: "second", Name: "S", Description: "d", Steps: []Step{
			{ID: "s2", Label: "Same", SourceEntity: "SameView", Category: CategoryDisplay},
		}},
	)

	j, s := g.StepByEntity("SameView")
	require.NotNil(t, s)
	assert.Equal(t, "first", j.ID)
	assert.Equal(t, "s1", s.ID)

	// Label matches too.
	j, s = g.StepByEntity("Same")
	require.NotNil(t, s)
	assert.Equal(t, "s1", s.ID)

	j, s = g.StepByEntity("Absent")
	assert.Nil(t, j)
	assert.Nil(t, s)
}

func TestCategoryValid(t *testing.T) {
	for _, c := range Categories {
		assert.True(t, c.Valid())
	}
	assert.False(t, Category("mystery").Valid())
	assert.False(t, Category("").Valid())
}

func TestScanDiffHelpers(t *testing.T) {
	var d ScanDiff
	assert.True(t, d.Empty())

	d.Added = []TrackedFile{{Path: "a"}}
	d.Modified = []TrackedFile{{Path: "b"}}
	assert.False(t, d.Empty())
	files := d.Changed()
	require.Len(t, files, 2)
	assert.Equal(t, "a", files[0].Path)
	assert.Equal(t, "b", files[1].Path)
}
