package tree

import (
	"errors"
	"testing"

	"github.com/bcnelson/guacamole-csv-importer/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleGroups() []domain.GroupRecord {
	return []domain.GroupRecord{
		{Name: "Lab", Identifier: "1", ParentIdentifier: "ROOT", Type: domain.GroupTypeOrganizational},
		{Name: "RackA", Identifier: "2", ParentIdentifier: "1"},
		{Name: "Shelf", Identifier: "3", ParentIdentifier: "2"},
		{Name: "Office", Identifier: "4", ParentIdentifier: "ROOT", Type: domain.GroupTypeBalancing},
		{Name: "RackB", Identifier: "5", ParentIdentifier: "1"},
	}
}

func sampleConnections() []domain.ConnectionRecord {
	return []domain.ConnectionRecord{
		{Name: "Server1", Identifier: "10", ParentIdentifier: "3", Protocol: domain.ProtocolSSH},
		{Name: "PC1", Identifier: "11", ParentIdentifier: "4", Protocol: domain.ProtocolRDP},
		{Name: "Console", Identifier: "12", ParentIdentifier: "ROOT", Protocol: domain.ProtocolVNC},
	}
}

func edges(tr *Tree) map[string]string {
	out := make(map[string]string)
	tr.Visit(func(_ int, g *GroupNode) {
		path, _ := tr.FullPath(g)
		for _, c := range g.Groups {
			out[path+"/"+c.Name] = path
		}
		for _, c := range g.Connections {
			out[path+"#"+c.Name] = path
		}
	})
	return out
}

func TestBuildParentsFirst(t *testing.T) {
	tr, err := Build(sampleGroups(), sampleConnections())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"ROOT",
		"ROOT/Lab",
		"ROOT/Lab/RackA",
		"ROOT/Lab/RackA/Shelf",
		"ROOT/Lab/RackB",
		"ROOT/Office",
	}, tr.Paths())
	assert.Equal(t, 3, tr.ConnectionCount())

	shelf, ok := tr.GroupByPath("ROOT/Lab/RackA/Shelf")
	require.True(t, ok)
	assert.NotNil(t, shelf.ChildConnection("Server1"))

	office, ok := tr.GroupByPath("ROOT/Office")
	require.True(t, ok)
	assert.Equal(t, domain.GroupTypeBalancing, office.Type)
	assert.NotNil(t, tr.Root().ChildConnection("Console"))
}

func TestBuildIsOrderIndependent(t *testing.T) {
	want, err := Build(sampleGroups(), sampleConnections())
	require.NoError(t, err)

	groups := sampleGroups()
	conns := sampleConnections()
	permutations := [][]int{
		{4, 3, 2, 1, 0},
		{2, 1, 0, 3, 4},
		{2, 4, 0, 3, 1},
		{1, 2, 3, 4, 0},
	}
	for _, perm := range permutations {
		shuffled := make([]domain.GroupRecord, len(perm))
		for i, j := range perm {
			shuffled[i] = groups[j]
		}
		reversed := []domain.ConnectionRecord{conns[2], conns[1], conns[0]}

		got, err := Build(shuffled, reversed)
		require.NoError(t, err, "permutation %v", perm)
		assert.Equal(t, want.Paths(), got.Paths(), "permutation %v", perm)
		assert.Equal(t, edges(want), edges(got), "permutation %v", perm)
	}
}

func TestBuildEmptyParentMeansRoot(t *testing.T) {
	tr, err := Build([]domain.GroupRecord{
		{Name: "Lab", Identifier: "1"},
		{Name: "ROOT", Identifier: "ROOT"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"ROOT", "ROOT/Lab"}, tr.Paths())
}

func TestBuildFailsOnUnresolvableParent(t *testing.T) {
	groups := []domain.GroupRecord{
		{Name: "Lab", Identifier: "1", ParentIdentifier: "ROOT"},
		{Name: "Lost", Identifier: "2", ParentIdentifier: "404"},
	}
	_, err := Build(groups, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMalformedHierarchy))
	assert.Contains(t, err.Error(), "2")
}

func TestBuildFailsOnCycle(t *testing.T) {
	groups := []domain.GroupRecord{
		{Name: "A", Identifier: "a", ParentIdentifier: "b"},
		{Name: "B", Identifier: "b", ParentIdentifier: "a"},
	}
	_, err := Build(groups, nil)
	assert.True(t, errors.Is(err, domain.ErrMalformedHierarchy))
}

func TestBuildFailsOnOrphanConnection(t *testing.T) {
	_, err := Build(sampleGroups(), []domain.ConnectionRecord{
		{Name: "Stray", Identifier: "99", ParentIdentifier: "77"},
	})
	assert.True(t, errors.Is(err, domain.ErrMalformedHierarchy))
}

func TestBuildFailsOnDuplicateSiblings(t *testing.T) {
	groups := []domain.GroupRecord{
		{Name: "Lab", Identifier: "1", ParentIdentifier: "ROOT"},
		{Name: "Lab", Identifier: "2", ParentIdentifier: "ROOT"},
	}
	_, err := Build(groups, nil)
	assert.True(t, errors.Is(err, domain.ErrMalformedHierarchy))
}
