package tree

import (
	"bytes"
	"errors"
	"testing"

	"github.com/bcnelson/guacamole-csv-importer/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTreeHasOnlyRoot(t *testing.T) {
	tr := New()

	root := tr.Root()
	assert.Equal(t, RootName, root.Name)
	assert.Equal(t, domain.RootIdentifier, root.Identifier)
	assert.True(t, root.IsRoot())
	assert.Equal(t, 1, tr.GroupCount())
	assert.Equal(t, []string{"ROOT"}, tr.Paths())

	g, ok := tr.GroupByPath("ROOT")
	require.True(t, ok)
	assert.Same(t, root, g)
}

func TestAppendGroupRegistersPath(t *testing.T) {
	tr := New()

	lab, err := tr.AppendGroup(tr.Root(), domain.GroupRecord{Name: "Lab", Identifier: "1"})
	require.NoError(t, err)
	rack, err := tr.AppendGroup(lab, domain.GroupRecord{Name: "RackA", Identifier: "2"})
	require.NoError(t, err)

	assert.Equal(t, domain.GroupTypeOrganizational, rack.Type)
	require.NotNil(t, rack.ParentIdentifier)
	assert.Equal(t, "1", *rack.ParentIdentifier)

	path, err := tr.FullPath(rack)
	require.NoError(t, err)
	assert.Equal(t, "ROOT/Lab/RackA", path)

	got, ok := tr.GroupByPath("ROOT/Lab/RackA")
	require.True(t, ok)
	assert.Same(t, rack, got)

	got, ok = tr.FindGroupByID("2")
	require.True(t, ok)
	assert.Same(t, rack, got)

	assert.Same(t, lab, tr.Root().ChildGroup("Lab"))
	assert.Nil(t, tr.Root().ChildGroup("lab"))
}

func TestAppendGroupRejectsDuplicates(t *testing.T) {
	tr := New()
	_, err := tr.AppendGroup(tr.Root(), domain.GroupRecord{Name: "Lab", Identifier: "1"})
	require.NoError(t, err)

	_, err = tr.AppendGroup(tr.Root(), domain.GroupRecord{Name: "Lab", Identifier: "2"})
	assert.True(t, errors.Is(err, domain.ErrAlreadyExists))

	_, err = tr.AppendGroup(tr.Root(), domain.GroupRecord{Name: "Other", Identifier: "1"})
	assert.True(t, errors.Is(err, domain.ErrAlreadyExists))

	detached := &GroupNode{Name: "x", Identifier: "nope"}
	_, err = tr.AppendGroup(detached, domain.GroupRecord{Name: "y", Identifier: "3"})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestAppendConnection(t *testing.T) {
	tr := New()
	lab, err := tr.AppendGroup(tr.Root(), domain.GroupRecord{Name: "Lab", Identifier: "1"})
	require.NoError(t, err)

	conn, err := tr.AppendConnection(lab, domain.ConnectionRecord{
		Name:       "Server1",
		Identifier: "10",
		Protocol:   domain.ProtocolSSH,
		Attributes: map[string]string{"max-connections": "15"},
	})
	require.NoError(t, err)
	assert.Equal(t, "1", conn.ParentIdentifier)
	assert.Same(t, conn, lab.ChildConnection("Server1"))
	assert.Nil(t, lab.ChildConnection("server1"))
	assert.Equal(t, 1, tr.ConnectionCount())

	_, err = tr.AppendConnection(lab, domain.ConnectionRecord{Name: "Server1", Identifier: "11"})
	assert.True(t, errors.Is(err, domain.ErrAlreadyExists))
}

func TestGroupByPathFallsBackToWalk(t *testing.T) {
	tr := New()
	lab, err := tr.AppendGroup(tr.Root(), domain.GroupRecord{Name: "Lab", Identifier: "1"})
	require.NoError(t, err)

	// Drop the cached entry; the parent links must still resolve it.
	delete(tr.byPath, "ROOT/Lab")

	got, ok := tr.GroupByPath("ROOT/Lab")
	require.True(t, ok)
	assert.Same(t, lab, got)

	_, ok = tr.GroupByPath("ROOT/Missing")
	assert.False(t, ok)
	_, ok = tr.GroupByPath("Lab")
	assert.False(t, ok)
}

func TestFullPathDetectsBrokenLinks(t *testing.T) {
	tr := New()
	missing := "ghost"
	orphan := &GroupNode{Name: "Orphan", Identifier: "9", ParentIdentifier: &missing}

	_, err := tr.FullPath(orphan)
	assert.True(t, errors.Is(err, domain.ErrMalformedHierarchy))

	a, b := "a", "b"
	ga := &GroupNode{Name: "A", Identifier: "a", ParentIdentifier: &b}
	gb := &GroupNode{Name: "B", Identifier: "b", ParentIdentifier: &a}
	tr.byID["a"], tr.byID["b"] = ga, gb

	_, err = tr.FullPath(ga)
	assert.True(t, errors.Is(err, domain.ErrMalformedHierarchy))
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		site string
		want string
	}{
		{"Lab/RackA", "ROOT/Lab/RackA"},
		{"ROOT/Lab/RackA", "ROOT/Lab/RackA"},
		{"/Lab/RackA/", "ROOT/Lab/RackA"},
		{"ROOT", "ROOT"},
		{"", "ROOT"},
		{"ROOTS/Lab", "ROOT/ROOTS/Lab"},
		{"root/Lab", "ROOT/root/Lab"},
		{"Office", "ROOT/Office"},
	}

	for _, tt := range tests {
		t.Run(tt.site, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePath(tt.site))
		})
	}
}

func TestVisitDepthFirst(t *testing.T) {
	tr := New()
	lab, _ := tr.AppendGroup(tr.Root(), domain.GroupRecord{Name: "Lab", Identifier: "1"})
	_, _ = tr.AppendGroup(lab, domain.GroupRecord{Name: "RackA", Identifier: "2"})
	_, _ = tr.AppendGroup(tr.Root(), domain.GroupRecord{Name: "Office", Identifier: "3"})

	var buf bytes.Buffer
	tr.Visit(func(depth int, g *GroupNode) {
		buf.WriteString(g.Name)
		buf.WriteByte(byte('0' + depth))
		buf.WriteByte(' ')
	})
	assert.Equal(t, "ROOT0 Lab1 RackA2 Office1 ", buf.String())
}
