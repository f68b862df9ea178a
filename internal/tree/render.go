package tree

import (
	"fmt"
	"io"
	"strings"
)

// Render writes the tree as an indented outline. Each group lists its
// connections before its child groups.
func (t *Tree) Render(w io.Writer) error {
	var err error
	t.Visit(func(depth int, g *GroupNode) {
		if err != nil {
			return
		}
		indent := strings.Repeat("  ", depth)
		if _, err = fmt.Fprintf(w, "%s- Group: %s (ID: %s)\n", indent, g.Name, g.Identifier); err != nil {
			return
		}
		for _, c := range g.Connections {
			if _, err = fmt.Fprintf(w, "%s  * Connection: %s (ID: %s)\n", indent, c.Name, c.Identifier); err != nil {
				return
			}
		}
	})
	return err
}
