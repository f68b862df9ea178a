package tree

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bcnelson/guacamole-csv-importer/internal/domain"
)

// Build constructs a tree from unordered group and connection listings.
//
// Records whose parent has not been materialized yet are requeued at the
// tail. A full pass over the queue that places nothing means the remaining
// parents can never resolve, and Build fails with ErrMalformedHierarchy.
// Records with an empty parent identifier are placed under the root, and a
// listed root group is ignored.
func Build(groups []domain.GroupRecord, connections []domain.ConnectionRecord) (*Tree, error) {
	t := New()

	pending := append([]domain.GroupRecord(nil), groups...)
	stalled := 0
	for len(pending) > 0 {
		rec := pending[0]
		pending = pending[1:]
		if rec.Identifier == domain.RootIdentifier {
			continue
		}

		parent, ok := t.FindGroupByID(parentOf(rec.ParentIdentifier))
		if !ok {
			pending = append(pending, rec)
			stalled++
			if stalled >= len(pending) {
				return nil, unresolved("group", groupIDs(pending))
			}
			continue
		}
		if _, err := t.AppendGroup(parent, rec); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrMalformedHierarchy, err)
		}
		stalled = 0
	}

	// Every group is placed, so a connection parent resolves on first sight
	// or never; the queue below still follows the same bounded discipline.
	queue := append([]domain.ConnectionRecord(nil), connections...)
	stalled = 0
	for len(queue) > 0 {
		rec := queue[0]
		queue = queue[1:]

		parent, ok := t.FindGroupByID(parentOf(rec.ParentIdentifier))
		if !ok {
			queue = append(queue, rec)
			stalled++
			if stalled >= len(queue) {
				return nil, unresolved("connection", connectionIDs(queue))
			}
			continue
		}
		if _, err := t.AppendConnection(parent, rec); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrMalformedHierarchy, err)
		}
		stalled = 0
	}

	return t, nil
}

func parentOf(id string) string {
	if id == "" {
		return domain.RootIdentifier
	}
	return id
}

func unresolved(kind string, ids []string) error {
	sort.Strings(ids)
	return fmt.Errorf("%w: %d %s(s) with unresolvable parent: %s",
		domain.ErrMalformedHierarchy, len(ids), kind, strings.Join(ids, ", "))
}

func groupIDs(recs []domain.GroupRecord) []string {
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.Identifier
	}
	return ids
}

func connectionIDs(recs []domain.ConnectionRecord) []string {
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.Identifier
	}
	return ids
}
