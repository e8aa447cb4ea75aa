package services

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/drivegate/internal/common"
	"github.com/dmitrijs2005/drivegate/internal/server/models"
)

// ResolvePaths maps every node below rootID to its path relative to the
// root: the root is "" and a child is its parent's path + "/" + name. The
// input may be in any order. A node whose parent is missing, is not a
// folder, or lies on a cycle fails the whole resolution.
func ResolvePaths(rootID string, nodes []models.FsObject) (map[string]string, error) {
	paths := make(map[string]string, len(nodes)+1)
	paths[rootID] = ""
	folders := map[string]bool{rootID: true}

	pending := make([]*models.FsObject, 0, len(nodes))
	seen := map[string]bool{rootID: true}
	for i := range nodes {
		n := &nodes[i]
		if seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		pending = append(pending, n)
	}

	for len(pending) > 0 {
		rest := pending[:0:0]
		for _, n := range pending {
			if n.ParentID == nil || !folders[*n.ParentID] {
				rest = append(rest, n)
				continue
			}
			paths[n.ID] = paths[*n.ParentID] + "/" + entryName(n.Name)
			if n.IsFolder() {
				folders[n.ID] = true
			}
		}
		if len(rest) == len(pending) {
			return nil, fmt.Errorf("%d node(s) under %s have no resolvable parent, first %s: %w",
				len(rest), rootID, rest[0].ID, common.ErrUnresolvedHierarchy)
		}
		pending = rest
	}

	return paths, nil
}

// entryName keeps a node name from escaping its folder inside an archive.
func entryName(name string) string {
	name = strings.NewReplacer("/", "_", "\\", "_").Replace(name)
	switch name {
	case "", ".", "..":
		return "_" + name
	}
	return name
}
