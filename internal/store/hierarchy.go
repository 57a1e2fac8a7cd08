package store

import (
	"strings"

	"github.com/dmolnar/mailstate/internal/models"
)

// recompute rebuilds every derived folder field from the raw table. It never
// fails: folder fetches arrive out of order, so missing ancestors degrade to
// best-effort values instead of erroring.
func (s *FolderStore) recompute() {
	children := make(map[string][]string, len(s.folders))
	for _, id := range s.order {
		f := s.folders[id]
		children[f.ParentID] = append(children[f.ParentID], id)
	}

	depths := make(map[string]int, len(s.folders))
	for _, id := range s.order {
		f := s.folders[id]
		f.Children = children[id]
		f.Depth = s.subtreeHeight(id, children, depths, make(map[string]bool))
	}

	for _, id := range s.order {
		f := s.folders[id]
		f.Level, f.Path, f.TopAncestorID = s.ancestry(f)
	}
}

// subtreeHeight is the height of the folder's subtree: 1 for a leaf, one more
// than the tallest child otherwise. Memoized per folder; the onStack set
// breaks parent-id cycles that malformed payloads could introduce.
func (s *FolderStore) subtreeHeight(id string, children map[string][]string, memo map[string]int, onStack map[string]bool) int {
	if d, ok := memo[id]; ok {
		return d
	}
	if onStack[id] {
		return 1
	}
	onStack[id] = true
	height := 1
	for _, childID := range children[id] {
		if h := s.subtreeHeight(childID, children, memo, onStack) + 1; h > height {
			height = h
		}
	}
	delete(onStack, id)
	memo[id] = height
	return height
}

// ancestry walks parent pointers upward until no parent resolves in the
// store. It returns the nesting level (1 when the immediate parent is
// absent), the slash-separated name chain from the topmost resolvable
// ancestor down to the folder, and the top ancestor id. For a folder whose
// own parent is unresolved the top ancestor is its raw parent reference
// (normally the root sentinel).
func (s *FolderStore) ancestry(f *models.Folder) (level int, path string, topAncestorID string) {
	segments := []string{f.Name}
	level = 1
	cur := f
	seen := map[string]bool{f.ID: true}
	for {
		parent, ok := s.folders[cur.ParentID]
		if !ok || seen[parent.ID] {
			break
		}
		seen[parent.ID] = true
		segments = append([]string{parent.Name}, segments...)
		cur = parent
		level++
	}
	if level > 1 {
		topAncestorID = cur.ID
	} else {
		topAncestorID = f.ParentID
	}
	return level, strings.Join(segments, "/"), topAncestorID
}
