package tree

import "strconv"

// Visit describes one group reached while walking a tree.
type Visit struct {
	// Path addresses the group, e.g. "Orders" or "Orders[0].Items".
	Path  string
	Depth int
	Tree  Tree
}

// Walk calls fn for t and then, depth-first in display order, for every
// nested child tree. Returning false from fn skips that tree's children.
func Walk(t Tree, fn func(v Visit) bool) {
	walk(t, t.Title, 0, fn)
}

func walk(t Tree, path string, depth int, fn func(v Visit) bool) {
	if !fn(Visit{Path: path, Depth: depth, Tree: t}) {
		return
	}
	for i, r := range t.Group {
		if r.Kids == nil {
			continue
		}
		walk(*r.Kids, path+"["+strconv.Itoa(i)+"]."+r.Kids.Title, depth+1, fn)
	}
}

// Stats holds size figures for a whole tree.
type Stats struct {
	Groups  int
	Records int
	// Depth is the number of nested levels below the root group.
	Depth int
}

// Measure counts groups, records and nesting depth of t.
func Measure(t Tree) Stats {
	var s Stats
	Walk(t, func(v Visit) bool {
		s.Groups++
		s.Records += len(v.Tree.Group)
		if v.Depth > s.Depth {
			s.Depth = v.Depth
		}
		return true
	})
	return s
}
