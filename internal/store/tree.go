package store

// Links maps a comment id to its parent id (nil for top-level comments) for one post.
type Links map[uint]*uint

// Subtree returns root and every comment below it, parents before children. Each id is
// returned once even if the links contain a cycle.
func (l Links) Subtree(root uint) []uint {
	children := make(map[uint][]uint, len(l))
	for id, parent := range l {
		if parent != nil {
			children[*parent] = append(children[*parent], id)
		}
	}

	seen := map[uint]bool{root: true}
	out := []uint{root}
	for i := 0; i < len(out); i++ {
		for _, child := range children[out[i]] {
			if !seen[child] {
				seen[child] = true
				out = append(out, child)
			}
		}
	}
	return out
}

// IsDescendant reports whether id lies strictly below ancestor. A cycle already present in
// the links ends the walk instead of looping.
func (l Links) IsDescendant(id, ancestor uint) bool {
	seen := map[uint]bool{id: true}
	for cur := l[id]; cur != nil; cur = l[*cur] {
		if *cur == ancestor {
			return true
		}
		if seen[*cur] {
			return false
		}
		seen[*cur] = true
	}
	return false
}
