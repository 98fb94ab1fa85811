package cluster

// unionFind is a disjoint-set forest with path compression and union by rank.
type unionFind struct {
	parent map[int64]int64
	rank   map[int64]int
}

func newUnionFind() *unionFind {
	return &unionFind{
		parent: make(map[int64]int64),
		rank:   make(map[int64]int),
	}
}

func (u *unionFind) Find(id int64) int64 {
	root, ok := u.parent[id]
	if !ok {
		u.parent[id] = id
		u.rank[id] = 0
		return id
	}
	if root != id {
		u.parent[id] = u.Find(root)
	}
	return u.parent[id]
}

func (u *unionFind) Union(a, b int64) {
	rootA := u.Find(a)
	rootB := u.Find(b)
	if rootA == rootB {
		return
	}

	switch {
	case u.rank[rootA] < u.rank[rootB]:
		u.parent[rootA] = rootB
	case u.rank[rootA] > u.rank[rootB]:
		u.parent[rootB] = rootA
	default:
		u.parent[rootB] = rootA
		u.rank[rootA]++
	}
}

// Components returns every component as a member list keyed by its root.
func (u *unionFind) Components() map[int64][]int64 {
	components := make(map[int64][]int64)
	for id := range u.parent {
		root := u.Find(id)
		components[root] = append(components[root], id)
	}
	return components
}
