package mutation

import "fmt"

// NodeID addresses a genotype node in an Arena.
type NodeID int32

// Root is the empty founder genotype present in every Arena.
const Root NodeID = 0

const noParent NodeID = -1

type node struct {
	parent    NodeID
	mutations []Mutation
	depth     int32
	free      bool
}

// Arena stores genotype nodes by index. Each node records its parent and the
// mutations that arose at that generation; a carrier's full genotype is the
// union along its ancestor chain. Daughters share their parent's node rather
// than copying its mutation list.
type Arena struct {
	nodes []node
	free  []NodeID
}

// NewArena returns an arena containing only Root.
func NewArena() *Arena {
	return &Arena{nodes: []node{{parent: noParent}}}
}

// Child records a new generation below parent carrying muts. With no
// mutations the parent node is returned unchanged.
func (a *Arena) Child(parent NodeID, muts ...Mutation) NodeID {
	a.mustLive(parent)
	if len(muts) == 0 {
		return parent
	}
	n := node{
		parent:    parent,
		mutations: append([]Mutation(nil), muts...),
		depth:     a.nodes[parent].depth + 1,
	}
	if k := len(a.free); k > 0 {
		id := a.free[k-1]
		a.free = a.free[:k-1]
		a.nodes[id] = n
		return id
	}
	a.nodes = append(a.nodes, n)
	return NodeID(len(a.nodes) - 1)
}

// Parent returns the parent of id; ok is false for Root.
func (a *Arena) Parent(id NodeID) (NodeID, bool) {
	a.mustLive(id)
	p := a.nodes[id].parent
	return p, p != noParent
}

// Depth is the number of mutation-bearing generations above Root.
func (a *Arena) Depth(id NodeID) int {
	a.mustLive(id)
	return int(a.nodes[id].depth)
}

// Original returns the mutations that arose at id itself. The slice is
// shared and must not be modified.
func (a *Arena) Original(id NodeID) []Mutation {
	a.mustLive(id)
	return a.nodes[id].mutations
}

// Accumulated returns every mutation carried by id, oldest generation first.
func (a *Arena) Accumulated(id NodeID) []Mutation {
	a.mustLive(id)
	var chain []NodeID
	total := 0
	for cur := id; cur != noParent; cur = a.nodes[cur].parent {
		chain = append(chain, cur)
		total += len(a.nodes[cur].mutations)
	}
	out := make([]Mutation, 0, total)
	for i := len(chain) - 1; i >= 0; i-- {
		out = append(out, a.nodes[chain[i]].mutations...)
	}
	return out
}

// Carries reports whether id's accumulated genotype contains mutation m.
func (a *Arena) Carries(id NodeID, m ID) bool {
	a.mustLive(id)
	for cur := id; cur != noParent; cur = a.nodes[cur].parent {
		for _, x := range a.nodes[cur].mutations {
			if x.ID == m {
				return true
			}
		}
	}
	return false
}

// FitnessFactor is the product of (1 + s) over id's accumulated mutations.
func (a *Arena) FitnessFactor(id NodeID) float64 {
	a.mustLive(id)
	f := 1.0
	for cur := id; cur != noParent; cur = a.nodes[cur].parent {
		for _, m := range a.nodes[cur].mutations {
			f *= m.FitnessFactor()
		}
	}
	return f
}

// Len is the number of live nodes, Root included.
func (a *Arena) Len() int {
	return len(a.nodes) - len(a.free)
}

// Release frees every node not on the ancestor chain of a live genotype.
// Freed slots are reused by later Child calls. It returns the number of
// nodes freed. Root is never freed.
func (a *Arena) Release(live []NodeID) int {
	keep := make([]bool, len(a.nodes))
	keep[Root] = true
	for _, id := range live {
		a.mustLive(id)
		for cur := id; cur != noParent && !keep[cur]; cur = a.nodes[cur].parent {
			keep[cur] = true
		}
	}
	freed := 0
	for i := range a.nodes {
		if keep[i] || a.nodes[i].free {
			continue
		}
		a.nodes[i] = node{parent: noParent, free: true}
		a.free = append(a.free, NodeID(i))
		freed++
	}
	return freed
}

func (a *Arena) mustLive(id NodeID) {
	if id < 0 || int(id) >= len(a.nodes) || a.nodes[id].free {
		panic(fmt.Sprintf("mutation: genotype node %d is not live", id))
	}
}
