package site

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// NodeKind distinguishes single-content leaves from cross-content aggregates.
type NodeKind string

const (
	KindLeaf      NodeKind = "leaf"
	KindAggregate NodeKind = "aggregate"
)

// NodeState is the per-pass render state machine.
type NodeState string

const (
	StateStale     NodeState = "stale"
	StateRendering NodeState = "rendering"
	StateFresh     NodeState = "fresh"
)

// Node is one unit in the dependency graph, addressed by a stable id
// ("post:<slug>", "page:<slug>", "index", "tags", "tag:<slug>", "feed").
type Node struct {
	ID         string
	Kind       NodeKind
	State      NodeState
	InputHash  string
	OutputHash string

	// Path is the output artifact path this node produces.
	Path string
}

// Graph is an arena-style registry of nodes indexed by id. Aggregate→leaf
// references are id lookups, never pointers.
type Graph struct {
	nodes map[string]*Node
}

func NewGraph() *Graph {
	return &Graph{nodes: make(map[string]*Node)}
}

// Add registers a node, initially Stale.
func (g *Graph) Add(n *Node) *Node {
	n.State = StateStale
	g.nodes[n.ID] = n
	return n
}

// Get returns the node with the given id.
func (g *Graph) Get(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// IDs returns all node ids, sorted for deterministic iteration.
func (g *Graph) IDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Leaves returns all leaf node ids, sorted.
func (g *Graph) Leaves() []string {
	var ids []string
	for id, n := range g.nodes {
		if n.Kind == KindLeaf {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// hashInputs folds an ordered list of input components into one hex hash.
func hashInputs(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// joinHashes concatenates hashes with a separator, for aggregate inputs.
func joinHashes(hashes []string) string {
	return strings.Join(hashes, ",")
}
