// Package hierarchy provides the validated, immutable view of the distribution network.
package hierarchy

import (
	"sort"

	"github.com/vsinha/meio/pkg/domain/entities"
	"github.com/vsinha/meio/pkg/domain/services"
)

type edgeKey struct {
	parent entities.NodeCode
	child  entities.NodeCode
}

// Model is a static lookup of node identity, parent linkage, costs and lead times.
// It is safe for concurrent reads once loaded.
type Model struct {
	nodes     map[entities.NodeCode]*entities.Node
	codes     []entities.NodeCode // sorted
	children  map[entities.NodeCode][]entities.NodeCode
	leadTimes map[edgeKey]float64
	depth     map[entities.NodeCode]int
	byDepth   [][]entities.NodeCode
	roots     []entities.NodeCode
	maxDepth  int
}

// Load validates nodes and lead-time links and builds the model.
// Any violated rule aborts with a *entities.ConfigurationError.
func Load(nodes []entities.Node, links []entities.LeadTimeLink) (*Model, error) {
	validation := services.NewHierarchyValidator().ValidateHierarchy(nodes, links)
	if err := validation.FirstViolation(); err != nil {
		return nil, err
	}

	m := &Model{
		nodes:     make(map[entities.NodeCode]*entities.Node, len(nodes)),
		codes:     make([]entities.NodeCode, 0, len(nodes)),
		children:  make(map[entities.NodeCode][]entities.NodeCode),
		leadTimes: make(map[edgeKey]float64, len(links)),
		depth:     make(map[entities.NodeCode]int, len(nodes)),
	}

	for i := range nodes {
		node := nodes[i]
		m.nodes[node.Code] = &node
		m.codes = append(m.codes, node.Code)
	}
	sort.Slice(m.codes, func(i, j int) bool { return m.codes[i] < m.codes[j] })

	for _, code := range m.codes {
		node := m.nodes[code]
		if node.IsRoot() {
			m.roots = append(m.roots, code)
			continue
		}
		m.children[node.ParentCode] = append(m.children[node.ParentCode], code)
	}

	for _, link := range links {
		m.leadTimes[edgeKey{link.Source, link.Target}] = link.LeadTimeDays
	}

	m.computeDepths()

	return m, nil
}

// computeDepths assigns depth 0 to roots and walks down breadth first.
// The validator has already rejected cycles, so every node is reached exactly once.
func (m *Model) computeDepths() {
	queue := make([]entities.NodeCode, 0, len(m.codes))
	for _, root := range m.roots {
		m.depth[root] = 0
		queue = append(queue, root)
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		d := m.depth[current]
		if d > m.maxDepth {
			m.maxDepth = d
		}
		for _, child := range m.children[current] {
			m.depth[child] = d + 1
			queue = append(queue, child)
		}
	}

	m.byDepth = make([][]entities.NodeCode, m.maxDepth+1)
	for _, code := range m.codes {
		d := m.depth[code]
		m.byDepth[d] = append(m.byDepth[d], code)
	}
}

// Node returns the node with the given code
func (m *Model) Node(code entities.NodeCode) (*entities.Node, error) {
	node, ok := m.nodes[code]
	if !ok {
		return nil, &entities.UnknownNodeError{Code: code}
	}
	return node, nil
}

// Has reports whether the code belongs to the network
func (m *Model) Has(code entities.NodeCode) bool {
	_, ok := m.nodes[code]
	return ok
}

// ParentOf returns the parent code; ok is false for roots and unknown nodes
func (m *Model) ParentOf(code entities.NodeCode) (entities.NodeCode, bool) {
	node, exists := m.nodes[code]
	if !exists || node.IsRoot() {
		return "", false
	}
	return node.ParentCode, true
}

// ChildrenOf returns the children of a node in code order
func (m *Model) ChildrenOf(code entities.NodeCode) []entities.NodeCode {
	return m.children[code]
}

// IsLeaf reports whether the node has no children
func (m *Model) IsLeaf(code entities.NodeCode) bool {
	return len(m.children[code]) == 0
}

// LeadTime returns the lead time in days from parent to child.
// A self-loop (x, x) is 0 days unless declared; every other missing pair is an error.
func (m *Model) LeadTime(parent, child entities.NodeCode) (float64, error) {
	if days, ok := m.leadTimes[edgeKey{parent, child}]; ok {
		return days, nil
	}
	if parent == child && m.Has(parent) {
		return 0, nil
	}
	return 0, &entities.LeadTimeNotFoundError{Parent: parent, Child: child}
}

// InboundLeadTime returns the lead time of replenishment arriving at the node:
// parent -> node for inner nodes, the declared self-loop for roots
func (m *Model) InboundLeadTime(code entities.NodeCode) (float64, error) {
	node, err := m.Node(code)
	if err != nil {
		return 0, err
	}
	if node.IsRoot() {
		return m.LeadTime(code, code)
	}
	return m.LeadTime(node.ParentCode, code)
}

// OrderingCost returns the cost per order placed by the node
func (m *Model) OrderingCost(code entities.NodeCode) (float64, error) {
	node, err := m.Node(code)
	if err != nil {
		return 0, err
	}
	return node.OrderingCost, nil
}

// HoldingCost returns the cost of holding one unit for one period at the node
func (m *Model) HoldingCost(code entities.NodeCode) (float64, error) {
	node, err := m.Node(code)
	if err != nil {
		return 0, err
	}
	return node.HoldingCost, nil
}

// Depth returns the distance from the node's root (roots are 0)
func (m *Model) Depth(code entities.NodeCode) (int, error) {
	d, ok := m.depth[code]
	if !ok {
		return 0, &entities.UnknownNodeError{Code: code}
	}
	return d, nil
}

// MaxDepth returns the depth of the deepest node
func (m *Model) MaxDepth() int {
	return m.maxDepth
}

// NodesAtDepth returns the codes at one depth in code order
func (m *Model) NodesAtDepth(d int) []entities.NodeCode {
	if d < 0 || d >= len(m.byDepth) {
		return nil
	}
	return m.byDepth[d]
}

// Roots returns the root codes in code order
func (m *Model) Roots() []entities.NodeCode {
	return m.roots
}

// Codes returns every node code in code order
func (m *Model) Codes() []entities.NodeCode {
	return m.codes
}

// Len returns the number of nodes
func (m *Model) Len() int {
	return len(m.codes)
}
