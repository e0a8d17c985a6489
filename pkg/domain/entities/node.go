package entities

import (
	"fmt"
	"math"
	"strings"
)

// NodeCode represents a unique node identifier in the distribution network
type NodeCode string

// SKU represents a stock keeping unit identifier
type SKU string

// Quantity represents an integer quantity of whole units
type Quantity int64

// Tier represents one echelon of the distribution hierarchy
type Tier int

const (
	TierUnknown Tier = iota
	TierDC
	TierWarehouse
	TierStore
)

// String method for Tier enum
func (t Tier) String() string {
	switch t {
	case TierDC:
		return "DC"
	case TierWarehouse:
		return "Warehouse"
	case TierStore:
		return "Store"
	default:
		return "Unknown"
	}
}

// ParseTier converts a tier label into a Tier
func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dc", "distribution center", "distribution_center":
		return TierDC, nil
	case "warehouse", "wh":
		return TierWarehouse, nil
	case "store":
		return TierStore, nil
	default:
		return TierUnknown, fmt.Errorf("invalid tier: %s (expected: DC, Warehouse, or Store)", s)
	}
}

// Node represents one location of the distribution network with its cost model
type Node struct {
	Code         NodeCode
	Name         string
	Tier         Tier
	ParentCode   NodeCode // empty at the root
	OrderingCost float64  // cost per order placed
	HoldingCost  float64  // cost per unit per period
	Capacity     *float64 // optional storage capacity in units
	ServiceLevel float64  // optional override, 0 = use the planning default
}

// NewNode creates a validated Node
func NewNode(code NodeCode, name string, tier Tier, parent NodeCode, orderingCost, holdingCost float64) (*Node, error) {
	if strings.TrimSpace(string(code)) == "" {
		return nil, fmt.Errorf("node code cannot be empty")
	}
	if tier == TierUnknown {
		return nil, fmt.Errorf("node %s has unknown tier", code)
	}
	if parent == code {
		return nil, fmt.Errorf("node %s cannot be its own parent", code)
	}
	if math.IsNaN(orderingCost) || math.IsInf(orderingCost, 0) {
		return nil, fmt.Errorf("ordering cost must be finite for node %s", code)
	}
	if math.IsNaN(holdingCost) || math.IsInf(holdingCost, 0) {
		return nil, fmt.Errorf("holding cost must be finite for node %s", code)
	}

	return &Node{
		Code:         code,
		Name:         name,
		Tier:         tier,
		ParentCode:   parent,
		OrderingCost: orderingCost,
		HoldingCost:  holdingCost,
	}, nil
}

// IsRoot reports whether the node has no upstream parent
func (n *Node) IsRoot() bool {
	return n.ParentCode == ""
}

// WithCapacity sets the optional storage capacity
func (n *Node) WithCapacity(capacity float64) (*Node, error) {
	if capacity < 0 || math.IsNaN(capacity) {
		return nil, fmt.Errorf("capacity cannot be negative for node %s, got %v", n.Code, capacity)
	}
	n.Capacity = &capacity
	return n, nil
}

// WithServiceLevel sets a node specific service level in the open interval (0, 1)
func (n *Node) WithServiceLevel(level float64) (*Node, error) {
	if level <= 0 || level >= 1 {
		return nil, fmt.Errorf("service level must be in (0, 1) for node %s, got %v", n.Code, level)
	}
	n.ServiceLevel = level
	return n, nil
}

// NodeCost holds the cost model for a node as loaded from the cost table
type NodeCost struct {
	Node         NodeCode
	OrderingCost float64
	HoldingCost  float64
}

// ApplyCosts copies cost rows onto their nodes. A cost row for an unknown node is an error.
func ApplyCosts(nodes []Node, costs []NodeCost) error {
	index := make(map[NodeCode]int, len(nodes))
	for i, n := range nodes {
		index[n.Code] = i
	}
	for _, c := range costs {
		i, ok := index[c.Node]
		if !ok {
			return &ConfigurationError{Rule: "cost row references unknown node", Entity: string(c.Node)}
		}
		nodes[i].OrderingCost = c.OrderingCost
		nodes[i].HoldingCost = c.HoldingCost
	}
	return nil
}
