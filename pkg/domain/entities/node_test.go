package entities

import (
	"errors"
	"math"
	"testing"
)

func TestNode_Validation(t *testing.T) {
	validNode, err := NewNode("WH_1", "North Warehouse", TierWarehouse, "DC_1", 50, 2)
	if err != nil {
		t.Fatalf("Expected valid node creation to succeed: %v", err)
	}
	if validNode.IsRoot() {
		t.Error("Expected warehouse with a parent not to be a root")
	}

	testCases := []struct {
		name        string
		code        NodeCode
		tier        Tier
		parent      NodeCode
		ordering    float64
		holding     float64
		expectError string
	}{
		{"empty code", "", TierStore, "WH_1", 1, 1, "node code cannot be empty"},
		{"unknown tier", "S1", TierUnknown, "WH_1", 1, 1, "node S1 has unknown tier"},
		{"own parent", "S1", TierStore, "S1", 1, 1, "node S1 cannot be its own parent"},
		{"nan ordering cost", "S1", TierStore, "WH_1", math.NaN(), 1, "ordering cost must be finite for node S1"},
		{"inf holding cost", "S1", TierStore, "WH_1", 1, math.Inf(1), "holding cost must be finite for node S1"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewNode(tc.code, "name", tc.tier, tc.parent, tc.ordering, tc.holding)
			if err == nil {
				t.Fatalf("Expected error for %s, but got none", tc.name)
			}
			if err.Error() != tc.expectError {
				t.Errorf("Expected error '%s', got '%s'", tc.expectError, err.Error())
			}
		})
	}
}

func TestNode_OptionalAttributes(t *testing.T) {
	node, err := NewNode("DC_1", "Central", TierDC, "", 100, 1)
	if err != nil {
		t.Fatalf("Expected valid node creation to succeed: %v", err)
	}
	if !node.IsRoot() {
		t.Error("Expected node without parent to be a root")
	}

	if _, err := node.WithCapacity(5000); err != nil {
		t.Fatalf("Expected capacity to be accepted: %v", err)
	}
	if node.Capacity == nil || *node.Capacity != 5000 {
		t.Errorf("Expected capacity 5000, got %v", node.Capacity)
	}
	if _, err := node.WithCapacity(-1); err == nil {
		t.Error("Expected negative capacity to be rejected")
	}

	if _, err := node.WithServiceLevel(0.99); err != nil {
		t.Fatalf("Expected service level to be accepted: %v", err)
	}
	for _, level := range []float64{0, 1, 1.5, -0.2} {
		if _, err := node.WithServiceLevel(level); err == nil {
			t.Errorf("Expected service level %v to be rejected", level)
		}
	}
}

func TestParseTier(t *testing.T) {
	testCases := []struct {
		input    string
		expected Tier
	}{
		{"DC", TierDC},
		{" dc ", TierDC},
		{"Warehouse", TierWarehouse},
		{"WH", TierWarehouse},
		{"store", TierStore},
	}
	for _, tc := range testCases {
		tier, err := ParseTier(tc.input)
		if err != nil {
			t.Errorf("ParseTier(%q) failed: %v", tc.input, err)
			continue
		}
		if tier != tc.expected {
			t.Errorf("ParseTier(%q) = %s, expected %s", tc.input, tier, tc.expected)
		}
	}

	if _, err := ParseTier("plant"); err == nil {
		t.Error("Expected unknown tier label to fail")
	}
}

func TestApplyCosts(t *testing.T) {
	nodes := []Node{{Code: "DC_1", Tier: TierDC}, {Code: "WH_1", Tier: TierWarehouse, ParentCode: "DC_1"}}

	err := ApplyCosts(nodes, []NodeCost{{Node: "WH_1", OrderingCost: 50, HoldingCost: 2}})
	if err != nil {
		t.Fatalf("ApplyCosts failed: %v", err)
	}
	if nodes[1].OrderingCost != 50 || nodes[1].HoldingCost != 2 {
		t.Errorf("Expected WH_1 costs 50/2, got %v/%v", nodes[1].OrderingCost, nodes[1].HoldingCost)
	}
	if nodes[0].OrderingCost != 0 {
		t.Errorf("Expected DC_1 costs untouched, got %v", nodes[0].OrderingCost)
	}

	err = ApplyCosts(nodes, []NodeCost{{Node: "GHOST", OrderingCost: 1, HoldingCost: 1}})
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Expected ConfigurationError, got %v", err)
	}
	if cfgErr.Entity != "GHOST" {
		t.Errorf("Expected offending entity GHOST, got %s", cfgErr.Entity)
	}
}

func TestLeadTimeLink_Validation(t *testing.T) {
	link, err := NewLeadTimeLink("DC_1", "WH_1", 45)
	if err != nil {
		t.Fatalf("Expected valid link creation to succeed: %v", err)
	}
	if link.IsSelfLoop() {
		t.Error("Expected DC_1 -> WH_1 not to be a self-loop")
	}

	selfLoop, err := NewLeadTimeLink("DC_1", "DC_1", 0)
	if err != nil {
		t.Fatalf("Expected self-loop creation to succeed: %v", err)
	}
	if !selfLoop.IsSelfLoop() {
		t.Error("Expected DC_1 -> DC_1 to be a self-loop")
	}

	testCases := []struct {
		name        string
		source      NodeCode
		target      NodeCode
		days        float64
		expectError string
	}{
		{"empty source", "", "WH_1", 1, "source node cannot be empty"},
		{"empty target", "DC_1", "", 1, "target node cannot be empty"},
		{"negative lead time", "DC_1", "WH_1", -2, "lead time cannot be negative for DC_1 -> WH_1, got -2"},
		{"nan lead time", "DC_1", "WH_1", math.NaN(), "lead time must be finite for DC_1 -> WH_1"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewLeadTimeLink(tc.source, tc.target, tc.days)
			if err == nil {
				t.Fatalf("Expected error for %s, but got none", tc.name)
			}
			if err.Error() != tc.expectError {
				t.Errorf("Expected error '%s', got '%s'", tc.expectError, err.Error())
			}
		})
	}
}
