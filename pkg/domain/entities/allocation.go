package entities

import "time"

// Allocation represents the share of a parent's target stock pushed down to one child
type Allocation struct {
	Parent         NodeCode  `json:"parent"`
	Child          NodeCode  `json:"child"`
	SKU            SKU       `json:"sku"`
	Period         time.Time `json:"period"`
	DemandShare    float64   `json:"demand_share"`
	AllocatedStock float64   `json:"allocated_stock"`
}

// ChildKey returns the (child, sku, period) key of the row
func (a Allocation) ChildKey() DemandKey {
	return DemandKey{Node: a.Child, SKU: a.SKU, Period: a.Period}
}

// ParentKey returns the (parent, sku, period) key of the row
func (a Allocation) ParentKey() DemandKey {
	return DemandKey{Node: a.Parent, SKU: a.SKU, Period: a.Period}
}
