package entities

import (
	"fmt"
	"time"
)

// DemandKey identifies one (node, sku, period) cell of every derived table
type DemandKey struct {
	Node   NodeCode
	SKU    SKU
	Period time.Time
}

func (k DemandKey) String() string {
	return fmt.Sprintf("%s|%s|%s", k.Node, k.SKU, k.Period.Format("2006-01-02"))
}

// Less orders keys by node, sku, then period
func (k DemandKey) Less(other DemandKey) bool {
	if k.Node != other.Node {
		return k.Node < other.Node
	}
	if k.SKU != other.SKU {
		return k.SKU < other.SKU
	}
	return k.Period.Before(other.Period)
}

// DemandRecord represents one leaf-level demand observation
type DemandRecord struct {
	Node     NodeCode
	SKU      SKU
	Period   time.Time
	Actual   float64
	Forecast float64
}

// AggregatedDemand is the canonical demand of a node for one sku and period.
// StdDemand is only meaningful when HasStd is set (at least two observations in the window).
type AggregatedDemand struct {
	Node        NodeCode  `json:"node"`
	SKU         SKU       `json:"sku"`
	Period      time.Time `json:"period"`
	Actual      float64   `json:"actual"`
	Forecast    float64   `json:"forecast"`
	Demand      float64   `json:"demand"`
	RollingMean float64   `json:"rolling_mean"`
	StdDemand   float64   `json:"std_demand"`
	HasStd      bool      `json:"has_std"`
}

// Key returns the (node, sku, period) key of the row
func (d AggregatedDemand) Key() DemandKey {
	return DemandKey{Node: d.Node, SKU: d.SKU, Period: d.Period}
}

// DemandBasis selects which quantity drives planning
type DemandBasis int

const (
	BasisActual DemandBasis = iota
	BasisForecast
)

// String method for DemandBasis enum
func (b DemandBasis) String() string {
	switch b {
	case BasisActual:
		return "actual"
	case BasisForecast:
		return "forecast"
	default:
		return "unknown"
	}
}

// ParseDemandBasis converts a label into a DemandBasis
func ParseDemandBasis(s string) (DemandBasis, error) {
	switch s {
	case "", "actual":
		return BasisActual, nil
	case "forecast":
		return BasisForecast, nil
	default:
		return BasisActual, fmt.Errorf("invalid demand basis: %s (expected: actual or forecast)", s)
	}
}
