package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// CostComparison compares the EOQ schedule cost with a one-order-per-period baseline.
// An empty SKU marks the per-node aggregate over all skus.
type CostComparison struct {
	From              NodeCode        `json:"from"`
	Node              NodeCode        `json:"node"`
	SKU               SKU             `json:"sku"`
	Period            time.Time       `json:"period"`
	OrdersPlaced      int             `json:"orders_placed"`
	TotalCostEOQ      decimal.Decimal `json:"total_cost_eoq"`
	TotalCostBaseline decimal.Decimal `json:"total_cost_baseline"`
}

// IsAggregate reports whether the row sums every sku of the node
func (c CostComparison) IsAggregate() bool {
	return c.SKU == ""
}

// Savings returns baseline minus EOQ cost
func (c CostComparison) Savings() decimal.Decimal {
	return c.TotalCostBaseline.Sub(c.TotalCostEOQ)
}
