package entities

import "time"

// EchelonMetric holds the replenishment policy of a node for one sku and period
type EchelonMetric struct {
	Node                 NodeCode  `json:"node"`
	SKU                  SKU       `json:"sku"`
	Period               time.Time `json:"period"`
	AverageDemand        float64   `json:"average_demand"`
	EOQ                  float64   `json:"eoq"`
	CycleTime            float64   `json:"cycle_time"` // periods
	CycleTimeDays        float64   `json:"cycle_time_days"`
	LeadTimeDays         float64   `json:"lead_time_days"`
	FullCyclesInLeadTime int       `json:"full_cycles_in_lead_time"`
	EffectiveLeadTime    float64   `json:"effective_lead_time"` // days
	ReorderPoint         float64   `json:"reorder_point"`
	SafetyStock          float64   `json:"safety_stock"`
	HasSafetyStock       bool      `json:"has_safety_stock"`
	TotalTargetStock     float64   `json:"total_target_stock"`
	AverageInventory     float64   `json:"average_inventory"`
	InventoryTurnover    float64   `json:"inventory_turnover"`
	StockCoverage        float64   `json:"stock_coverage"` // periods
	CapacityExceeded     bool      `json:"capacity_exceeded"`
}

// Key returns the (node, sku, period) key of the row
func (m EchelonMetric) Key() DemandKey {
	return DemandKey{Node: m.Node, SKU: m.SKU, Period: m.Period}
}
