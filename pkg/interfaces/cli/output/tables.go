package output

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/meio/pkg/application/dto"
)

const dateLayout = "2006-01-02"

// Table is one named result table, rendered as a CSV file or a workbook sheet
type Table struct {
	Name   string
	Header []string
	Rows   [][]any
}

// Tables flattens a planning result into its report tables in a fixed order
func Tables(result *dto.PlanningResult) []Table {
	demand := Table{
		Name:   "demand",
		Header: []string{"node_code", "sku_id", "period", "actual", "forecast", "demand", "rolling_mean", "std_demand"},
	}
	for _, d := range result.Demand {
		var std any
		if d.HasStd {
			std = d.StdDemand
		}
		demand.Rows = append(demand.Rows, []any{
			string(d.Node), string(d.SKU), d.Period, d.Actual, d.Forecast, d.Demand, d.RollingMean, std,
		})
	}

	metrics := Table{
		Name: "metrics",
		Header: []string{
			"node_code", "sku_id", "period", "average_demand", "eoq", "cycle_time", "cycle_time_days",
			"lead_time_days", "full_cycles", "effective_lead_time", "reorder_point", "safety_stock",
			"total_target_stock", "average_inventory", "inventory_turnover", "stock_coverage", "capacity_exceeded",
		},
	}
	for _, m := range result.Metrics {
		var ss any
		if m.HasSafetyStock {
			ss = m.SafetyStock
		}
		metrics.Rows = append(metrics.Rows, []any{
			string(m.Node), string(m.SKU), m.Period, m.AverageDemand, m.EOQ, m.CycleTime, m.CycleTimeDays,
			m.LeadTimeDays, m.FullCyclesInLeadTime, m.EffectiveLeadTime, m.ReorderPoint, ss,
			m.TotalTargetStock, m.AverageInventory, m.InventoryTurnover, m.StockCoverage, m.CapacityExceeded,
		})
	}

	allocations := Table{
		Name:   "allocations",
		Header: []string{"parent_code", "child_code", "sku_id", "period", "demand_share", "allocated_stock"},
	}
	for _, a := range result.Allocations {
		allocations.Rows = append(allocations.Rows, []any{
			string(a.Parent), string(a.Child), string(a.SKU), a.Period, a.DemandShare, a.AllocatedStock,
		})
	}

	orders := Table{
		Name:   "orders",
		Header: []string{"from_code", "node_code", "sku_id", "period", "order_date", "quantity", "balance"},
	}
	for _, o := range result.Orders {
		orders.Rows = append(orders.Rows, []any{
			string(o.From), string(o.Node), string(o.SKU), o.Period, o.OrderDate, int64(o.Quantity), o.Balance,
		})
	}

	costs := Table{
		Name:   "costs",
		Header: []string{"from_code", "node_code", "sku_id", "period", "orders_placed", "total_cost_eoq", "total_cost_baseline", "savings"},
	}
	for _, c := range result.Costs {
		sku := string(c.SKU)
		if c.IsAggregate() {
			sku = "*"
		}
		costs.Rows = append(costs.Rows, []any{
			string(c.From), string(c.Node), sku, c.Period, c.OrdersPlaced, c.TotalCostEOQ, c.TotalCostBaseline, c.Savings(),
		})
	}

	skips := Table{
		Name:   "skips",
		Header: []string{"stage", "node_code", "sku_id", "period", "reason"},
	}
	for _, s := range result.Skips {
		skips.Rows = append(skips.Rows, []any{s.Stage, string(s.Key.Node), string(s.Key.SKU), s.Key.Period, s.Reason})
	}

	issues := Table{Name: "issues", Header: []string{"message"}}
	for _, msg := range result.IssueMessages() {
		issues.Rows = append(issues.Rows, []any{msg})
	}

	return []Table{demand, metrics, allocations, orders, costs, skips, issues}
}

// formatCell renders a table value for CSV and text output. nil renders as an empty cell.
func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case time.Time:
		return val.Format(dateLayout)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case decimal.Decimal:
		return val.StringFixed(2)
	default:
		return ""
	}
}
