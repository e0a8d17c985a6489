// Package costing compares the cost of the EOQ schedule with one order per period.
package costing

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/vsinha/meio/pkg/application/services/hierarchy"
	"github.com/vsinha/meio/pkg/application/services/shared"
	"github.com/vsinha/meio/pkg/domain/entities"
)

// Stage is the name used for logs and metrics
const Stage = "costing"

// Options controls the cost formulas
type Options struct {
	Granularity   shared.Granularity
	DaysPerPeriod float64 // 0 uses the granularity default
}

// Evaluator prices order events. It is reporting only and never alters the schedule.
type Evaluator struct {
	daysPerPeriod decimal.Decimal
	logger        logrus.FieldLogger
}

// NewEvaluator creates a new cost evaluator
func NewEvaluator(options Options, logger logrus.FieldLogger) *Evaluator {
	days := options.DaysPerPeriod
	if days <= 0 {
		days = options.Granularity.DaysPerPeriod()
	}
	return &Evaluator{
		daysPerPeriod: decimal.NewFromFloat(days),
		logger:        shared.LoggerOrDiscard(logger),
	}
}

type aggregateKey struct {
	from   entities.NodeCode
	node   entities.NodeCode
	period time.Time
}

var two = decimal.NewFromInt(2)

// Evaluate returns one comparison per (from, node, sku, period) with a metric row, plus one
// aggregate row (empty sku) per (from, node, period) summing every sku of the node.
func (e *Evaluator) Evaluate(
	model *hierarchy.Model,
	metrics []entities.EchelonMetric,
	orders []entities.OrderEvent,
) []entities.CostComparison {
	ordersByKey := make(map[entities.DemandKey][]entities.OrderEvent)
	for _, order := range orders {
		ordersByKey[order.Key()] = append(ordersByKey[order.Key()], order)
	}

	var rows []entities.CostComparison
	aggregates := make(map[aggregateKey]*entities.CostComparison)
	costed := make(map[entities.DemandKey]bool, len(metrics))

	for _, m := range metrics {
		node, err := model.Node(m.Node)
		if err != nil {
			e.logger.WithFields(shared.KeyFields(Stage, m.Key())).WithError(err).Warn("metric row not costed")
			continue
		}
		from, _ := model.ParentOf(m.Node)
		ordering := decimal.NewFromFloat(node.OrderingCost)
		holding := decimal.NewFromFloat(node.HoldingCost)

		// Holding time of one order as a fraction of a period
		cycleFraction := decimal.NewFromFloat(m.CycleTimeDays).Div(e.daysPerPeriod)

		row := entities.CostComparison{
			From:              from,
			Node:              m.Node,
			SKU:               m.SKU,
			Period:            m.Period,
			TotalCostEOQ:      decimal.Zero,
			TotalCostBaseline: ordering.Add(decimal.NewFromFloat(m.AverageDemand).Div(two).Mul(holding)),
		}
		for _, order := range ordersByKey[m.Key()] {
			qty := decimal.NewFromInt(int64(order.Quantity))
			cost := ordering.Add(qty.Div(two).Mul(holding).Mul(cycleFraction))
			row.TotalCostEOQ = row.TotalCostEOQ.Add(cost)
			row.OrdersPlaced++
		}
		costed[m.Key()] = true
		rows = append(rows, row)

		key := aggregateKey{from: from, node: m.Node, period: m.Period}
		agg, exists := aggregates[key]
		if !exists {
			agg = &entities.CostComparison{
				From:              from,
				Node:              m.Node,
				Period:            m.Period,
				TotalCostEOQ:      decimal.Zero,
				TotalCostBaseline: decimal.Zero,
			}
			aggregates[key] = agg
		}
		agg.OrdersPlaced += row.OrdersPlaced
		agg.TotalCostEOQ = agg.TotalCostEOQ.Add(row.TotalCostEOQ)
		agg.TotalCostBaseline = agg.TotalCostBaseline.Add(row.TotalCostBaseline)
	}

	for key := range ordersByKey {
		if !costed[key] {
			e.logger.WithFields(shared.KeyFields(Stage, key)).Warn("orders without metric row not costed")
		}
	}

	for _, agg := range aggregates {
		rows = append(rows, *agg)
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Node != b.Node {
			return a.Node < b.Node
		}
		if !a.Period.Equal(b.Period) {
			return a.Period.Before(b.Period)
		}
		return a.SKU < b.SKU
	})

	e.logger.WithFields(logrus.Fields{
		"stage": Stage,
		"rows":  len(rows),
	}).Debug("costs evaluated")

	return rows
}
