// Package echelon derives the replenishment policy of every node from its aggregated demand.
package echelon

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/vsinha/meio/pkg/application/services/hierarchy"
	"github.com/vsinha/meio/pkg/application/services/shared"
	"github.com/vsinha/meio/pkg/domain/entities"
)

// Stage is the name used for logs, skips and metrics
const Stage = "echelon"

// DefaultServiceLevel is the cycle service level used when none is configured
const DefaultServiceLevel = 0.95

// Skip reasons
const (
	ReasonNonPositiveDemand  = "non-positive demand"
	ReasonNonPositiveHolding = "non-positive holding cost"
	ReasonNegativeOrdering   = "negative ordering cost"
	ReasonNonPositiveEOQ     = "non-positive or non-finite eoq"
	ReasonLeadTimeMissing    = "lead time lookup failed"
	ReasonNonFiniteMetric    = "non-finite metric"
)

// Options controls the policy formulas
type Options struct {
	ServiceLevel  float64 // default DefaultServiceLevel, overridden per node
	ZScore        float64 // explicit z-score, takes precedence over every service level when > 0
	Granularity   shared.Granularity
	DaysPerPeriod float64 // 0 uses the granularity default
	Workers       int     // 0 uses GOMAXPROCS
}

// Result holds the computed metrics and the rows excluded by numeric guards
type Result struct {
	Rows  []entities.EchelonMetric // ordered by (node, sku, period)
	Skips []entities.NumericGuardSkip
}

// Index returns the metrics keyed by (node, sku, period)
func (r *Result) Index() map[entities.DemandKey]entities.EchelonMetric {
	index := make(map[entities.DemandKey]entities.EchelonMetric, len(r.Rows))
	for _, row := range r.Rows {
		index[row.Key()] = row
	}
	return index
}

// Engine computes EOQ, cycle, lead-time and stock targets per (node, sku, period)
type Engine struct {
	options Options
	logger  logrus.FieldLogger
}

// NewEngine creates a new echelon metrics engine
func NewEngine(options Options, logger logrus.FieldLogger) *Engine {
	if options.ServiceLevel <= 0 || options.ServiceLevel >= 1 {
		options.ServiceLevel = DefaultServiceLevel
	}
	if options.DaysPerPeriod <= 0 {
		options.DaysPerPeriod = options.Granularity.DaysPerPeriod()
	}
	if options.Workers <= 0 {
		options.Workers = runtime.GOMAXPROCS(0)
	}
	return &Engine{
		options: options,
		logger:  shared.LoggerOrDiscard(logger),
	}
}

// ZScore returns the safety factor for a node: the explicit z-score when configured,
// otherwise the inverse normal CDF of the node or default service level
func (e *Engine) ZScore(node *entities.Node) float64 {
	if e.options.ZScore > 0 {
		return e.options.ZScore
	}
	level := e.options.ServiceLevel
	if node != nil && node.ServiceLevel > 0 && node.ServiceLevel < 1 {
		level = node.ServiceLevel
	}
	return distuv.UnitNormal.Quantile(level)
}

type partition struct {
	node entities.NodeCode
	rows []entities.AggregatedDemand
}

type partitionResult struct {
	rows  []entities.EchelonMetric
	skips []entities.NumericGuardSkip
}

// Compute derives metrics for every demand row. Partitions by node run concurrently;
// the output order does not depend on scheduling.
func (e *Engine) Compute(ctx context.Context, model *hierarchy.Model, demand []entities.AggregatedDemand) (*Result, error) {
	partitions := partitionByNode(demand)
	results := make([]partitionResult, len(partitions))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.options.Workers)

	for i := range partitions {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = e.computePartition(model, partitions[i])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to compute echelon metrics: %w", err)
	}

	result := &Result{}
	for _, r := range results {
		result.Rows = append(result.Rows, r.rows...)
		result.Skips = append(result.Skips, r.skips...)
	}
	sort.Slice(result.Rows, func(i, j int) bool { return result.Rows[i].Key().Less(result.Rows[j].Key()) })
	sort.SliceStable(result.Skips, func(i, j int) bool { return result.Skips[i].Key.Less(result.Skips[j].Key) })

	for _, skip := range result.Skips {
		shared.LogSkip(e.logger, skip)
	}
	e.logger.WithFields(logrus.Fields{
		"stage":      Stage,
		"rows":       len(result.Rows),
		"skips":      len(result.Skips),
		"partitions": len(partitions),
	}).Debug("echelon metrics computed")

	return result, nil
}

func partitionByNode(demand []entities.AggregatedDemand) []partition {
	byNode := make(map[entities.NodeCode][]entities.AggregatedDemand)
	for _, row := range demand {
		byNode[row.Node] = append(byNode[row.Node], row)
	}

	partitions := make([]partition, 0, len(byNode))
	for node, rows := range byNode {
		partitions = append(partitions, partition{node: node, rows: rows})
	}
	sort.Slice(partitions, func(i, j int) bool { return partitions[i].node < partitions[j].node })
	return partitions
}

// computePartition evaluates every row of one node; it only reads the model
func (e *Engine) computePartition(model *hierarchy.Model, p partition) partitionResult {
	var out partitionResult

	skipAll := func(reason string) partitionResult {
		for _, row := range p.rows {
			out.skips = append(out.skips, entities.NumericGuardSkip{Stage: Stage, Key: row.Key(), Reason: reason})
		}
		return out
	}

	node, err := model.Node(p.node)
	if err != nil {
		return skipAll(err.Error())
	}
	leadTime, err := model.InboundLeadTime(p.node)
	if err != nil {
		return skipAll(ReasonLeadTimeMissing)
	}
	z := e.ZScore(node)

	for _, row := range p.rows {
		metric, reason := e.computeRow(node, leadTime, z, row)
		if reason != "" {
			out.skips = append(out.skips, entities.NumericGuardSkip{Stage: Stage, Key: row.Key(), Reason: reason})
			continue
		}
		if metric.CapacityExceeded {
			e.logger.WithFields(shared.KeyFields(Stage, row.Key())).
				WithFields(logrus.Fields{"target": metric.TotalTargetStock, "capacity": *node.Capacity}).
				Warn("target stock exceeds node capacity")
		}
		out.rows = append(out.rows, metric)
	}
	return out
}

// computeRow applies the policy formulas to one row. A non-empty reason means the row is excluded.
func (e *Engine) computeRow(node *entities.Node, leadTime, z float64, row entities.AggregatedDemand) (entities.EchelonMetric, string) {
	d := row.Demand
	s := node.OrderingCost
	h := node.HoldingCost

	switch {
	case !(d > 0) || math.IsInf(d, 0):
		return entities.EchelonMetric{}, ReasonNonPositiveDemand
	case !(h > 0):
		return entities.EchelonMetric{}, ReasonNonPositiveHolding
	case s < 0 || math.IsNaN(s):
		return entities.EchelonMetric{}, ReasonNegativeOrdering
	}

	eoq := EOQ(d, s, h)
	if !(eoq > 0) || math.IsInf(eoq, 0) {
		return entities.EchelonMetric{}, ReasonNonPositiveEOQ
	}

	daysPerPeriod := e.options.DaysPerPeriod
	cycle := eoq / d
	cycleDays := cycle * daysPerPeriod
	fullCycles := math.Floor(leadTime / cycleDays)
	effective := leadTime - fullCycles*cycleDays

	m := entities.EchelonMetric{
		Node:                 row.Node,
		SKU:                  row.SKU,
		Period:               row.Period,
		AverageDemand:        d,
		EOQ:                  eoq,
		CycleTime:            cycle,
		CycleTimeDays:        cycleDays,
		LeadTimeDays:         leadTime,
		FullCyclesInLeadTime: int(fullCycles),
		EffectiveLeadTime:    effective,
		ReorderPoint:         d / daysPerPeriod * effective,
	}

	if row.HasStd {
		m.SafetyStock = z * math.Sqrt(leadTime) * row.StdDemand
		m.HasSafetyStock = true
	}
	m.TotalTargetStock = m.SafetyStock + d

	m.AverageInventory = eoq/2 + m.SafetyStock
	m.InventoryTurnover = e.options.Granularity.PeriodsPerYear() * d / m.AverageInventory
	m.StockCoverage = m.AverageInventory / d
	m.CapacityExceeded = node.Capacity != nil && m.TotalTargetStock > *node.Capacity

	for _, v := range []float64{
		m.CycleTimeDays, m.EffectiveLeadTime, m.ReorderPoint, m.SafetyStock,
		m.TotalTargetStock, m.InventoryTurnover, m.StockCoverage,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return entities.EchelonMetric{}, ReasonNonFiniteMetric
		}
	}

	return m, ""
}

// EOQ returns the economic order quantity sqrt(2DS/H)
func EOQ(demand, orderingCost, holdingCost float64) float64 {
	return math.Sqrt(2 * demand * orderingCost / holdingCost)
}
