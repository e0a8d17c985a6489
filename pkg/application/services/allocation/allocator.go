// Package allocation pushes target stock down the hierarchy in proportion to demand share.
package allocation

import (
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/vsinha/meio/pkg/application/services/hierarchy"
	"github.com/vsinha/meio/pkg/application/services/shared"
	"github.com/vsinha/meio/pkg/domain/entities"
)

// Stage is the name used for logs, issues and metrics
const Stage = "allocation"

// SumTolerance is the relative gap allowed between a parent's demand and the sum of its children
const SumTolerance = 1e-6

// Result holds the allocation rows, the stock basis used for every parent key and reported issues
type Result struct {
	Rows   []entities.Allocation // ordered by (child, sku, period)
	Basis  map[entities.DemandKey]float64
	Issues []error
}

// Allocator splits a parent's stock across its children tier by tier
type Allocator struct {
	logger logrus.FieldLogger
}

// NewAllocator creates a new distribution allocator
func NewAllocator(logger logrus.FieldLogger) *Allocator {
	return &Allocator{logger: shared.LoggerOrDiscard(logger)}
}

// Allocate walks the hierarchy from the roots down. A root distributes its own total target
// stock; every other parent distributes what was allocated to it one tier up, or its own
// target when nothing was.
func (a *Allocator) Allocate(
	model *hierarchy.Model,
	demand []entities.AggregatedDemand,
	metrics []entities.EchelonMetric,
) *Result {
	result := &Result{Basis: make(map[entities.DemandKey]float64)}

	demandIndex := make(map[entities.DemandKey]entities.AggregatedDemand, len(demand))
	rowsByNode := make(map[entities.NodeCode][]entities.AggregatedDemand)
	for _, row := range demand {
		demandIndex[row.Key()] = row
		rowsByNode[row.Node] = append(rowsByNode[row.Node], row)
	}
	for node := range rowsByNode {
		rows := rowsByNode[node]
		sort.Slice(rows, func(i, j int) bool { return rows[i].Key().Less(rows[j].Key()) })
	}

	targets := make(map[entities.DemandKey]float64, len(metrics))
	for _, m := range metrics {
		targets[m.Key()] = m.TotalTargetStock
	}

	a.reportMissingParents(model, demand, demandIndex, result)

	pushed := shared.NewStockMap()

	for depth := 0; depth < model.MaxDepth(); depth++ {
		for _, parent := range model.NodesAtDepth(depth) {
			children := model.ChildrenOf(parent)
			if len(children) == 0 {
				continue
			}

			for _, row := range rowsByNode[parent] {
				parentKey := row.Key()
				if !(row.Demand > 0) {
					continue
				}

				basis := targets[parentKey]
				if upstream := pushed.Get(parentKey); upstream != nil {
					basis = upstream.Allocated
				}
				if !(basis > 0) {
					continue
				}
				result.Basis[parentKey] = basis

				var childSum float64
				for _, child := range children {
					childKey := entities.DemandKey{Node: child, SKU: row.SKU, Period: row.Period}
					childRow, exists := demandIndex[childKey]
					if !exists {
						continue
					}
					childSum += childRow.Demand

					share := childRow.Demand / row.Demand
					alloc := entities.Allocation{
						Parent:         parent,
						Child:          child,
						SKU:            row.SKU,
						Period:         row.Period,
						DemandShare:    share,
						AllocatedStock: share * basis,
					}
					result.Rows = append(result.Rows, alloc)
					pushed.Set(childKey, &shared.StockContext{
						Allocated:   alloc.AllocatedStock,
						DemandShare: share,
						Parent:      parent,
					})
				}

				if math.Abs(childSum-row.Demand) > SumTolerance*row.Demand {
					issue := &entities.DataIntegrityError{Rule: "children demand does not sum to parent demand", Key: parentKey}
					shared.LogIssue(a.logger, Stage, issue)
					result.Issues = append(result.Issues, issue)
				}
			}
		}
	}

	sortAllocations(result.Rows)

	a.logger.WithFields(logrus.Fields{
		"stage":  Stage,
		"rows":   len(result.Rows),
		"issues": len(result.Issues),
	}).Debug("stock allocated")

	return result
}

// reportMissingParents flags child demand whose parent has no row for the same sku and period
func (a *Allocator) reportMissingParents(
	model *hierarchy.Model,
	demand []entities.AggregatedDemand,
	demandIndex map[entities.DemandKey]entities.AggregatedDemand,
	result *Result,
) {
	keys := make([]entities.DemandKey, 0, len(demand))
	for _, row := range demand {
		keys = append(keys, row.Key())
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	for _, key := range keys {
		parent, ok := model.ParentOf(key.Node)
		if !ok {
			continue
		}
		if _, exists := demandIndex[entities.DemandKey{Node: parent, SKU: key.SKU, Period: key.Period}]; exists {
			continue
		}
		issue := &entities.DataIntegrityError{Rule: "child demand without parent row", Key: key}
		shared.LogIssue(a.logger, Stage, issue)
		result.Issues = append(result.Issues, issue)
	}
}

// ApplyShares recomputes allocated stock from existing demand shares and a stock basis per
// parent key. Rows whose parent key has no basis are dropped. Applying the same shares to the
// same basis always yields the same rows.
func ApplyShares(shares []entities.Allocation, basis map[entities.DemandKey]float64) []entities.Allocation {
	out := make([]entities.Allocation, 0, len(shares))
	for _, s := range shares {
		b, ok := basis[s.ParentKey()]
		if !ok {
			continue
		}
		s.AllocatedStock = s.DemandShare * b
		out = append(out, s)
	}
	sortAllocations(out)
	return out
}

// BasisFromAllocations sums the allocated stock of every parent key
func BasisFromAllocations(allocations []entities.Allocation) map[entities.DemandKey]float64 {
	basis := make(map[entities.DemandKey]float64)
	for _, alloc := range allocations {
		basis[alloc.ParentKey()] += alloc.AllocatedStock
	}
	return basis
}

func sortAllocations(rows []entities.Allocation) {
	sort.Slice(rows, func(i, j int) bool { return rows[i].ChildKey().Less(rows[j].ChildKey()) })
}
