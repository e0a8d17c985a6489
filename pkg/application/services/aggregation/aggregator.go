// Package aggregation rolls leaf demand up the distribution hierarchy.
package aggregation

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/vsinha/meio/pkg/application/services/hierarchy"
	"github.com/vsinha/meio/pkg/application/services/shared"
	"github.com/vsinha/meio/pkg/domain/entities"
)

// Stage is the name used for logs, skips and metrics
const Stage = "aggregation"

// RollingWindow is the number of trailing present periods in the demand statistics
const RollingWindow = 3

// Options controls how demand rows are read
type Options struct {
	Basis       entities.DemandBasis
	Granularity shared.Granularity
	Strict      bool // abort on the first data issue instead of reporting it
}

// Result holds the aggregated demand of every node and the reported data issues
type Result struct {
	Rows   []entities.AggregatedDemand // ordered by (node, sku, period)
	Issues []error
}

// Index returns the rows keyed by (node, sku, period)
func (r *Result) Index() map[entities.DemandKey]entities.AggregatedDemand {
	return Index(r.Rows)
}

// Index keys aggregated rows by (node, sku, period)
func Index(rows []entities.AggregatedDemand) map[entities.DemandKey]entities.AggregatedDemand {
	index := make(map[entities.DemandKey]entities.AggregatedDemand, len(rows))
	for _, row := range rows {
		index[row.Key()] = row
	}
	return index
}

// Aggregator sums leaf demand into every ancestor tier
type Aggregator struct {
	options Options
	logger  logrus.FieldLogger
}

// NewAggregator creates a new demand aggregator
func NewAggregator(options Options, logger logrus.FieldLogger) *Aggregator {
	return &Aggregator{
		options: options,
		logger:  shared.LoggerOrDiscard(logger),
	}
}

type bucket struct {
	actual   float64
	forecast float64
}

// Aggregate groups leaf demand by (node, sku, period), rolls it up one tier at a time
// and attaches trailing rolling statistics per (node, sku) series.
func (a *Aggregator) Aggregate(model *hierarchy.Model, records []entities.DemandRecord) (*Result, error) {
	result := &Result{}
	buckets := make(map[entities.DemandKey]*bucket)

	for _, record := range records {
		key := entities.DemandKey{
			Node:   record.Node,
			SKU:    record.SKU,
			Period: a.options.Granularity.PeriodStart(record.Period),
		}

		var issue error
		switch {
		case !model.Has(record.Node):
			issue = &entities.OrphanNodeError{Node: key.Node, SKU: key.SKU, Period: key.Period}
		case !model.IsLeaf(record.Node):
			issue = &entities.DataIntegrityError{Rule: "demand row on non-leaf node", Key: key}
		}
		if issue != nil {
			if a.options.Strict {
				return nil, fmt.Errorf("failed to aggregate demand: %w", issue)
			}
			shared.LogIssue(a.logger, Stage, issue)
			result.Issues = append(result.Issues, issue)
			continue
		}

		b, exists := buckets[key]
		if !exists {
			b = &bucket{}
			buckets[key] = b
		}
		b.actual += record.Actual
		b.forecast += record.Forecast
	}

	// Deepest tier first so each parent receives its fully summed children
	for depth := model.MaxDepth(); depth >= 1; depth-- {
		for _, key := range keysAtDepth(model, buckets, depth) {
			parent, _ := model.ParentOf(key.Node)
			parentKey := entities.DemandKey{Node: parent, SKU: key.SKU, Period: key.Period}

			pb, exists := buckets[parentKey]
			if !exists {
				pb = &bucket{}
				buckets[parentKey] = pb
			}
			pb.actual += buckets[key].actual
			pb.forecast += buckets[key].forecast
		}
	}

	result.Rows = a.buildRows(buckets)

	a.logger.WithFields(logrus.Fields{
		"stage":  Stage,
		"rows":   len(result.Rows),
		"issues": len(result.Issues),
		"depth":  model.MaxDepth(),
	}).Debug("demand aggregated")

	return result, nil
}

// keysAtDepth returns the bucket keys of nodes at one depth, in key order
func keysAtDepth(model *hierarchy.Model, buckets map[entities.DemandKey]*bucket, depth int) []entities.DemandKey {
	var keys []entities.DemandKey
	for key := range buckets {
		if d, err := model.Depth(key.Node); err == nil && d == depth {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// buildRows materialises buckets as rows and attaches rolling statistics
func (a *Aggregator) buildRows(buckets map[entities.DemandKey]*bucket) []entities.AggregatedDemand {
	rows := make([]entities.AggregatedDemand, 0, len(buckets))
	for key, b := range buckets {
		row := entities.AggregatedDemand{
			Node:     key.Node,
			SKU:      key.SKU,
			Period:   key.Period,
			Actual:   b.actual,
			Forecast: b.forecast,
			Demand:   b.actual,
		}
		if a.options.Basis == entities.BasisForecast {
			row.Demand = b.forecast
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key().Less(rows[j].Key()) })

	// Rows of one (node, sku) series are contiguous and ordered by period
	start := 0
	for i := 1; i <= len(rows); i++ {
		if i < len(rows) && rows[i].Node == rows[start].Node && rows[i].SKU == rows[start].SKU {
			continue
		}
		applyRollingStats(rows[start:i])
		start = i
	}
	return rows
}

// applyRollingStats sets the trailing mean and sample standard deviation over
// the last RollingWindow present periods (minimum one observation)
func applyRollingStats(series []entities.AggregatedDemand) {
	window := make([]float64, 0, RollingWindow)
	for i := range series {
		lo := i - RollingWindow + 1
		if lo < 0 {
			lo = 0
		}
		window = window[:0]
		for j := lo; j <= i; j++ {
			window = append(window, series[j].Demand)
		}

		series[i].RollingMean = stat.Mean(window, nil)
		if len(window) >= 2 {
			series[i].StdDemand = stat.StdDev(window, nil)
			series[i].HasStd = true
		}
	}
}
