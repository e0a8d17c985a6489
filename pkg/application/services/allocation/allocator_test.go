package allocation

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/meio/pkg/application/services/aggregation"
	"github.com/vsinha/meio/pkg/application/services/echelon"
	"github.com/vsinha/meio/pkg/application/services/hierarchy"
	testhelpers "github.com/vsinha/meio/pkg/application/services/testing"
	"github.com/vsinha/meio/pkg/domain/entities"
)

var jan = testhelpers.Month(2024, time.January)

func pipeline(t *testing.T, model *hierarchy.Model, records []entities.DemandRecord) ([]entities.AggregatedDemand, []entities.EchelonMetric) {
	t.Helper()
	agg, err := aggregation.NewAggregator(aggregation.Options{}, nil).Aggregate(model, records)
	require.NoError(t, err)
	metrics, err := echelon.NewEngine(echelon.Options{}, nil).Compute(context.Background(), model, agg.Rows)
	require.NoError(t, err)
	return agg.Rows, metrics.Rows
}

func storeDemand(quantities map[entities.NodeCode]float64) []entities.DemandRecord {
	var records []entities.DemandRecord
	for store, q := range quantities {
		records = append(records, entities.DemandRecord{Node: store, SKU: "S", Period: jan, Actual: q})
	}
	return records
}

func findAllocation(rows []entities.Allocation, child entities.NodeCode) (entities.Allocation, bool) {
	for _, row := range rows {
		if row.Child == child {
			return row, true
		}
	}
	return entities.Allocation{}, false
}

func TestAllocate_ConstantDemand(t *testing.T) {
	network := testhelpers.BuildThreeTierNetwork()
	model := network.Model()
	demand, metrics := pipeline(t, model, testhelpers.ConstantDemand(network.Stores(), "S", []time.Time{jan}, 100))

	result := NewAllocator(nil).Allocate(model, demand, metrics)
	assert.Empty(t, result.Issues)
	require.Len(t, result.Rows, 6)

	for _, row := range result.Rows {
		assert.InDelta(t, 0.5, row.DemandShare, 1e-12)
	}
	wh1, _ := findAllocation(result.Rows, "WH1")
	assert.InDelta(t, 200.0, wh1.AllocatedStock, 1e-9)
	st3, _ := findAllocation(result.Rows, "ST3")
	assert.InDelta(t, 100.0, st3.AllocatedStock, 1e-9)
	assert.Equal(t, entities.NodeCode("WH2"), st3.Parent)
}

func TestAllocate_SharesSumToOne(t *testing.T) {
	network := testhelpers.BuildThreeTierNetwork()
	model := network.Model()
	demand, metrics := pipeline(t, model, storeDemand(map[entities.NodeCode]float64{
		"ST1": 7, "ST2": 13, "ST3": 29, "ST4": 1,
	}))

	result := NewAllocator(nil).Allocate(model, demand, metrics)
	require.Empty(t, result.Issues)

	shareSums := make(map[entities.DemandKey]float64)
	stockSums := make(map[entities.DemandKey]float64)
	for _, row := range result.Rows {
		shareSums[row.ParentKey()] += row.DemandShare
		stockSums[row.ParentKey()] += row.AllocatedStock
		assert.GreaterOrEqual(t, row.DemandShare, 0.0)
		assert.LessOrEqual(t, row.DemandShare, 1.0)
	}

	require.Len(t, shareSums, 3)
	for key, sum := range shareSums {
		assert.InDelta(t, 1.0, sum, 1e-9, "shares of %s", key)
		assert.InDelta(t, result.Basis[key], stockSums[key], 1e-9, "stock of %s", key)
	}

	// The root distributes its own total target stock
	dcKey := entities.DemandKey{Node: "DC1", SKU: "S", Period: jan}
	for _, m := range metrics {
		if m.Key() == dcKey {
			assert.Equal(t, m.TotalTargetStock, result.Basis[dcKey])
		}
	}
}

func TestAllocate_CompoundsSharesThroughTiers(t *testing.T) {
	network := testhelpers.BuildThreeTierNetwork()
	model := network.Model()
	demand, _ := pipeline(t, model, storeDemand(map[entities.NodeCode]float64{
		"ST1": 10, "ST2": 30, "ST3": 20, "ST4": 40,
	}))

	metrics := []entities.EchelonMetric{
		{Node: "DC1", SKU: "S", Period: jan, TotalTargetStock: 200},
		{Node: "WH1", SKU: "S", Period: jan, TotalTargetStock: 999},
	}

	result := NewAllocator(nil).Allocate(model, demand, metrics)

	wh1, ok := findAllocation(result.Rows, "WH1")
	require.True(t, ok)
	assert.InDelta(t, 0.4, wh1.DemandShare, 1e-12)
	assert.InDelta(t, 80.0, wh1.AllocatedStock, 1e-9)

	// 0.4 * 0.75 of the DC target, not WH1's own target
	st2, ok := findAllocation(result.Rows, "ST2")
	require.True(t, ok)
	assert.InDelta(t, 0.75, st2.DemandShare, 1e-12)
	assert.InDelta(t, 60.0, st2.AllocatedStock, 1e-9)
}

func TestAllocate_FallsBackToOwnTarget(t *testing.T) {
	network := testhelpers.BuildThreeTierNetwork()
	model := network.Model()
	demand, _ := pipeline(t, model, storeDemand(map[entities.NodeCode]float64{
		"ST1": 10, "ST2": 30, "ST3": 20, "ST4": 40,
	}))

	// No DC metric: nothing is pushed to WH1, which distributes its own target
	metrics := []entities.EchelonMetric{
		{Node: "WH1", SKU: "S", Period: jan, TotalTargetStock: 50},
	}

	result := NewAllocator(nil).Allocate(model, demand, metrics)

	_, ok := findAllocation(result.Rows, "WH1")
	assert.False(t, ok, "root without stock basis allocates nothing")

	st1, ok := findAllocation(result.Rows, "ST1")
	require.True(t, ok)
	assert.InDelta(t, 12.5, st1.AllocatedStock, 1e-9)

	_, ok = findAllocation(result.Rows, "ST3")
	assert.False(t, ok, "WH2 has neither upstream stock nor a target")
}

func TestAllocate_ZeroParentDemandProducesNoRows(t *testing.T) {
	network := testhelpers.BuildThreeTierNetwork()
	model := network.Model()
	demand, metrics := pipeline(t, model, testhelpers.ConstantDemand(network.Stores(), "S", []time.Time{jan}, 0))

	require.NotEmpty(t, demand)
	assert.Empty(t, metrics)

	result := NewAllocator(nil).Allocate(model, demand, metrics)
	assert.Empty(t, result.Rows)
	assert.Empty(t, result.Issues)
}

func TestAllocate_DataIntegrityIssues(t *testing.T) {
	model := testhelpers.BuildThreeTierNetwork().Model()

	t.Run("child without parent row", func(t *testing.T) {
		demand := []entities.AggregatedDemand{
			{Node: "ST1", SKU: "S", Period: jan, Demand: 10},
		}

		result := NewAllocator(nil).Allocate(model, demand, nil)
		require.Len(t, result.Issues, 1)

		var integrity *entities.DataIntegrityError
		require.True(t, errors.As(result.Issues[0], &integrity))
		assert.Equal(t, "child demand without parent row", integrity.Rule)
		assert.Equal(t, entities.NodeCode("ST1"), integrity.Key.Node)
		assert.Empty(t, result.Rows)
	})

	t.Run("children do not sum to parent", func(t *testing.T) {
		demand := []entities.AggregatedDemand{
			{Node: "DC1", SKU: "S", Period: jan, Demand: 50},
			{Node: "WH1", SKU: "S", Period: jan, Demand: 50},
			{Node: "ST1", SKU: "S", Period: jan, Demand: 10},
			{Node: "ST2", SKU: "S", Period: jan, Demand: 30},
		}
		metrics := []entities.EchelonMetric{{Node: "DC1", SKU: "S", Period: jan, TotalTargetStock: 50}}

		result := NewAllocator(nil).Allocate(model, demand, metrics)
		require.Len(t, result.Issues, 1)

		var integrity *entities.DataIntegrityError
		require.True(t, errors.As(result.Issues[0], &integrity))
		assert.Equal(t, entities.NodeCode("WH1"), integrity.Key.Node)
	})
}

func TestApplyShares_Idempotent(t *testing.T) {
	network := testhelpers.BuildThreeTierNetwork()
	model := network.Model()
	demand, metrics := pipeline(t, model, storeDemand(map[entities.NodeCode]float64{
		"ST1": 3, "ST2": 5, "ST3": 11, "ST4": 17,
	}))

	result := NewAllocator(nil).Allocate(model, demand, metrics)

	once := ApplyShares(result.Rows, result.Basis)
	assert.Equal(t, result.Rows, once)

	twice := ApplyShares(once, result.Basis)
	assert.Equal(t, once, twice)

	// Basis recovered from the output reproduces the stock within rounding
	recovered := ApplyShares(result.Rows, BasisFromAllocations(result.Rows))
	require.Len(t, recovered, len(result.Rows))
	for i := range recovered {
		assert.InDelta(t, result.Rows[i].AllocatedStock, recovered[i].AllocatedStock, 1e-9*math.Max(1, result.Rows[i].AllocatedStock))
	}

	// Repeating the allocation with identical input reproduces identical stock
	again := NewAllocator(nil).Allocate(model, demand, metrics)
	assert.Equal(t, result.Rows, again.Rows)
}
