package scheduling

import (
	"context"
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

func computeMetrics(t *testing.T, model *hierarchy.Model, records []entities.DemandRecord) []entities.EchelonMetric {
	t.Helper()
	agg, err := aggregation.NewAggregator(aggregation.Options{}, nil).Aggregate(model, records)
	require.NoError(t, err)
	result, err := echelon.NewEngine(echelon.Options{}, nil).Compute(context.Background(), model, agg.Rows)
	require.NoError(t, err)
	return result.Rows
}

func eventsFor(events []entities.OrderEvent, node entities.NodeCode) []entities.OrderEvent {
	var out []entities.OrderEvent
	for _, e := range events {
		if e.Node == node {
			out = append(out, e)
		}
	}
	return out
}

func TestSchedule_WarehouseFullOrders(t *testing.T) {
	network := testhelpers.BuildThreeTierNetwork()
	model := network.Model()
	metrics := computeMetrics(t, model, testhelpers.ConstantDemand(network.Stores(), "S", []time.Time{jan}, 100))

	events := NewScheduler(nil).Schedule(model, metrics)

	// D=200, EOQ=100: two full orders one 15 day cycle apart and no balance
	wh := eventsFor(events, "WH1")
	require.Len(t, wh, 2)
	for _, e := range wh {
		assert.Equal(t, entities.Quantity(100), e.Quantity)
		assert.False(t, e.Balance)
		assert.Equal(t, entities.NodeCode("DC1"), e.From)
		assert.Equal(t, jan, e.Period)
	}
	assert.Equal(t, jan, wh[0].OrderDate)
	assert.Equal(t, 15*24*time.Hour, wh[1].OrderDate.Sub(wh[0].OrderDate))

	dc := eventsFor(events, "DC1")
	require.NotEmpty(t, dc)
	for _, e := range dc {
		assert.Equal(t, entities.NodeCode(""), e.From, "root orders have no upstream node")
	}
}

func TestSchedule_BalanceOrder(t *testing.T) {
	model := testhelpers.BuildChainNetwork(1, 0).Model()
	metrics := computeMetrics(t, model, []entities.DemandRecord{{Node: "N0", SKU: "S", Period: jan, Actual: 250}})
	require.Len(t, metrics, 1)
	m := metrics[0]

	events := NewScheduler(nil).Schedule(model, metrics)

	// EOQ = sqrt(12500) ~ 111.8: two full orders and a balance of ~26.4
	require.Len(t, events, 3)
	assert.Equal(t, entities.Quantity(112), events[0].Quantity)
	assert.Equal(t, entities.Quantity(112), events[1].Quantity)
	assert.True(t, events[2].Balance)
	assert.Equal(t, entities.Quantity(27), events[2].Quantity)

	expected := jan.Add(time.Duration(2 * m.CycleTimeDays * float64(24*time.Hour)))
	assert.Equal(t, expected, events[2].OrderDate)
}

func TestSchedule_BackdatesByFullCycles(t *testing.T) {
	model := testhelpers.BuildChainNetwork(2, 45).Model()
	metrics := computeMetrics(t, model, []entities.DemandRecord{{Node: "N1", SKU: "S", Period: jan, Actual: 50}})

	events := eventsFor(NewScheduler(nil).Schedule(model, metrics), "N1")

	// 30 day cycle, one full cycle in the 45 day lead time
	require.Len(t, events, 1)
	assert.Equal(t, time.Date(2023, time.December, 2, 0, 0, 0, 0, time.UTC), events[0].OrderDate,
		"dates before the period are not clipped")
	assert.Equal(t, entities.Quantity(50), events[0].Quantity)
	assert.Equal(t, entities.NodeCode("N0"), events[0].From)
}

func TestSchedule_NoEventsForDegenerateRows(t *testing.T) {
	model := testhelpers.BuildChainNetwork(1, 0).Model()
	metrics := []entities.EchelonMetric{
		{Node: "N0", SKU: "A", Period: jan, AverageDemand: 0, EOQ: 10, CycleTimeDays: 3},
		{Node: "N0", SKU: "B", Period: jan, AverageDemand: 10, EOQ: 0},
		{Node: "N0", SKU: "C", Period: jan, AverageDemand: -1, EOQ: 10},
	}

	events := NewScheduler(nil).Schedule(model, metrics)
	assert.Empty(t, events)
}

func TestSchedule_QuantitiesCoverDemand(t *testing.T) {
	model := testhelpers.BuildChainNetwork(1, 0).Model()
	demands := []float64{1, 7, 24.5, 99, 100, 101, 333.3, 1000, 12345}

	var records []entities.DemandRecord
	for i, d := range demands {
		records = append(records, entities.DemandRecord{Node: "N0", SKU: "S", Period: jan.AddDate(0, i, 0), Actual: d})
	}
	metrics := computeMetrics(t, model, records)
	require.Len(t, metrics, len(demands))

	events := NewScheduler(nil).Schedule(model, metrics)

	byKey := make(map[entities.DemandKey][]entities.OrderEvent)
	for _, e := range events {
		byKey[e.Key()] = append(byKey[e.Key()], e)
	}

	for _, m := range metrics {
		rows := byKey[m.Key()]
		require.NotEmpty(t, rows, "%s", m.Key())

		var total entities.Quantity
		balances := 0
		for _, e := range rows {
			total += e.Quantity
			if e.Balance {
				balances++
				continue
			}
			assert.Equal(t, RoundUp(m.EOQ), e.Quantity, "full orders equal EOQ rounded up")
		}

		assert.LessOrEqual(t, balances, 1)
		assert.GreaterOrEqual(t, float64(total), m.AverageDemand-1e-9)
		// Rounding adds less than one unit per event
		assert.Less(t, float64(total)-m.AverageDemand, float64(len(rows)))
	}
}

func TestSchedule_SortedByKeyThenDate(t *testing.T) {
	network := testhelpers.BuildThreeTierNetwork()
	model := network.Model()
	metrics := computeMetrics(t, model, testhelpers.ConstantDemand(network.Stores(), "S", testhelpers.Months(2024, time.January, 3), 60))

	events := NewScheduler(nil).Schedule(model, metrics)
	require.NotEmpty(t, events)

	for i := 1; i < len(events); i++ {
		prev, cur := events[i-1], events[i]
		if prev.Key() == cur.Key() {
			assert.False(t, cur.OrderDate.Before(prev.OrderDate))
			continue
		}
		assert.True(t, prev.Key().Less(cur.Key()))
	}
}

func TestRoundUp(t *testing.T) {
	tests := []struct {
		input    float64
		expected entities.Quantity
	}{
		{100, 100},
		{100.0000000000001, 100},
		{100.2, 101},
		{math.Sqrt(5000), 71},
		{0.3, 1},
	}

	for _, tt := range tests {
		if got := RoundUp(tt.input); got != tt.expected {
			t.Errorf("Expected RoundUp(%v) = %d, got %d", tt.input, tt.expected, got)
		}
	}
}
