package orchestration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testinghelpers "github.com/vsinha/meio/pkg/application/services/testing"
	"github.com/vsinha/meio/pkg/domain/entities"
	"github.com/vsinha/meio/pkg/infrastructure/repositories/memory"
)

type recordingObserver struct {
	stages []string
	rows   map[string]int
	skips  map[string]int
}

func (o *recordingObserver) ObserveStage(stage string, rows, issues int, skips map[string]int, elapsed time.Duration) {
	o.stages = append(o.stages, stage)
	o.rows[stage] += rows
	for reason, n := range skips {
		o.skips[reason] += n
	}
}

func buildRepositories(t *testing.T, network testinghelpers.Network, records []entities.DemandRecord) (*memory.NetworkRepository, *memory.DemandRepository) {
	t.Helper()
	networkRepo := memory.NewNetworkRepository(len(network.Nodes))
	require.NoError(t, networkRepo.LoadNodes(network.Nodes))
	require.NoError(t, networkRepo.LoadLeadTimes(network.Links))

	demandRepo := memory.NewDemandRepository()
	require.NoError(t, demandRepo.LoadDemand(records))
	return networkRepo, demandRepo
}

func TestPlanningOrchestrator_Run(t *testing.T) {
	network := testinghelpers.BuildThreeTierNetwork()
	jan := testinghelpers.Month(2024, time.January)
	records := testinghelpers.ConstantDemand(network.Stores(), "SKU1", []time.Time{jan}, 100)
	networkRepo, demandRepo := buildRepositories(t, network, records)

	observer := &recordingObserver{rows: map[string]int{}, skips: map[string]int{}}
	orchestrator := NewPlanningOrchestrator(Settings{}, networkRepo, demandRepo, observer, nil)
	orchestrator.now = func() time.Time { return time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC) }

	result, err := orchestrator.Run(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, result.RunID)
	assert.Equal(t, time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC), result.PlannedAt)
	assert.Equal(t, "actual", result.Settings.DemandBasis)
	assert.Equal(t, 30.0, result.Settings.DaysPerPeriod)
	assert.Equal(t, 0.95, result.Settings.ServiceLevel)

	assert.Len(t, result.Demand, 7)
	assert.Len(t, result.Metrics, 7)
	assert.Len(t, result.Allocations, 6)
	assert.Empty(t, result.Skips)
	assert.Empty(t, result.Issues)
	assert.NotEmpty(t, result.Orders)
	assert.NotEmpty(t, result.Costs)

	var warehouseOrders []entities.OrderEvent
	for _, order := range result.Orders {
		if order.Node == "WH1" {
			warehouseOrders = append(warehouseOrders, order)
		}
	}
	require.Len(t, warehouseOrders, 2)
	assert.Equal(t, entities.Quantity(100), warehouseOrders[0].Quantity)
	assert.Equal(t, entities.Quantity(100), warehouseOrders[1].Quantity)

	assert.Equal(t, []string{"hierarchy", "aggregation", "echelon", "allocation", "scheduling", "costing"}, observer.stages)
	assert.Equal(t, 7, observer.rows["echelon"])

	assert.Contains(t, result.GetSummary(), "7 metric rows")
}

func TestPlanningOrchestrator_ZeroDemandKeyIsAbsentDownstream(t *testing.T) {
	network := testinghelpers.BuildThreeTierNetwork()
	jan := testinghelpers.Month(2024, time.January)
	records := append(
		testinghelpers.ConstantDemand(network.Stores(), "LIVE", []time.Time{jan}, 100),
		testinghelpers.ConstantDemand(network.Stores(), "DEAD", []time.Time{jan}, 0)...,
	)
	networkRepo, demandRepo := buildRepositories(t, network, records)

	observer := &recordingObserver{rows: map[string]int{}, skips: map[string]int{}}
	result, err := NewPlanningOrchestrator(Settings{}, networkRepo, demandRepo, observer, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, result.Demand, 14, "zero demand rows are still aggregated")
	for _, m := range result.Metrics {
		assert.NotEqual(t, entities.SKU("DEAD"), m.SKU)
	}
	for _, a := range result.Allocations {
		assert.NotEqual(t, entities.SKU("DEAD"), a.SKU)
	}
	for _, o := range result.Orders {
		assert.NotEqual(t, entities.SKU("DEAD"), o.SKU)
	}
	assert.Len(t, result.Skips, 7)
	assert.Equal(t, 7, observer.skips["non-positive demand"])
}

func TestPlanningOrchestrator_ConfigurationErrorAbortsRun(t *testing.T) {
	network := testinghelpers.BuildThreeTierNetwork()
	network.Links = network.Links[1:] // drop DC1 -> WH1
	jan := testinghelpers.Month(2024, time.January)
	networkRepo, demandRepo := buildRepositories(t, network, testinghelpers.ConstantDemand(network.Stores(), "S", []time.Time{jan}, 10))

	result, err := NewPlanningOrchestrator(Settings{}, networkRepo, demandRepo, nil, nil).Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, result)

	var cfgErr *entities.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "missing lead time", cfgErr.Rule)

	var notFound *entities.LeadTimeNotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestPlanningOrchestrator_StrictModeAbortsOnOrphanDemand(t *testing.T) {
	network := testinghelpers.BuildThreeTierNetwork()
	jan := testinghelpers.Month(2024, time.January)
	records := []entities.DemandRecord{{Node: "NOWHERE", SKU: "S", Period: jan, Actual: 1}}
	networkRepo, demandRepo := buildRepositories(t, network, records)

	_, err := NewPlanningOrchestrator(Settings{Strict: true}, networkRepo, demandRepo, nil, nil).Run(context.Background())
	var orphan *entities.OrphanNodeError
	require.True(t, errors.As(err, &orphan))

	lenient, err := NewPlanningOrchestrator(Settings{}, networkRepo, demandRepo, nil, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, lenient.Issues, 1)
	assert.Empty(t, lenient.Demand)
	assert.Len(t, lenient.IssueMessages(), 1)
}

func TestPlanningOrchestrator_NoDemand(t *testing.T) {
	networkRepo, demandRepo := buildRepositories(t, testinghelpers.BuildThreeTierNetwork(), nil)

	_, err := NewPlanningOrchestrator(Settings{}, networkRepo, demandRepo, nil, nil).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no demand provided")
}

func TestPlanningOrchestrator_DescribeNetwork(t *testing.T) {
	networkRepo, demandRepo := buildRepositories(t, testinghelpers.BuildThreeTierNetwork(), nil)

	summary, err := NewPlanningOrchestrator(Settings{}, networkRepo, demandRepo, nil, nil).DescribeNetwork()
	require.NoError(t, err)

	assert.Equal(t, 7, summary.Nodes)
	assert.Equal(t, 6, summary.Links)
	assert.Equal(t, []entities.NodeCode{"DC1"}, summary.Roots)
	assert.Equal(t, 2, summary.MaxDepth)
	assert.Equal(t, map[string]int{"DC": 1, "Warehouse": 2, "Store": 4}, summary.TierCounts)
	require.Len(t, summary.Levels, 3)
	assert.Len(t, summary.Levels[2], 4)
}

func TestMultiObserver_FansOut(t *testing.T) {
	first := &recordingObserver{rows: map[string]int{}, skips: map[string]int{}}
	second := &recordingObserver{rows: map[string]int{}, skips: map[string]int{}}
	multi := MultiObserver{first, nil, second}

	multi.ObserveStage("costing", 3, 0, map[string]int{"zero cost": 1}, 0)

	for _, o := range []*recordingObserver{first, second} {
		if len(o.stages) != 1 || o.stages[0] != "costing" {
			t.Errorf("expected costing stage, got %v", o.stages)
		}
	}
}
