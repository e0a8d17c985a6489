package orchestration

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vsinha/meio/pkg/application/dto"
	"github.com/vsinha/meio/pkg/application/services/aggregation"
	"github.com/vsinha/meio/pkg/application/services/allocation"
	"github.com/vsinha/meio/pkg/application/services/costing"
	"github.com/vsinha/meio/pkg/application/services/echelon"
	"github.com/vsinha/meio/pkg/application/services/hierarchy"
	"github.com/vsinha/meio/pkg/application/services/scheduling"
	"github.com/vsinha/meio/pkg/application/services/shared"
	"github.com/vsinha/meio/pkg/domain/entities"
	"github.com/vsinha/meio/pkg/domain/repositories"
)

// StageObserver receives the outcome of every pipeline stage
type StageObserver interface {
	ObserveStage(stage string, rows, issues int, skips map[string]int, elapsed time.Duration)
}

// MultiObserver fans a stage outcome out to several observers in order
type MultiObserver []StageObserver

func (m MultiObserver) ObserveStage(stage string, rows, issues int, skips map[string]int, elapsed time.Duration) {
	for _, o := range m {
		if o != nil {
			o.ObserveStage(stage, rows, issues, skips, elapsed)
		}
	}
}

// Settings holds the tunables shared by the pipeline stages
type Settings struct {
	Basis         entities.DemandBasis
	Granularity   shared.Granularity
	DaysPerPeriod float64
	ServiceLevel  float64
	ZScore        float64
	Strict        bool
	Workers       int
}

// PlanningOrchestrator runs the stages in dependency order:
// hierarchy -> aggregation -> echelon -> allocation -> scheduling -> costing
type PlanningOrchestrator struct {
	settings    Settings
	aggregator  *aggregation.Aggregator
	engine      *echelon.Engine
	allocator   *allocation.Allocator
	scheduler   *scheduling.Scheduler
	evaluator   *costing.Evaluator
	networkRepo repositories.NetworkRepository
	demandRepo  repositories.DemandRepository
	observer    StageObserver
	logger      logrus.FieldLogger
	now         func() time.Time
}

// NewPlanningOrchestrator creates a new planning orchestrator. observer and logger may be nil.
func NewPlanningOrchestrator(
	settings Settings,
	networkRepo repositories.NetworkRepository,
	demandRepo repositories.DemandRepository,
	observer StageObserver,
	logger logrus.FieldLogger,
) *PlanningOrchestrator {
	logger = shared.LoggerOrDiscard(logger)
	if settings.ServiceLevel <= 0 || settings.ServiceLevel >= 1 {
		settings.ServiceLevel = echelon.DefaultServiceLevel
	}
	return &PlanningOrchestrator{
		settings: settings,
		aggregator: aggregation.NewAggregator(aggregation.Options{
			Basis:       settings.Basis,
			Granularity: settings.Granularity,
			Strict:      settings.Strict,
		}, logger),
		engine: echelon.NewEngine(echelon.Options{
			ServiceLevel:  settings.ServiceLevel,
			ZScore:        settings.ZScore,
			Granularity:   settings.Granularity,
			DaysPerPeriod: settings.DaysPerPeriod,
			Workers:       settings.Workers,
		}, logger),
		allocator: allocation.NewAllocator(logger),
		scheduler: scheduling.NewScheduler(logger),
		evaluator: costing.NewEvaluator(costing.Options{
			Granularity:   settings.Granularity,
			DaysPerPeriod: settings.DaysPerPeriod,
		}, logger),
		networkRepo: networkRepo,
		demandRepo:  demandRepo,
		observer:    observer,
		logger:      logger,
		now:         time.Now,
	}
}

// LoadNetwork validates the stored network and builds the hierarchy model
func (po *PlanningOrchestrator) LoadNetwork() (*hierarchy.Model, error) {
	nodes, err := po.networkRepo.GetAllNodes()
	if err != nil {
		return nil, fmt.Errorf("failed to get nodes: %w", err)
	}
	links, err := po.networkRepo.GetLeadTimes()
	if err != nil {
		return nil, fmt.Errorf("failed to get lead times: %w", err)
	}

	start := time.Now()
	model, err := hierarchy.Load(nodes, links)
	if err != nil {
		return nil, fmt.Errorf("failed to load hierarchy: %w", err)
	}
	po.observe("hierarchy", model.Len(), 0, nil, time.Since(start))
	return model, nil
}

// DescribeNetwork validates the network and summarises its shape without planning
func (po *PlanningOrchestrator) DescribeNetwork() (*dto.NetworkSummary, error) {
	model, err := po.LoadNetwork()
	if err != nil {
		return nil, err
	}
	links, err := po.networkRepo.GetLeadTimes()
	if err != nil {
		return nil, fmt.Errorf("failed to get lead times: %w", err)
	}

	summary := &dto.NetworkSummary{
		Nodes:      model.Len(),
		Links:      len(links),
		Roots:      model.Roots(),
		MaxDepth:   model.MaxDepth(),
		TierCounts: make(map[string]int),
	}
	for depth := 0; depth <= model.MaxDepth(); depth++ {
		summary.Levels = append(summary.Levels, model.NodesAtDepth(depth))
	}
	for _, code := range model.Codes() {
		node, _ := model.Node(code)
		summary.TierCounts[node.Tier.String()]++
	}
	return summary, nil
}

// Run executes a complete planning pass over the stored network and demand.
// Configuration errors abort before any stage runs; data issues and numeric skips are reported.
func (po *PlanningOrchestrator) Run(ctx context.Context) (*dto.PlanningResult, error) {
	model, err := po.LoadNetwork()
	if err != nil {
		return nil, err
	}

	records, err := po.demandRepo.GetDemand()
	if err != nil {
		return nil, fmt.Errorf("failed to get demand: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no demand provided for planning")
	}

	result := &dto.PlanningResult{
		RunID:     uuid.New(),
		PlannedAt: po.now().UTC(),
		Settings: dto.RunSettings{
			DemandBasis:   po.settings.Basis.String(),
			Granularity:   po.settings.Granularity.String(),
			DaysPerPeriod: po.daysPerPeriod(),
			ServiceLevel:  po.settings.ServiceLevel,
			ZScore:        po.settings.ZScore,
			Strict:        po.settings.Strict,
		},
	}
	logger := po.logger.WithField("run_id", result.RunID.String())

	// Step 1: Roll leaf demand up the hierarchy
	start := time.Now()
	aggregated, err := po.aggregator.Aggregate(model, records)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate demand: %w", err)
	}
	result.Demand = aggregated.Rows
	result.Issues = append(result.Issues, aggregated.Issues...)
	po.observe(aggregation.Stage, len(aggregated.Rows), len(aggregated.Issues), nil, time.Since(start))

	// Step 2: Derive the replenishment policy per node
	start = time.Now()
	metrics, err := po.engine.Compute(ctx, model, aggregated.Rows)
	if err != nil {
		return nil, err
	}
	result.Metrics = metrics.Rows
	result.Skips = metrics.Skips
	po.observe(echelon.Stage, len(metrics.Rows), 0, countReasons(metrics.Skips), time.Since(start))

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("planning cancelled: %w", err)
	}

	// Step 3: Push target stock down the hierarchy
	start = time.Now()
	allocated := po.allocator.Allocate(model, aggregated.Rows, metrics.Rows)
	result.Allocations = allocated.Rows
	result.Issues = append(result.Issues, allocated.Issues...)
	po.observe(allocation.Stage, len(allocated.Rows), len(allocated.Issues), nil, time.Since(start))

	// Step 4: Materialise dated orders
	start = time.Now()
	result.Orders = po.scheduler.Schedule(model, metrics.Rows)
	po.observe(scheduling.Stage, len(result.Orders), 0, nil, time.Since(start))

	// Step 5: Compare policy cost with the per-period baseline
	start = time.Now()
	result.Costs = po.evaluator.Evaluate(model, metrics.Rows, result.Orders)
	po.observe(costing.Stage, len(result.Costs), 0, nil, time.Since(start))

	logger.WithFields(logrus.Fields{
		"demand_rows": len(result.Demand),
		"metrics":     len(result.Metrics),
		"allocations": len(result.Allocations),
		"orders":      len(result.Orders),
		"skips":       len(result.Skips),
		"issues":      len(result.Issues),
	}).Info("planning run completed")

	return result, nil
}

func (po *PlanningOrchestrator) daysPerPeriod() float64 {
	if po.settings.DaysPerPeriod > 0 {
		return po.settings.DaysPerPeriod
	}
	return po.settings.Granularity.DaysPerPeriod()
}

func (po *PlanningOrchestrator) observe(stage string, rows, issues int, skips map[string]int, elapsed time.Duration) {
	if po.observer == nil {
		return
	}
	po.observer.ObserveStage(stage, rows, issues, skips, elapsed)
}

func countReasons(skips []entities.NumericGuardSkip) map[string]int {
	counts := make(map[string]int)
	for _, skip := range skips {
		counts[skip.Reason]++
	}
	return counts
}
