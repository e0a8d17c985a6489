package dto

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vsinha/meio/pkg/domain/entities"
)

// PlanningResult contains the complete output of a planning run
type PlanningResult struct {
	RunID       uuid.UUID
	PlannedAt   time.Time
	Settings    RunSettings
	Demand      []entities.AggregatedDemand
	Metrics     []entities.EchelonMetric
	Allocations []entities.Allocation
	Orders      []entities.OrderEvent
	Costs       []entities.CostComparison
	Skips       []entities.NumericGuardSkip
	Issues      []error
}

// RunSettings records the parameters a run was computed with
type RunSettings struct {
	DemandBasis   string  `json:"demand_basis"`
	Granularity   string  `json:"granularity"`
	DaysPerPeriod float64 `json:"days_per_period"`
	ServiceLevel  float64 `json:"service_level"`
	ZScore        float64 `json:"z_score,omitempty"`
	Strict        bool    `json:"strict"`
}

// IssueMessages returns the reported issues as strings
func (r *PlanningResult) IssueMessages() []string {
	messages := make([]string, 0, len(r.Issues))
	for _, issue := range r.Issues {
		messages = append(messages, issue.Error())
	}
	return messages
}

// GetSummary returns a formatted summary of the planning results
func (r *PlanningResult) GetSummary() string {
	summary := fmt.Sprintf("Planning Summary (run %s):\n", r.RunID)
	summary += fmt.Sprintf("  Demand: %d aggregated rows\n", len(r.Demand))
	summary += fmt.Sprintf("  Policy: %d metric rows, %d skipped\n", len(r.Metrics), len(r.Skips))
	summary += fmt.Sprintf("  Allocation: %d rows\n", len(r.Allocations))
	summary += fmt.Sprintf("  Schedule: %d order events\n", len(r.Orders))
	summary += fmt.Sprintf("  Issues: %d", len(r.Issues))
	return summary
}

// NetworkSummary describes a validated network
type NetworkSummary struct {
	Nodes      int                   `json:"nodes"`
	Links      int                   `json:"links"`
	Roots      []entities.NodeCode   `json:"roots"`
	MaxDepth   int                   `json:"max_depth"`
	TierCounts map[string]int        `json:"tier_counts"`
	Levels     [][]entities.NodeCode `json:"levels"`
}
