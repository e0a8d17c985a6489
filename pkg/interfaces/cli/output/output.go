package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vsinha/meio/pkg/application/dto"
)

// Config holds configuration for output generation
type Config struct {
	Format    string
	OutputDir string
	Verbose   bool
	RunTime   time.Duration
	Out       io.Writer // defaults to stdout
}

func (c Config) writer() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

// Report is the JSON shape of a planning result
type Report struct {
	RunID       string          `json:"run_id"`
	PlannedAt   time.Time       `json:"planned_at"`
	Settings    dto.RunSettings `json:"settings"`
	Demand      any             `json:"demand"`
	Metrics     any             `json:"metrics"`
	Allocations any             `json:"allocations"`
	Orders      any             `json:"orders"`
	Costs       any             `json:"costs"`
	Skips       []string        `json:"skips"`
	Issues      []string        `json:"issues"`
}

// NewReport converts a result into its JSON report
func NewReport(result *dto.PlanningResult) Report {
	skips := make([]string, 0, len(result.Skips))
	for _, s := range result.Skips {
		skips = append(skips, s.String())
	}
	return Report{
		RunID:       result.RunID.String(),
		PlannedAt:   result.PlannedAt,
		Settings:    result.Settings,
		Demand:      result.Demand,
		Metrics:     result.Metrics,
		Allocations: result.Allocations,
		Orders:      result.Orders,
		Costs:       result.Costs,
		Skips:       skips,
		Issues:      result.IssueMessages(),
	}
}

// Generate creates output in the specified format and returns the files written
func Generate(result *dto.PlanningResult, config Config) ([]string, error) {
	switch config.Format {
	case "", "text":
		return nil, generateTextOutput(result, config)
	case "json":
		return generateJSONOutput(result, config)
	case "csv":
		return generateCSVOutput(result, config)
	case "xlsx":
		return generateXLSXOutput(result, config)
	default:
		return nil, fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

// generateTextOutput prints a human-readable summary with the order and cost tables
func generateTextOutput(result *dto.PlanningResult, config Config) error {
	w := config.writer()

	fmt.Fprintf(w, "📊 Planning Results Summary\n")
	fmt.Fprintf(w, "===========================\n\n")
	fmt.Fprintf(w, "%s\n", result.GetSummary())
	if config.RunTime > 0 {
		fmt.Fprintf(w, "Run Time: %v\n", config.RunTime)
	}
	fmt.Fprintln(w)

	if len(result.Metrics) > 0 {
		fmt.Fprintf(w, "📐 Replenishment Policy:\n")
		fmt.Fprintf(w, "%-10s %-10s %-12s %10s %10s %10s %10s %10s\n",
			"Node", "SKU", "Period", "Demand", "EOQ", "ROP", "SS", "Target")
		for _, m := range result.Metrics {
			fmt.Fprintf(w, "%-10s %-10s %-12s %10.2f %10.2f %10.2f %10.2f %10.2f\n",
				m.Node, m.SKU, m.Period.Format(dateLayout),
				m.AverageDemand, m.EOQ, m.ReorderPoint, m.SafetyStock, m.TotalTargetStock)
		}
		fmt.Fprintln(w)
	}

	if len(result.Orders) > 0 {
		fmt.Fprintf(w, "📋 Order Schedule:\n")
		fmt.Fprintf(w, "%-10s %-10s %-10s %-12s %-12s %8s %-8s\n",
			"From", "Node", "SKU", "Period", "Order Date", "Qty", "Balance")
		for _, o := range result.Orders {
			fmt.Fprintf(w, "%-10s %-10s %-10s %-12s %-12s %8d %-8t\n",
				o.From, o.Node, o.SKU, o.Period.Format(dateLayout), o.OrderDate.Format(dateLayout), o.Quantity, o.Balance)
		}
		fmt.Fprintln(w)
	}

	if len(result.Costs) > 0 {
		fmt.Fprintf(w, "💰 Cost Comparison:\n")
		fmt.Fprintf(w, "%-10s %-10s %-12s %7s %12s %12s %12s\n",
			"Node", "SKU", "Period", "Orders", "EOQ Cost", "Baseline", "Savings")
		for _, c := range result.Costs {
			sku := string(c.SKU)
			if c.IsAggregate() {
				sku = "*"
			}
			fmt.Fprintf(w, "%-10s %-10s %-12s %7d %12s %12s %12s\n",
				c.Node, sku, c.Period.Format(dateLayout), c.OrdersPlaced,
				c.TotalCostEOQ.StringFixed(2), c.TotalCostBaseline.StringFixed(2), c.Savings().StringFixed(2))
		}
		fmt.Fprintln(w)
	}

	if len(result.Skips) > 0 || len(result.Issues) > 0 {
		fmt.Fprintf(w, "⚠️  Skips and Issues:\n")
		for _, s := range result.Skips {
			fmt.Fprintf(w, "  %s\n", s)
		}
		for _, msg := range result.IssueMessages() {
			fmt.Fprintf(w, "  %s\n", msg)
		}
		fmt.Fprintln(w)
	}

	return nil
}

// generateJSONOutput writes the report to stdout, or to planning_results.json in OutputDir
func generateJSONOutput(result *dto.PlanningResult, config Config) ([]string, error) {
	jsonData, err := json.MarshalIndent(NewReport(result), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if config.OutputDir == "" {
		fmt.Fprintln(config.writer(), string(jsonData))
		return nil, nil
	}

	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	filename := filepath.Join(config.OutputDir, "planning_results.json")
	if err := os.WriteFile(filename, jsonData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write JSON file: %w", err)
	}
	if config.Verbose {
		fmt.Fprintf(config.writer(), "💾 JSON results saved to: %s\n", filename)
	}
	return []string{filename}, nil
}

// generateCSVOutput writes one CSV file per table
func generateCSVOutput(result *dto.PlanningResult, config Config) ([]string, error) {
	if config.OutputDir == "" {
		return nil, fmt.Errorf("output directory required for CSV format")
	}
	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var files []string
	for _, table := range Tables(result) {
		filename := filepath.Join(config.OutputDir, table.Name+".csv")
		if err := writeTableCSV(table, filename); err != nil {
			return files, fmt.Errorf("failed to write %s CSV: %w", table.Name, err)
		}
		files = append(files, filename)
	}

	if config.Verbose {
		fmt.Fprintf(config.writer(), "💾 CSV results saved to:\n")
		for _, f := range files {
			fmt.Fprintf(config.writer(), "  %s\n", f)
		}
	}
	return files, nil
}

func writeTableCSV(table Table, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(table.Header); err != nil {
		return err
	}
	record := make([]string, len(table.Header))
	for _, row := range table.Rows {
		for i, v := range row {
			record[i] = formatCell(v)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return file.Close()
}

// GenerateNetwork prints a validated network summary as text or JSON
func GenerateNetwork(summary *dto.NetworkSummary, config Config) error {
	w := config.writer()
	switch config.Format {
	case "json":
		data, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(w, string(data))
		return nil
	case "", "text":
		fmt.Fprintf(w, "✅ Network is valid\n")
		fmt.Fprintf(w, "  Nodes: %d\n", summary.Nodes)
		fmt.Fprintf(w, "  Lead time links: %d\n", summary.Links)
		fmt.Fprintf(w, "  Max depth: %d\n", summary.MaxDepth)
		for _, tier := range []string{"DC", "Warehouse", "Store"} {
			if n := summary.TierCounts[tier]; n > 0 {
				fmt.Fprintf(w, "  %s: %d\n", tier, n)
			}
		}
		for depth, level := range summary.Levels {
			codes := make([]string, len(level))
			for i, c := range level {
				codes[i] = string(c)
			}
			fmt.Fprintf(w, "  Level %d: %s\n", depth, strings.Join(codes, ", "))
		}
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}
