package csv

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/vsinha/meio/pkg/domain/entities"
	"github.com/vsinha/meio/pkg/domain/repositories"
)

// Default file names inside a scenario directory
const (
	NodesFile     = "nodes.csv"
	CostsFile     = "costs.csv"
	LeadTimesFile = "lead_times.csv"
	DemandFile    = "demand.csv"
)

var (
	nodesHeader         = []string{"node_code", "node_name", "parent_code", "tier"}
	nodesOptionalHeader = []string{"capacity", "service_level"}
	costsHeader         = []string{"node_code", "ordering_cost", "holding_cost"}
	leadTimesHeader     = []string{"source_code", "target_code", "lead_time_days"}
	demandHeader        = []string{"node_code", "sku_id", "period", "actual_quantity", "forecast_quantity"}
)

// Files names the four input tables of a planning run
type Files struct {
	Nodes     string
	Costs     string
	LeadTimes string
	Demand    string
}

// ScenarioFiles returns the default table paths inside dir
func ScenarioFiles(dir string) Files {
	return Files{
		Nodes:     filepath.Join(dir, NodesFile),
		Costs:     filepath.Join(dir, CostsFile),
		LeadTimes: filepath.Join(dir, LeadTimesFile),
		Demand:    filepath.Join(dir, DemandFile),
	}
}

// Scenario holds every table parsed from CSV
type Scenario struct {
	Nodes     []entities.Node
	Costs     []entities.NodeCost
	LeadTimes []entities.LeadTimeLink
	Demand    []entities.DemandRecord
}

// Populate loads the scenario into the given repositories and applies costs to nodes
func (s *Scenario) Populate(networkRepo repositories.NetworkRepository, demandRepo repositories.DemandRepository) error {
	if err := networkRepo.LoadNodes(s.Nodes); err != nil {
		return fmt.Errorf("failed to load nodes into repository: %w", err)
	}
	if err := networkRepo.ApplyCosts(s.Costs); err != nil {
		return fmt.Errorf("failed to load costs into repository: %w", err)
	}
	if err := networkRepo.LoadLeadTimes(s.LeadTimes); err != nil {
		return fmt.Errorf("failed to load lead times into repository: %w", err)
	}
	if demandRepo == nil {
		return nil
	}
	if err := demandRepo.LoadDemand(s.Demand); err != nil {
		return fmt.Errorf("failed to load demand into repository: %w", err)
	}
	return nil
}

// Loader handles loading planning data from CSV files
type Loader struct{}

// NewLoader creates a new CSV loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadScenario reads all four tables. An empty Demand path skips the demand table.
func (l *Loader) LoadScenario(files Files) (*Scenario, error) {
	var (
		scenario Scenario
		err      error
	)
	if scenario.Nodes, err = l.LoadNodes(files.Nodes); err != nil {
		return nil, fmt.Errorf("error loading nodes: %w", err)
	}
	if scenario.Costs, err = l.LoadCosts(files.Costs); err != nil {
		return nil, fmt.Errorf("error loading costs: %w", err)
	}
	if scenario.LeadTimes, err = l.LoadLeadTimes(files.LeadTimes); err != nil {
		return nil, fmt.Errorf("error loading lead times: %w", err)
	}
	if files.Demand != "" {
		if scenario.Demand, err = l.LoadDemand(files.Demand); err != nil {
			return nil, fmt.Errorf("error loading demand: %w", err)
		}
	}
	return &scenario, nil
}

// LoadNodes loads the node table. capacity and service_level are optional trailing columns.
func (l *Loader) LoadNodes(filename string) ([]entities.Node, error) {
	records, width, err := readTable(filename, "nodes", nodesHeader, nodesOptionalHeader)
	if err != nil {
		return nil, err
	}

	nodes := make([]entities.Node, 0, len(records))
	for i, record := range records {
		node, err := parseNode(record, width)
		if err != nil {
			return nil, fmt.Errorf("nodes CSV row %d: %w", i+2, err)
		}
		nodes = append(nodes, *node)
	}
	return nodes, nil
}

// LoadCosts loads the per-node cost table
func (l *Loader) LoadCosts(filename string) ([]entities.NodeCost, error) {
	records, _, err := readTable(filename, "costs", costsHeader, nil)
	if err != nil {
		return nil, err
	}

	costs := make([]entities.NodeCost, 0, len(records))
	for i, record := range records {
		ordering, err := parseFloat("ordering_cost", record[1])
		if err != nil {
			return nil, fmt.Errorf("costs CSV row %d: %w", i+2, err)
		}
		holding, err := parseFloat("holding_cost", record[2])
		if err != nil {
			return nil, fmt.Errorf("costs CSV row %d: %w", i+2, err)
		}
		costs = append(costs, entities.NodeCost{
			Node:         entities.NodeCode(strings.TrimSpace(record[0])),
			OrderingCost: ordering,
			HoldingCost:  holding,
		})
	}
	return costs, nil
}

// LoadLeadTimes loads the (source, target) lead time table
func (l *Loader) LoadLeadTimes(filename string) ([]entities.LeadTimeLink, error) {
	records, _, err := readTable(filename, "lead times", leadTimesHeader, nil)
	if err != nil {
		return nil, err
	}

	links := make([]entities.LeadTimeLink, 0, len(records))
	for i, record := range records {
		days, err := parseFloat("lead_time_days", record[2])
		if err != nil {
			return nil, fmt.Errorf("lead times CSV row %d: %w", i+2, err)
		}
		link, err := entities.NewLeadTimeLink(
			entities.NodeCode(strings.TrimSpace(record[0])),
			entities.NodeCode(strings.TrimSpace(record[1])),
			days,
		)
		if err != nil {
			return nil, fmt.Errorf("lead times CSV row %d: %w", i+2, err)
		}
		links = append(links, *link)
	}
	return links, nil
}

// LoadDemand loads leaf demand observations
func (l *Loader) LoadDemand(filename string) ([]entities.DemandRecord, error) {
	records, _, err := readTable(filename, "demand", demandHeader, nil)
	if err != nil {
		return nil, err
	}

	demand := make([]entities.DemandRecord, 0, len(records))
	for i, record := range records {
		row, err := parseDemand(record)
		if err != nil {
			return nil, fmt.Errorf("demand CSV row %d: %w", i+2, err)
		}
		demand = append(demand, row)
	}
	return demand, nil
}

// readTable reads a CSV file, validates its header and returns the data rows with the
// number of columns the header declared
func readTable(filename, name string, expected, optional []string) ([][]string, int, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open %s file %s: %w", name, filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read %s CSV: %w", name, err)
	}

	if len(records) < 2 {
		return nil, 0, fmt.Errorf("%s CSV must have header and at least one data row", name)
	}

	header := records[0]
	width, ok := matchHeader(header, expected, optional)
	if !ok {
		return nil, 0, fmt.Errorf("%s CSV header mismatch. Expected: %v, Got: %v", name, append(append([]string{}, expected...), optional...), header)
	}

	rows := records[1:]
	for i, record := range rows {
		if len(record) != width {
			return nil, 0, fmt.Errorf("%s CSV row %d: expected %d columns, got %d", name, i+2, width, len(record))
		}
	}
	return rows, width, nil
}

// matchHeader accepts the required columns followed by any prefix of the optional ones
func matchHeader(actual, expected, optional []string) (int, bool) {
	if len(actual) < len(expected) || len(actual) > len(expected)+len(optional) {
		return 0, false
	}

	all := append(append([]string{}, expected...), optional...)
	for i, col := range actual {
		if strings.ToLower(strings.TrimSpace(col)) != all[i] {
			return 0, false
		}
	}
	return len(actual), true
}

func parseNode(record []string, width int) (*entities.Node, error) {
	tier, err := entities.ParseTier(record[3])
	if err != nil {
		return nil, err
	}

	node, err := entities.NewNode(
		entities.NodeCode(strings.TrimSpace(record[0])),
		strings.TrimSpace(record[1]),
		tier,
		entities.NodeCode(strings.TrimSpace(record[2])),
		0,
		0,
	)
	if err != nil {
		return nil, err
	}

	if width > 4 && strings.TrimSpace(record[4]) != "" {
		capacity, err := parseFloat("capacity", record[4])
		if err != nil {
			return nil, err
		}
		if node, err = node.WithCapacity(capacity); err != nil {
			return nil, err
		}
	}
	if width > 5 && strings.TrimSpace(record[5]) != "" {
		level, err := parseFloat("service_level", record[5])
		if err != nil {
			return nil, err
		}
		if node, err = node.WithServiceLevel(level); err != nil {
			return nil, err
		}
	}
	return node, nil
}

func parseDemand(record []string) (entities.DemandRecord, error) {
	node := entities.NodeCode(strings.TrimSpace(record[0]))
	if node == "" {
		return entities.DemandRecord{}, fmt.Errorf("node_code cannot be empty")
	}
	sku := entities.SKU(strings.TrimSpace(record[1]))
	if sku == "" {
		return entities.DemandRecord{}, fmt.Errorf("sku_id cannot be empty")
	}

	period, err := parsePeriod(record[2])
	if err != nil {
		return entities.DemandRecord{}, err
	}

	actual, err := parseFloat("actual_quantity", record[3])
	if err != nil {
		return entities.DemandRecord{}, err
	}

	// forecast may be left blank when only actuals are known
	var forecast float64
	if strings.TrimSpace(record[4]) != "" {
		if forecast, err = parseFloat("forecast_quantity", record[4]); err != nil {
			return entities.DemandRecord{}, err
		}
	}

	return entities.DemandRecord{
		Node:     node,
		SKU:      sku,
		Period:   period,
		Actual:   actual,
		Forecast: forecast,
	}, nil
}

func parsePeriod(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01", s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid period format: %s (expected YYYY-MM-DD or YYYY-MM)", s)
}

func parseFloat(column, s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", column, s)
	}
	return v, nil
}
