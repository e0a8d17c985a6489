package commands

import (
	"fmt"
	"os"

	"github.com/vsinha/meio/pkg/infrastructure/repositories/csv"
)

// resolveInputFiles determines the table paths to use. Individual file flags override the
// scenario directory defaults.
func (c Config) resolveInputFiles(withDemand bool) (csv.Files, error) {
	var files csv.Files
	if c.ScenarioDir != "" {
		files = csv.ScenarioFiles(c.ScenarioDir)
	}
	override(&files.Nodes, c.NodesFile)
	override(&files.Costs, c.CostsFile)
	override(&files.LeadTimes, c.LeadTimesFile)
	override(&files.Demand, c.DemandFile)
	if !withDemand {
		files.Demand = ""
	}

	required := map[string]string{
		"nodes":      files.Nodes,
		"costs":      files.Costs,
		"lead times": files.LeadTimes,
	}
	if withDemand {
		required["demand"] = files.Demand
	}

	for _, name := range []string{"nodes", "costs", "lead times", "demand"} {
		path, ok := required[name]
		if !ok {
			continue
		}
		if path == "" {
			return files, fmt.Errorf("must specify either --scenario directory or the %s file", name)
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return files, fmt.Errorf("%s file not found: %s", name, path)
		}
	}
	return files, nil
}

func override(target *string, value string) {
	if value != "" {
		*target = value
	}
}
