package services

import (
	"fmt"
	"sort"

	"github.com/vsinha/meio/pkg/domain/entities"
)

// HierarchyValidator provides validation for distribution network integrity
type HierarchyValidator struct{}

// NewHierarchyValidator creates a new hierarchy validator
func NewHierarchyValidator() *HierarchyValidator {
	return &HierarchyValidator{}
}

// ValidationResult contains the results of network validation
type ValidationResult struct {
	HasCycles         bool
	CyclePaths        [][]entities.NodeCode
	DuplicateNodes    []entities.NodeCode
	UnresolvedParents []entities.NodeCode
	TierViolations    []entities.NodeCode
	DuplicateLinks    []entities.LeadTimeLink
	UnknownLinkNodes  []entities.LeadTimeLink
	MissingLeadTimes  []entities.LeadTimeLink // realised pairs without a link, LeadTimeDays unset
	Violations        []*entities.ConfigurationError
	Errors            []string
}

// Valid reports whether no rule was violated
func (r *ValidationResult) Valid() bool {
	return len(r.Violations) == 0
}

// FirstViolation returns the first violated rule, or nil
func (r *ValidationResult) FirstViolation() error {
	if len(r.Violations) == 0 {
		return nil
	}
	return r.Violations[0]
}

func (r *ValidationResult) addViolation(rule, entity string, err error) {
	v := &entities.ConfigurationError{Rule: rule, Entity: entity, Err: err}
	r.Violations = append(r.Violations, v)
	r.Errors = append(r.Errors, v.Error())
}

// ValidateHierarchy performs comprehensive validation on nodes and lead-time links
func (v *HierarchyValidator) ValidateHierarchy(nodes []entities.Node, links []entities.LeadTimeLink) *ValidationResult {
	result := &ValidationResult{
		CyclePaths: make([][]entities.NodeCode, 0),
		Errors:     make([]string, 0),
	}

	byCode := make(map[entities.NodeCode]entities.Node, len(nodes))
	for _, node := range nodes {
		if _, exists := byCode[node.Code]; exists {
			result.DuplicateNodes = append(result.DuplicateNodes, node.Code)
			result.addViolation("duplicate node code", string(node.Code), nil)
			continue
		}
		byCode[node.Code] = node
	}

	// Parent references must resolve before the graph can be walked
	for _, node := range nodes {
		if node.ParentCode == "" {
			continue
		}
		if _, exists := byCode[node.ParentCode]; !exists {
			result.UnresolvedParents = append(result.UnresolvedParents, node.Code)
			result.addViolation("unresolved parent", fmt.Sprintf("%s -> %s", node.Code, node.ParentCode), nil)
		}
	}

	adjacencyMap := v.buildAdjacencyMap(byCode)

	cycles := v.detectCycles(adjacencyMap, byCode)
	result.HasCycles = len(cycles) > 0
	result.CyclePaths = cycles
	for _, cycle := range cycles {
		result.addViolation("cyclic hierarchy", fmt.Sprintf("%v", cycle), nil)
	}

	// Tier must strictly increase from parent to child
	for _, node := range nodes {
		parent, exists := byCode[node.ParentCode]
		if node.ParentCode == "" || !exists {
			continue
		}
		if node.Tier <= parent.Tier {
			result.TierViolations = append(result.TierViolations, node.Code)
			result.addViolation(
				"tier must increase from parent to child",
				fmt.Sprintf("%s (%s) under %s (%s)", node.Code, node.Tier, parent.Code, parent.Tier),
				nil,
			)
		}
	}

	v.validateLinks(links, byCode, result)

	return result
}

// validateLinks checks that every realised (parent, child) pair has exactly one lead time
func (v *HierarchyValidator) validateLinks(
	links []entities.LeadTimeLink,
	byCode map[entities.NodeCode]entities.Node,
	result *ValidationResult,
) {
	type pair struct{ source, target entities.NodeCode }
	seen := make(map[pair]bool, len(links))

	for _, link := range links {
		_, sourceKnown := byCode[link.Source]
		_, targetKnown := byCode[link.Target]
		if !sourceKnown || !targetKnown {
			result.UnknownLinkNodes = append(result.UnknownLinkNodes, link)
			result.addViolation("lead time references unknown node", fmt.Sprintf("%s -> %s", link.Source, link.Target), nil)
			continue
		}

		key := pair{link.Source, link.Target}
		if seen[key] {
			result.DuplicateLinks = append(result.DuplicateLinks, link)
			result.addViolation("duplicate lead time", fmt.Sprintf("%s -> %s", link.Source, link.Target), nil)
			continue
		}
		seen[key] = true
	}

	codes := sortedCodes(byCode)
	for _, code := range codes {
		node := byCode[code]
		if node.ParentCode == "" {
			continue
		}
		if _, exists := byCode[node.ParentCode]; !exists {
			continue
		}
		if !seen[pair{node.ParentCode, node.Code}] {
			missing := entities.LeadTimeLink{Source: node.ParentCode, Target: node.Code}
			result.MissingLeadTimes = append(result.MissingLeadTimes, missing)
			result.addViolation(
				"missing lead time",
				fmt.Sprintf("%s -> %s", node.ParentCode, node.Code),
				&entities.LeadTimeNotFoundError{Parent: node.ParentCode, Child: node.Code},
			)
		}
	}
}

// buildAdjacencyMap creates a map of parent -> children relationships
func (v *HierarchyValidator) buildAdjacencyMap(byCode map[entities.NodeCode]entities.Node) map[entities.NodeCode][]entities.NodeCode {
	adjacencyMap := make(map[entities.NodeCode][]entities.NodeCode)

	for _, code := range sortedCodes(byCode) {
		node := byCode[code]
		if node.ParentCode == "" {
			continue
		}
		adjacencyMap[node.ParentCode] = append(adjacencyMap[node.ParentCode], node.Code)
	}

	return adjacencyMap
}

// detectCycles uses DFS to find cycles in the parent graph
func (v *HierarchyValidator) detectCycles(
	adjacencyMap map[entities.NodeCode][]entities.NodeCode,
	byCode map[entities.NodeCode]entities.Node,
) [][]entities.NodeCode {
	visited := make(map[entities.NodeCode]bool)
	recursionStack := make(map[entities.NodeCode]bool)
	cycles := make([][]entities.NodeCode, 0)

	// Nodes on a cycle are unreachable from any root, so start from every node
	for _, code := range sortedCodes(byCode) {
		if !visited[code] {
			path := make([]entities.NodeCode, 0)
			v.dfsDetectCycle(code, adjacencyMap, visited, recursionStack, path, &cycles)
		}
	}

	return cycles
}

// dfsDetectCycle performs depth-first search to detect cycles
func (v *HierarchyValidator) dfsDetectCycle(
	current entities.NodeCode,
	adjacencyMap map[entities.NodeCode][]entities.NodeCode,
	visited map[entities.NodeCode]bool,
	recursionStack map[entities.NodeCode]bool,
	path []entities.NodeCode,
	cycles *[][]entities.NodeCode,
) {
	visited[current] = true
	recursionStack[current] = true
	path = append(path, current)

	for _, child := range adjacencyMap[current] {
		if !visited[child] {
			v.dfsDetectCycle(child, adjacencyMap, visited, recursionStack, path, cycles)
		} else if recursionStack[child] {
			cycleStart := -1
			for i, code := range path {
				if code == child {
					cycleStart = i
					break
				}
			}

			if cycleStart != -1 {
				cycle := make([]entities.NodeCode, 0, len(path)-cycleStart+1)
				cycle = append(cycle, path[cycleStart:]...)
				cycle = append(cycle, child) // close the cycle
				*cycles = append(*cycles, cycle)
			}
		}
	}

	recursionStack[current] = false
}

func sortedCodes(byCode map[entities.NodeCode]entities.Node) []entities.NodeCode {
	codes := make([]entities.NodeCode, 0, len(byCode))
	for code := range byCode {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}
