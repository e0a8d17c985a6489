package memory

import (
	"fmt"

	"github.com/vsinha/meio/pkg/domain/entities"
	"github.com/vsinha/meio/pkg/domain/repositories"
)

// NetworkRepository provides in-memory node and lead-time storage.
// Nodes are kept in load order, duplicates included, so validation can report them.
type NetworkRepository struct {
	nodes    []entities.Node
	nodesMap map[entities.NodeCode]int
	links    []entities.LeadTimeLink
}

// NewNetworkRepository creates a new in-memory network repository
func NewNetworkRepository(expectedNodes int) *NetworkRepository {
	return &NetworkRepository{
		nodes:    make([]entities.Node, 0, expectedNodes),
		nodesMap: make(map[entities.NodeCode]int, expectedNodes),
		links:    make([]entities.LeadTimeLink, 0, expectedNodes),
	}
}

// Verify interface compliance
var _ repositories.NetworkRepository = (*NetworkRepository)(nil)

// LoadNodes loads nodes into the repository
func (r *NetworkRepository) LoadNodes(nodes []entities.Node) error {
	for _, node := range nodes {
		r.AddNode(node)
	}
	return nil
}

// AddNode adds a node to the repository. The first node with a code wins lookups.
func (r *NetworkRepository) AddNode(node entities.Node) {
	if _, exists := r.nodesMap[node.Code]; !exists {
		r.nodesMap[node.Code] = len(r.nodes)
	}
	r.nodes = append(r.nodes, node)
}

// GetNode returns master data for a node code
func (r *NetworkRepository) GetNode(code entities.NodeCode) (*entities.Node, error) {
	index, exists := r.nodesMap[code]
	if !exists {
		return nil, fmt.Errorf("node not found: %s", code)
	}
	return &r.nodes[index], nil
}

// GetAllNodes returns a copy of every loaded node
func (r *NetworkRepository) GetAllNodes() ([]entities.Node, error) {
	nodes := make([]entities.Node, len(r.nodes))
	copy(nodes, r.nodes)
	return nodes, nil
}

// LoadLeadTimes loads lead-time links into the repository
func (r *NetworkRepository) LoadLeadTimes(links []entities.LeadTimeLink) error {
	r.links = append(r.links, links...)
	return nil
}

// GetLeadTimes returns a copy of every loaded lead-time link
func (r *NetworkRepository) GetLeadTimes() ([]entities.LeadTimeLink, error) {
	links := make([]entities.LeadTimeLink, len(r.links))
	copy(links, r.links)
	return links, nil
}

// ApplyCosts copies cost rows onto the loaded nodes
func (r *NetworkRepository) ApplyCosts(costs []entities.NodeCost) error {
	if err := entities.ApplyCosts(r.nodes, costs); err != nil {
		return fmt.Errorf("failed to apply costs: %w", err)
	}
	return nil
}
