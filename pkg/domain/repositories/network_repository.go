package repositories

import "github.com/vsinha/meio/pkg/domain/entities"

// NetworkRepository provides access to node master data and lead times
type NetworkRepository interface {
	GetNode(code entities.NodeCode) (*entities.Node, error)
	GetAllNodes() ([]entities.Node, error)
	GetLeadTimes() ([]entities.LeadTimeLink, error)
	LoadNodes(nodes []entities.Node) error
	LoadLeadTimes(links []entities.LeadTimeLink) error
	ApplyCosts(costs []entities.NodeCost) error
}
