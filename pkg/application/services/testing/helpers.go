package testing

import (
	"fmt"
	"time"

	"github.com/vsinha/meio/pkg/application/services/hierarchy"
	"github.com/vsinha/meio/pkg/domain/entities"
)

// MustNode is a helper for tests - panics on validation error
func MustNode(code, parent string, tier entities.Tier, orderingCost, holdingCost float64) entities.Node {
	node, err := entities.NewNode(
		entities.NodeCode(code),
		code,
		tier,
		entities.NodeCode(parent),
		orderingCost,
		holdingCost,
	)
	if err != nil {
		panic(err)
	}
	return *node
}

// MustLink is a helper for tests - panics on validation error
func MustLink(source, target string, days float64) entities.LeadTimeLink {
	link, err := entities.NewLeadTimeLink(entities.NodeCode(source), entities.NodeCode(target), days)
	if err != nil {
		panic(err)
	}
	return *link
}

// MustModel loads a hierarchy model - panics on configuration error
func MustModel(nodes []entities.Node, links []entities.LeadTimeLink) *hierarchy.Model {
	model, err := hierarchy.Load(nodes, links)
	if err != nil {
		panic(err)
	}
	return model
}

// Month returns the first day of a month in UTC
func Month(year int, month time.Month) time.Time {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

// Network is a node and lead-time table pair
type Network struct {
	Nodes []entities.Node
	Links []entities.LeadTimeLink
}

// Model loads the network into a hierarchy model
func (n Network) Model() *hierarchy.Model {
	return MustModel(n.Nodes, n.Links)
}

// Stores returns the leaf codes of the network
func (n Network) Stores() []entities.NodeCode {
	var stores []entities.NodeCode
	for _, node := range n.Nodes {
		if node.Tier == entities.TierStore {
			stores = append(stores, node.Code)
		}
	}
	return stores
}

// BuildThreeTierNetwork builds 1 DC, 2 warehouses and 4 stores (two per warehouse).
// Every node orders at cost 50 and holds at cost 2 per unit per period.
// DC -> warehouse lead time is 10 days, warehouse -> store 5 days.
func BuildThreeTierNetwork() Network {
	nodes := []entities.Node{
		MustNode("DC1", "", entities.TierDC, 50, 2),
		MustNode("WH1", "DC1", entities.TierWarehouse, 50, 2),
		MustNode("WH2", "DC1", entities.TierWarehouse, 50, 2),
		MustNode("ST1", "WH1", entities.TierStore, 50, 2),
		MustNode("ST2", "WH1", entities.TierStore, 50, 2),
		MustNode("ST3", "WH2", entities.TierStore, 50, 2),
		MustNode("ST4", "WH2", entities.TierStore, 50, 2),
	}
	links := []entities.LeadTimeLink{
		MustLink("DC1", "WH1", 10),
		MustLink("DC1", "WH2", 10),
		MustLink("WH1", "ST1", 5),
		MustLink("WH1", "ST2", 5),
		MustLink("WH2", "ST3", 5),
		MustLink("WH2", "ST4", 5),
	}
	return Network{Nodes: nodes, Links: links}
}

// BuildChainNetwork builds a single line of depth nodes, each the parent of the next.
// Tiers cycle DC, Warehouse, Store only for the first three levels, so depth is at most 3.
func BuildChainNetwork(depth int, leadTimeDays float64) Network {
	if depth < 1 || depth > 3 {
		panic(fmt.Sprintf("chain depth must be between 1 and 3, got %d", depth))
	}
	tiers := []entities.Tier{entities.TierDC, entities.TierWarehouse, entities.TierStore}

	var network Network
	parent := ""
	for i := 0; i < depth; i++ {
		code := fmt.Sprintf("N%d", i)
		network.Nodes = append(network.Nodes, MustNode(code, parent, tiers[i], 50, 2))
		if parent != "" {
			network.Links = append(network.Links, MustLink(parent, code, leadTimeDays))
		}
		parent = code
	}
	return network
}

// ConstantDemand creates one record per store and period with the same actual and forecast quantity
func ConstantDemand(stores []entities.NodeCode, sku entities.SKU, periods []time.Time, quantity float64) []entities.DemandRecord {
	records := make([]entities.DemandRecord, 0, len(stores)*len(periods))
	for _, store := range stores {
		for _, period := range periods {
			records = append(records, entities.DemandRecord{
				Node:     store,
				SKU:      sku,
				Period:   period,
				Actual:   quantity,
				Forecast: quantity,
			})
		}
	}
	return records
}

// Months returns n consecutive month starts beginning at the given month
func Months(year int, month time.Month, n int) []time.Time {
	periods := make([]time.Time, n)
	start := Month(year, month)
	for i := 0; i < n; i++ {
		periods[i] = start.AddDate(0, i, 0)
	}
	return periods
}
