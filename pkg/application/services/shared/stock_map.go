package shared

import (
	"fmt"
	"sort"

	"github.com/vsinha/meio/pkg/domain/entities"
)

// StockContext holds the stock pushed down to a node for one sku and period
type StockContext struct {
	Allocated   float64
	DemandShare float64
	Parent      entities.NodeCode
}

// StockMap manages stock context by (node, sku, period)
type StockMap map[entities.DemandKey]*StockContext

// NewStockMap creates a new empty stock map
func NewStockMap() StockMap {
	return make(StockMap)
}

// NewStockMapFromAllocations creates a stock map keyed by the child of each allocation
func NewStockMapFromAllocations(allocations []entities.Allocation) StockMap {
	stockMap := make(StockMap, len(allocations))
	for _, alloc := range allocations {
		stockMap[alloc.ChildKey()] = &StockContext{
			Allocated:   alloc.AllocatedStock,
			DemandShare: alloc.DemandShare,
			Parent:      alloc.Parent,
		}
	}
	return stockMap
}

// Get retrieves stock context for a key
func (sm StockMap) Get(key entities.DemandKey) *StockContext {
	return sm[key]
}

// Set stores stock context for a key
func (sm StockMap) Set(key entities.DemandKey, context *StockContext) {
	sm[key] = context
}

// Has checks if stock context exists for a key
func (sm StockMap) Has(key entities.DemandKey) bool {
	_, exists := sm[key]
	return exists
}

// Size returns the number of stock contexts stored
func (sm StockMap) Size() int {
	return len(sm)
}

// TotalAllocated returns the allocated stock summed over every key
func (sm StockMap) TotalAllocated() float64 {
	var total float64
	for _, key := range sm.Keys() {
		total += sm[key].Allocated
	}
	return total
}

// Keys returns the stored keys in (node, sku, period) order
func (sm StockMap) Keys() []entities.DemandKey {
	keys := make([]entities.DemandKey, 0, len(sm))
	for key := range sm {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// String returns a string representation of the stock map for debugging
func (sm StockMap) String() string {
	if len(sm) == 0 {
		return "StockMap{empty}"
	}

	result := fmt.Sprintf("StockMap{%d entries:\n", len(sm))
	for _, key := range sm.Keys() {
		context := sm[key]
		result += fmt.Sprintf(
			"  %s: allocated=%.4f, share=%.4f, parent=%s\n",
			key,
			context.Allocated,
			context.DemandShare,
			context.Parent,
		)
	}
	result += "}"
	return result
}
