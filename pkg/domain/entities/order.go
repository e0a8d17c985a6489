package entities

import (
	"fmt"
	"time"
)

// OrderEvent represents one dated replenishment order from an upstream node
type OrderEvent struct {
	From      NodeCode  `json:"from"` // empty for orders placed by a root node
	Node      NodeCode  `json:"node"`
	SKU       SKU       `json:"sku"`
	Period    time.Time `json:"period"`
	OrderDate time.Time `json:"order_date"`
	Quantity  Quantity  `json:"quantity"`
	Balance   bool      `json:"balance"` // partial order covering the remainder of the period
}

// NewOrderEvent creates a validated OrderEvent
func NewOrderEvent(
	from, node NodeCode,
	sku SKU,
	period, orderDate time.Time,
	quantity Quantity,
	balance bool,
) (*OrderEvent, error) {
	if string(node) == "" {
		return nil, fmt.Errorf("node cannot be empty")
	}
	if string(sku) == "" {
		return nil, fmt.Errorf("sku cannot be empty")
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive, got %d", quantity)
	}
	if from == node {
		return nil, fmt.Errorf("order cannot be placed on itself: %s", node)
	}

	return &OrderEvent{
		From:      from,
		Node:      node,
		SKU:       sku,
		Period:    period,
		OrderDate: orderDate,
		Quantity:  quantity,
		Balance:   balance,
	}, nil
}

// Key returns the (node, sku, period) key of the order
func (o OrderEvent) Key() DemandKey {
	return DemandKey{Node: o.Node, SKU: o.SKU, Period: o.Period}
}
