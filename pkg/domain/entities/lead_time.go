package entities

import (
	"fmt"
	"math"
)

// LeadTimeLink defines the replenishment lead time from a source node to a target node
type LeadTimeLink struct {
	Source       NodeCode
	Target       NodeCode
	LeadTimeDays float64
}

// NewLeadTimeLink creates a validated LeadTimeLink. Source equal to target declares a self-loop.
func NewLeadTimeLink(source, target NodeCode, leadTimeDays float64) (*LeadTimeLink, error) {
	if string(source) == "" {
		return nil, fmt.Errorf("source node cannot be empty")
	}
	if string(target) == "" {
		return nil, fmt.Errorf("target node cannot be empty")
	}
	if math.IsNaN(leadTimeDays) || math.IsInf(leadTimeDays, 0) {
		return nil, fmt.Errorf("lead time must be finite for %s -> %s", source, target)
	}
	if leadTimeDays < 0 {
		return nil, fmt.Errorf("lead time cannot be negative for %s -> %s, got %v", source, target, leadTimeDays)
	}

	return &LeadTimeLink{
		Source:       source,
		Target:       target,
		LeadTimeDays: leadTimeDays,
	}, nil
}

// IsSelfLoop reports whether the link declares a node's own inbound lead time
func (l LeadTimeLink) IsSelfLoop() bool {
	return l.Source == l.Target
}
