package entities

import (
	"fmt"
	"time"
)

// ConfigurationError is a fatal network definition problem detected before any computation
type ConfigurationError struct {
	Rule   string
	Entity string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %s: %v", e.Rule, e.Entity, e.Err)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Rule, e.Entity)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// LeadTimeNotFoundError is returned when no lead time exists for a (parent, child) pair
type LeadTimeNotFoundError struct {
	Parent NodeCode
	Child  NodeCode
}

func (e *LeadTimeNotFoundError) Error() string {
	return fmt.Sprintf("lead time not found: %s -> %s", e.Parent, e.Child)
}

// UnknownNodeError is returned by model accessors for codes outside the network
type UnknownNodeError struct {
	Code NodeCode
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("unknown node: %s", e.Code)
}

// OrphanNodeError reports demand that references a node outside the network
type OrphanNodeError struct {
	Node   NodeCode
	SKU    SKU
	Period time.Time
}

func (e *OrphanNodeError) Error() string {
	return fmt.Sprintf("orphan demand row: node %s not in network (sku %s, period %s)",
		e.Node, e.SKU, e.Period.Format("2006-01-02"))
}

// DataIntegrityError reports an inconsistent row keyed by (node, sku, period)
type DataIntegrityError struct {
	Rule string
	Key  DemandKey
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("data integrity: %s: %s", e.Rule, e.Key)
}

// NumericGuardSkip records a row excluded because a formula input was out of range.
// It is not an error condition; skips are reported alongside results.
type NumericGuardSkip struct {
	Stage  string
	Key    DemandKey
	Reason string
}

func (s NumericGuardSkip) String() string {
	return fmt.Sprintf("%s skipped %s: %s", s.Stage, s.Key, s.Reason)
}
