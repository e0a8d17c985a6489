package events

import (
	"fmt"
	"sort"
	"time"
)

const StageCompletedEvent = "stage.completed"

// StageCompleted is the payload recorded after every pipeline stage
type StageCompleted struct {
	Stage   string         `json:"stage"`
	Rows    int            `json:"rows"`
	Issues  int            `json:"issues"`
	Skips   map[string]int `json:"skips,omitempty"`
	Elapsed time.Duration  `json:"elapsed"`
}

// SkipCount returns the total number of skipped rows over all reasons
func (s StageCompleted) SkipCount() int {
	n := 0
	for _, c := range s.Skips {
		n += c
	}
	return n
}

func (s StageCompleted) String() string {
	return fmt.Sprintf("%-12s %6d rows %4d issues %4d skips %v", s.Stage, s.Rows, s.Issues, s.SkipCount(), s.Elapsed)
}

// Journal records stage completions in an event store, one stream per stage
type Journal struct {
	store EventStore
}

// NewJournal creates a journal over store
func NewJournal(store EventStore) *Journal {
	return &Journal{store: store}
}

// ObserveStage appends a StageCompleted event to the stage's stream
func (j *Journal) ObserveStage(stage string, rows, issues int, skips map[string]int, elapsed time.Duration) {
	copied := make(map[string]int, len(skips))
	for reason, n := range skips {
		copied[reason] = n
	}
	_ = j.store.AppendEvent(stage, NewEvent(StageCompletedEvent, stage, StageCompleted{
		Stage:   stage,
		Rows:    rows,
		Issues:  issues,
		Skips:   copied,
		Elapsed: elapsed,
	}))
}

// Stages returns every recorded completion in append order
func (j *Journal) Stages() []StageCompleted {
	all, _ := j.store.ReadAllEvents(0)
	stages := make([]StageCompleted, 0, len(all))
	for _, e := range all {
		if e.Type() != StageCompletedEvent {
			continue
		}
		if data, ok := e.Data().(StageCompleted); ok {
			stages = append(stages, data)
		}
	}
	return stages
}

// SkipReasons returns the skip reasons seen by a stage, sorted
func (j *Journal) SkipReasons(stage string) []string {
	stream, _ := j.store.ReadEvents(stage, 1)
	seen := make(map[string]bool)
	for _, e := range stream {
		if data, ok := e.Data().(StageCompleted); ok {
			for reason := range data.Skips {
				seen[reason] = true
			}
		}
	}
	reasons := make([]string, 0, len(seen))
	for reason := range seen {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	return reasons
}
