// Package scheduling turns period demand and EOQ policy into dated order events.
package scheduling

import (
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vsinha/meio/pkg/application/services/hierarchy"
	"github.com/vsinha/meio/pkg/application/services/shared"
	"github.com/vsinha/meio/pkg/domain/entities"
)

// Stage is the name used for logs and metrics
const Stage = "scheduling"

// balanceTolerance is the fraction of EOQ below which a remainder is treated as zero
const balanceTolerance = 1e-9

// Scheduler emits one order every cycle, starting early enough to cover the lead time
type Scheduler struct {
	logger logrus.FieldLogger
}

// NewScheduler creates a new order scheduler
func NewScheduler(logger logrus.FieldLogger) *Scheduler {
	return &Scheduler{logger: shared.LoggerOrDiscard(logger)}
}

// Schedule builds the order events of every metric row. Each (node, sku, period) is
// scheduled independently; dates before the planning horizon are kept as is.
func (s *Scheduler) Schedule(model *hierarchy.Model, metrics []entities.EchelonMetric) []entities.OrderEvent {
	var events []entities.OrderEvent
	for _, m := range metrics {
		from, _ := model.ParentOf(m.Node)
		events = append(events, s.scheduleRow(from, m)...)
	}

	sort.Slice(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.Key() != b.Key() {
			return a.Key().Less(b.Key())
		}
		if !a.OrderDate.Equal(b.OrderDate) {
			return a.OrderDate.Before(b.OrderDate)
		}
		return !a.Balance && b.Balance
	})

	s.logger.WithFields(logrus.Fields{
		"stage":  Stage,
		"events": len(events),
	}).Debug("orders scheduled")

	return events
}

func (s *Scheduler) scheduleRow(from entities.NodeCode, m entities.EchelonMetric) []entities.OrderEvent {
	demand, eoq := m.AverageDemand, m.EOQ
	if !(eoq > 0) || !(demand > 0) || math.IsInf(eoq, 0) {
		return nil
	}

	fullOrders := int(math.Floor(demand / eoq))
	balance := demand - float64(fullOrders)*eoq
	if balance <= balanceTolerance*eoq {
		balance = 0
	}

	backOff := m.CycleTimeDays * float64(m.FullCyclesInLeadTime)
	first := m.Period.Add(-shared.DaysToDuration(backOff))
	orderDate := func(k int) time.Time {
		return first.Add(shared.DaysToDuration(float64(k) * m.CycleTimeDays))
	}

	events := make([]entities.OrderEvent, 0, fullOrders+1)
	add := func(date time.Time, quantity entities.Quantity, isBalance bool) {
		event, err := entities.NewOrderEvent(from, m.Node, m.SKU, m.Period, date, quantity, isBalance)
		if err != nil {
			s.logger.WithFields(shared.KeyFields(Stage, m.Key())).WithError(err).Warn("order event rejected")
			return
		}
		events = append(events, *event)
	}

	for k := 0; k < fullOrders; k++ {
		add(orderDate(k), RoundUp(eoq), false)
	}
	if balance > 0 {
		add(orderDate(fullOrders), RoundUp(balance), true)
	}
	return events
}

// RoundUp converts a fractional quantity to whole units, rounding up.
// Values within floating point noise of an integer are not bumped to the next unit.
func RoundUp(q float64) entities.Quantity {
	nearest := math.Round(q)
	if math.Abs(q-nearest) <= 1e-9*math.Max(1, math.Abs(q)) {
		return entities.Quantity(nearest)
	}
	return entities.Quantity(math.Ceil(q))
}
