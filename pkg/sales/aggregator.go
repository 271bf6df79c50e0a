// Package sales derives per-day totals from the order ledger.
package sales

import (
	"errors"
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"stall/pkg/order"
	"stall/pkg/shop"
)

// ErrInvalidDay is returned for any day other than 1 or 2.
var ErrInvalidDay = errors.New("day must be 1 or 2")

// Total is the sales summary for one operating day.
type Total struct {
	Day       int             `json:"day"`
	Status    string          `json:"status"`
	Revenue   int             `json:"revenue"`
	Customers int             `json:"customers"`
	Archives  []order.Archive `json:"archives"`
}

// Aggregator reads the ledger and the day snapshots. It holds no state of its own.
type Aggregator struct {
	ledger  *order.Ledger
	machine *shop.Machine
}

// NewAggregator wires the aggregator to the ledger and state machine it reports on.
func NewAggregator(ledger *order.Ledger, machine *shop.Machine) *Aggregator {
	return &Aggregator{ledger: ledger, machine: machine}
}

// TotalFor sums the line totals of the received orders of day and reads the
// customer count from that day's snapshot. It changes nothing.
func (a *Aggregator) TotalFor(day int) (Total, error) {
	snapshot, ok := a.machine.Snapshot(day)
	if !ok {
		return Total{}, fmt.Errorf("day %d: %w", day, ErrInvalidDay)
	}
	archives := a.ledger.FindByDay(day)
	revenue := 0
	for _, archive := range archives {
		revenue += archive.LineTotal
	}
	return Total{
		Day:       day,
		Status:    a.machine.DayStatus(day),
		Revenue:   revenue,
		Customers: snapshot.Customers,
		Archives:  archives,
	}, nil
}

var printer = message.NewPrinter(language.Japanese)

// FormatYen renders an amount with digit grouping, e.g. ¥12,300.
func FormatYen(amount int) string {
	return printer.Sprintf("¥%d", amount)
}
