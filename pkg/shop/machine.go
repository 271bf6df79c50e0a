// Package shop tracks the two operating days of the stand and the per-day
// sales snapshots taken when a day closes.
package shop

import (
	"errors"
	"fmt"
)

// ErrIllegalTransition is matched by every rejected day transition.
var ErrIllegalTransition = errors.New("illegal day transition")

// Phase is the position in the two-day lifecycle.
type Phase int

const (
	NotStarted Phase = iota
	Day1Open
	Day1Closed
	Day2Open
	Day2Closed
)

func (p Phase) String() string {
	switch p {
	case NotStarted:
		return "not_started"
	case Day1Open:
		return "day1_open"
	case Day1Closed:
		return "day1_closed"
	case Day2Open:
		return "day2_open"
	case Day2Closed:
		return "day2_closed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// TransitionError explains why a day transition was refused.
type TransitionError struct {
	Action string
	From   Phase
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s while %s", e.Action, e.From)
}

// Is lets errors.Is match ErrIllegalTransition.
func (e *TransitionError) Is(target error) bool { return target == ErrIllegalTransition }

// Days holds the monotonic started/finished flags.
type Days struct {
	Day1Started  bool `json:"day1_started"`
	Day1Finished bool `json:"day1_finished"`
	Day2Started  bool `json:"day2_started"`
	Day2Finished bool `json:"day2_finished"`
	CurrentDay   int  `json:"current_day"`
}

// Snapshot is the sales summary of one day.
type Snapshot struct {
	Revenue   int `json:"revenue" cbor:"revenue"`
	Customers int `json:"customers" cbor:"customers"`
}

// Machine drives the day lifecycle and the running customer counter.
// It is not safe for concurrent use.
type Machine struct {
	days      Days
	customers int
	sales     [2]Snapshot
}

// NewMachine restores a machine from persisted flags, counter and snapshots.
func NewMachine(days Days, customers int, sales [2]Snapshot) *Machine {
	if days.CurrentDay != 2 {
		days.CurrentDay = 1
	}
	return &Machine{days: days, customers: customers, sales: sales}
}

// Days returns the flags for persistence.
func (m *Machine) Days() Days { return m.days }

// CurrentDay is 1 until day 2 starts.
func (m *Machine) CurrentDay() int { return m.days.CurrentDay }

// Customers is the running order counter for the current day.
func (m *Machine) Customers() int { return m.customers }

// Sales returns both day snapshots.
func (m *Machine) Sales() [2]Snapshot { return m.sales }

// Phase derives the lifecycle position from the flags.
func (m *Machine) Phase() Phase {
	switch {
	case m.days.Day2Finished:
		return Day2Closed
	case m.days.Day2Started:
		return Day2Open
	case m.days.Day1Finished:
		return Day1Closed
	case m.days.Day1Started:
		return Day1Open
	default:
		return NotStarted
	}
}

// OrderingOpen reports whether a day is currently running.
func (m *Machine) OrderingOpen() bool {
	p := m.Phase()
	return p == Day1Open || p == Day2Open
}

// StartDay1 opens the first day.
func (m *Machine) StartDay1() error {
	if err := m.require("start day 1", NotStarted); err != nil {
		return err
	}
	m.days.Day1Started = true
	return nil
}

// FinishDay1 closes day 1 and snapshots its customer count.
func (m *Machine) FinishDay1() error {
	if err := m.require("finish day 1", Day1Open); err != nil {
		return err
	}
	m.days.Day1Finished = true
	m.sales[0].Customers = m.customers
	return nil
}

// StartDay2 opens day 2 and restarts the running customer counter. Archives are untouched.
func (m *Machine) StartDay2() error {
	if err := m.require("start day 2", Day1Closed); err != nil {
		return err
	}
	m.days.Day2Started = true
	m.days.CurrentDay = 2
	m.customers = 0
	return nil
}

// FinishDay2 closes the stand for good and snapshots day 2.
func (m *Machine) FinishDay2() error {
	if err := m.require("finish day 2", Day2Open); err != nil {
		return err
	}
	m.days.Day2Finished = true
	m.sales[1].Customers = m.customers
	return nil
}

// Advance performs whichever transition comes next and returns the new phase.
func (m *Machine) Advance() (Phase, error) {
	var err error
	switch m.Phase() {
	case NotStarted:
		err = m.StartDay1()
	case Day1Open:
		err = m.FinishDay1()
	case Day1Closed:
		err = m.StartDay2()
	case Day2Open:
		err = m.FinishDay2()
	default:
		err = &TransitionError{Action: "advance", From: Day2Closed}
	}
	return m.Phase(), err
}

// CountCustomer records one more order for the current day. While a day is
// open its snapshot follows the running counter.
func (m *Machine) CountCustomer() {
	m.customers++
	if m.OrderingOpen() {
		m.sales[m.days.CurrentDay-1].Customers = m.customers
	}
}

// Snapshot returns the sales summary of day 1 or 2.
func (m *Machine) Snapshot(day int) (Snapshot, bool) {
	if day < 1 || day > 2 {
		return Snapshot{}, false
	}
	return m.sales[day-1], true
}

// RecordRevenue stores a recomputed revenue figure for day.
func (m *Machine) RecordRevenue(day, revenue int) {
	if day < 1 || day > 2 {
		return
	}
	m.sales[day-1].Revenue = revenue
}

// DayStatus describes one day for reporting.
func (m *Machine) DayStatus(day int) string {
	switch {
	case (day == 1 && m.days.Day1Finished) || (day == 2 && m.days.Day2Finished):
		return "closed"
	case (day == 1 && m.days.Day1Started) || (day == 2 && m.days.Day2Started):
		return "open"
	default:
		return "preparing"
	}
}

func (m *Machine) require(action string, want Phase) error {
	if from := m.Phase(); from != want {
		return &TransitionError{Action: action, From: from}
	}
	return nil
}
