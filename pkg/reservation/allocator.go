// Package reservation issues sequential ticket numbers that wrap into a new
// epoch once the configured maximum is exceeded.
package reservation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrOverflow means the cursor is past the maximum ticket; staff must confirm a Wrap.
	ErrOverflow = errors.New("ticket number exceeds the configured maximum")
	// ErrInvalidTicket is returned for zero, negative or non-numeric ticket input.
	ErrInvalidTicket = errors.New("ticket number must be a positive integer")
	// ErrInvalidEpoch is returned for epochs outside [0, current].
	ErrInvalidEpoch = errors.New("epoch is outside the issued range")
	// ErrInvalidMax is returned when the maximum ticket is below one.
	ErrInvalidMax = errors.New("maximum ticket must be at least 1")
)

// Ticket identifies an order slot: the number handed to the customer and the epoch it was issued in.
type Ticket struct {
	Number int `json:"number"`
	Epoch  int `json:"epoch"`
}

func (t Ticket) String() string { return fmt.Sprintf("%d[%d]", t.Number, t.Epoch) }

// Cursor is the persisted allocator state.
type Cursor struct {
	Ticket    int `json:"ticket"`
	Epoch     int `json:"epoch"`
	MaxTicket int `json:"max_ticket"`
}

// DefaultCursor is what a stand that never saved starts with.
func DefaultCursor() Cursor {
	return Cursor{Ticket: 1, Epoch: 0, MaxTicket: 1}
}

// Allocator owns the single ticket cursor. It never wraps on its own.
type Allocator struct {
	cursor Cursor
}

// NewAllocator restores an allocator from a persisted cursor, raising a ticket or max below 1 and a negative epoch.
func NewAllocator(c Cursor) *Allocator {
	if c.Ticket < 1 {
		c.Ticket = 1
	}
	if c.Epoch < 0 {
		c.Epoch = 0
	}
	if c.MaxTicket < 1 {
		c.MaxTicket = 1
	}
	return &Allocator{cursor: c}
}

// Cursor returns the current state for persistence.
func (a *Allocator) Cursor() Cursor { return a.cursor }

// Peek returns the ticket the next order would get.
func (a *Allocator) Peek() Ticket {
	return Ticket{Number: a.cursor.Ticket, Epoch: a.cursor.Epoch}
}

// Overflowed reports whether the cursor has run past the maximum and needs a Wrap.
func (a *Allocator) Overflowed() bool {
	return a.cursor.Ticket > a.cursor.MaxTicket
}

// Advance hands out the current ticket and moves the cursor forward by one.
// If the cursor is already past the maximum it returns ErrOverflow without mutating.
func (a *Allocator) Advance() (Ticket, error) {
	if a.Overflowed() {
		return Ticket{}, fmt.Errorf("ticket %d > %d: %w", a.cursor.Ticket, a.cursor.MaxTicket, ErrOverflow)
	}
	t := a.Peek()
	a.cursor.Ticket++
	return t, nil
}

// Wrap starts a new epoch at ticket 1.
func (a *Allocator) Wrap() Ticket {
	a.cursor.Epoch++
	a.cursor.Ticket = 1
	return a.Peek()
}

// SetTicket overrides the current number without touching the epoch.
func (a *Allocator) SetTicket(n int) error {
	if n < 1 {
		return fmt.Errorf("%d: %w", n, ErrInvalidTicket)
	}
	if n > a.cursor.MaxTicket {
		return fmt.Errorf("ticket %d > %d: %w", n, a.cursor.MaxTicket, ErrOverflow)
	}
	a.cursor.Ticket = n
	return nil
}

// SetMaxTicket changes the wrap boundary. A cursor already above the new bound becomes Overflowed.
func (a *Allocator) SetMaxTicket(m int) error {
	if m < 1 {
		return fmt.Errorf("%d: %w", m, ErrInvalidMax)
	}
	a.cursor.MaxTicket = m
	return nil
}

// CheckEpoch rejects epochs that were never issued.
func (a *Allocator) CheckEpoch(epoch int) error {
	if epoch < 0 || epoch > a.cursor.Epoch {
		return fmt.Errorf("epoch %d not in [0, %d]: %w", epoch, a.cursor.Epoch, ErrInvalidEpoch)
	}
	return nil
}

// ParseTicket turns staff input into a ticket number.
func ParseTicket(input string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%q: %w", input, ErrInvalidTicket)
	}
	return n, nil
}
