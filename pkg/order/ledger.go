package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"stall/pkg/catalog"
	"stall/pkg/reservation"
)

var (
	// ErrNotFound is returned when no archive has the requested id.
	ErrNotFound = errors.New("order archive not found")
	// ErrReceived is returned when cancelling an archive that was already handed over.
	ErrReceived = errors.New("order was already received and cannot be cancelled")
)

// Ledger is the append-mostly list of every order ever placed.
// It is not safe for concurrent use.
type Ledger struct {
	archives []Archive
	now      func() time.Time
	newID    func() string
}

// Option customizes a Ledger.
type Option func(*Ledger)

// WithClock replaces time.Now for placement timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithIDs replaces the archive id generator.
func WithIDs(newID func() string) Option {
	return func(l *Ledger) { l.newID = newID }
}

// NewLedger restores a ledger from persisted archives. Archives missing an id get one.
func NewLedger(archives []Archive, opts ...Option) *Ledger {
	l := &Ledger{
		archives: make([]Archive, len(archives)),
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(l)
	}
	copy(l.archives, archives)
	for i := range l.archives {
		if l.archives[i].ID == "" {
			l.archives[i].ID = l.newID()
		}
	}
	return l
}

// PlaceOrder snapshots the item and appends a new unreceived archive.
// Quantity is not validated here.
func (l *Ledger) PlaceOrder(item catalog.Item, quantity int, t reservation.Ticket, day int) Archive {
	archive := Archive{
		ID:        l.newID(),
		Name:      item.Name,
		UnitPrice: item.Price,
		Quantity:  quantity,
		LineTotal: item.Price * quantity,
		Ticket:    t.Number,
		Epoch:     t.Epoch,
		PlacedAt:  l.now().Truncate(time.Minute),
		Day:       day,
	}
	l.archives = append(l.archives, archive)
	return archive
}

// FindByTicket returns every archive placed under t, in insertion order.
func (l *Ledger) FindByTicket(t reservation.Ticket) []Archive {
	return l.filter(func(a Archive) bool { return a.Ticket == t.Number && a.Epoch == t.Epoch })
}

// FindByDay returns the received archives placed on day.
func (l *Ledger) FindByDay(day int) []Archive {
	return l.filter(func(a Archive) bool { return a.Day == day && a.Received })
}

// Fulfill marks every unreceived archive under t as received and reports how many changed.
// Zero means nothing was waiting for that ticket.
func (l *Ledger) Fulfill(t reservation.Ticket) int {
	count := 0
	for i := range l.archives {
		a := &l.archives[i]
		if a.Ticket == t.Number && a.Epoch == t.Epoch && !a.Received {
			a.Received = true
			count++
		}
	}
	return count
}

// Cancel removes an unreceived archive. Received archives are kept and ErrReceived is returned.
func (l *Ledger) Cancel(id string) (Archive, error) {
	for i, a := range l.archives {
		if a.ID != id {
			continue
		}
		if a.Received {
			return a, fmt.Errorf("%s: %w", a.Key(), ErrReceived)
		}
		l.archives = append(l.archives[:i], l.archives[i+1:]...)
		return a, nil
	}
	return Archive{}, fmt.Errorf("%s: %w", id, ErrNotFound)
}

// PendingTickets lists the distinct ticket numbers in epoch that still have unreceived archives,
// in the order they were first placed. It rescans the ledger on every call.
func (l *Ledger) PendingTickets(epoch int) []int {
	seen := make(map[int]struct{})
	pending := []int{}
	for _, a := range l.archives {
		if a.Epoch != epoch || a.Received {
			continue
		}
		if _, ok := seen[a.Ticket]; ok {
			continue
		}
		seen[a.Ticket] = struct{}{}
		pending = append(pending, a.Ticket)
	}
	return pending
}

// Get returns the archive with the given id.
func (l *Ledger) Get(id string) (Archive, error) {
	for _, a := range l.archives {
		if a.ID == id {
			return a, nil
		}
	}
	return Archive{}, fmt.Errorf("%s: %w", id, ErrNotFound)
}

// Archives returns a copy of the whole ledger.
func (l *Ledger) Archives() []Archive {
	return l.filter(func(Archive) bool { return true })
}

// Recent returns up to n of the latest archives, newest first.
func (l *Ledger) Recent(n int) []Archive {
	if n > len(l.archives) {
		n = len(l.archives)
	}
	if n < 0 {
		n = 0
	}
	out := make([]Archive, 0, n)
	for i := len(l.archives) - 1; i >= len(l.archives)-n; i-- {
		out = append(out, l.archives[i])
	}
	return out
}

// Len reports the number of archives.
func (l *Ledger) Len() int { return len(l.archives) }

func (l *Ledger) filter(keep func(Archive) bool) []Archive {
	out := []Archive{}
	for _, a := range l.archives {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}
