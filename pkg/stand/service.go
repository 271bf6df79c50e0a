// Package stand runs the stand's catalog, ticket allocator, order ledger and
// day machine on a single goroutine. Every exported method is executed there
// to completion, one at a time, so saves never see a half-applied change.
package stand

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"stall/pkg/catalog"
	"stall/pkg/order"
	"stall/pkg/reservation"
	"stall/pkg/sales"
	"stall/pkg/shop"
	"stall/pkg/storage"
)

// Options tune a Service. Zero values are usable.
type Options struct {
	Logger *slog.Logger
	// Now stamps archives and fills the default year.
	Now func() time.Time
	// NewID names archives.
	NewID func() string
	// MaxTicket, when positive, replaces the persisted wrap boundary at startup and after Reset.
	MaxTicket int
}

// Service owns the in-memory stand state. All fields below ops are touched only by loop.
type Service struct {
	gateway   *storage.Gateway
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
	maxTicket int

	ops       chan func()
	closed    chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	catalog *catalog.Catalog
	ledger  *order.Ledger
	alloc   *reservation.Allocator
	machine *shop.Machine
	profile shop.Profile
	sales   *sales.Aggregator
}

// Open loads all four records through gateway and starts the service goroutine.
// Records that were never saved come back as defaults.
func Open(ctx context.Context, gateway *storage.Gateway, opts Options) (*Service, error) {
	s := &Service{
		gateway:   gateway,
		logger:    opts.Logger,
		now:       opts.Now,
		newID:     opts.NewID,
		maxTicket: opts.MaxTicket,
		ops:       make(chan func()),
		closed:    make(chan struct{}),
		done:      make(chan struct{}),
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}

	var (
		items    storage.CatalogRecord
		ledger   storage.LedgerRecord
		settings storage.SettingsRecord
		shopRec  storage.ShopRecord
	)
	for _, r := range []storage.Record{&settings, &shopRec, &items, &ledger} {
		if err := gateway.Load(ctx, r); err != nil {
			return nil, err
		}
	}
	if err := s.restore(items, ledger, settings, shopRec); err != nil {
		return nil, err
	}

	s.logger.Info("stand loaded",
		"items", s.catalog.Len(),
		"archives", s.ledger.Len(),
		"ticket", s.alloc.Peek().String(),
		"max_ticket", s.alloc.Cursor().MaxTicket,
		"phase", s.machine.Phase().String(),
	)

	go s.loop()
	return s, nil
}

func (s *Service) restore(items storage.CatalogRecord, ledger storage.LedgerRecord, settings storage.SettingsRecord, shopRec storage.ShopRecord) error {
	s.catalog = catalog.New(items.Items)
	s.ledger = order.NewLedger(ledger.Archives, order.WithClock(s.now), order.WithIDs(s.newID))
	s.alloc = reservation.NewAllocator(reservation.Cursor{
		Ticket:    settings.Ticket,
		Epoch:     settings.Epoch,
		MaxTicket: shopRec.MaxTicket,
	})
	s.machine = shop.NewMachine(shop.Days{
		Day1Started:  shopRec.Day1Started,
		Day1Finished: shopRec.Day1Finished,
		Day2Started:  shopRec.Day2Started,
		Day2Finished: shopRec.Day2Finished,
		CurrentDay:   settings.CurrentDay,
	}, settings.CustomerCount, shopRec.Sales)
	s.profile = shop.Profile{ClassName: shopRec.ClassName, Year: shopRec.Year, ShopName: shopRec.ShopName}
	if s.profile.Year == "" {
		s.profile.Year = shop.DefaultProfile(s.now()).Year
	}
	s.sales = sales.NewAggregator(s.ledger, s.machine)
	if s.maxTicket > 0 {
		return s.alloc.SetMaxTicket(s.maxTicket)
	}
	return nil
}

func (s *Service) loop() {
	defer close(s.done)
	for {
		select {
		case op := <-s.ops:
			op()
		case <-s.closed:
			return
		}
	}
}

// do hands fn to the service goroutine and waits for it to finish.
// Once accepted, fn always runs to completion even if ctx is cancelled.
func (s *Service) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	op := func() {
		defer close(finished)
		fn()
	}
	select {
	case s.ops <- op:
	case <-s.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-finished
	return nil
}

func call[T any](ctx context.Context, s *Service, fn func() (T, error)) (T, error) {
	var (
		out T
		err error
	)
	if derr := s.do(ctx, func() { out, err = fn() }); derr != nil {
		return out, derr
	}
	return out, err
}

// Close stops the goroutine. Pending state is not saved; call Save first.
func (s *Service) Close() {
	s.closeOnce.Do(func() { close(s.closed) })
	<-s.done
}

// Items lists the catalog.
func (s *Service) Items(ctx context.Context) ([]catalog.Item, error) {
	return call(ctx, s, func() ([]catalog.Item, error) {
		return s.catalog.Items(), nil
	})
}

// AddItem registers a new item. A name already used at another price
// returns the existing item together with catalog.ErrNameTaken.
func (s *Service) AddItem(ctx context.Context, name string, price int) (catalog.Item, error) {
	return call(ctx, s, func() (catalog.Item, error) {
		item, err := s.catalog.Add(name, price)
		if err == nil {
			s.logger.Info("item added", "id", item.ID, "name", item.Name, "price", item.Price)
		}
		return item, err
	})
}

// EditItem changes an item. Existing archives keep the name and price they were placed with.
func (s *Service) EditItem(ctx context.Context, id int, name string, price int) (catalog.Item, error) {
	return call(ctx, s, func() (catalog.Item, error) {
		item, err := s.catalog.Edit(id, name, price)
		if err == nil {
			s.logger.Info("item edited", "id", item.ID, "name", item.Name, "price", item.Price)
		}
		return item, err
	})
}

// RemoveItem deletes an item and renumbers the rest.
func (s *Service) RemoveItem(ctx context.Context, id int) (catalog.Item, error) {
	return call(ctx, s, func() (catalog.Item, error) {
		item, err := s.catalog.Remove(id)
		if err == nil {
			s.logger.Info("item removed", "id", id, "name", item.Name)
		}
		return item, err
	})
}

// Ticket reports the next ticket and whether it needs a wrap.
func (s *Service) Ticket(ctx context.Context) (TicketState, error) {
	return call(ctx, s, func() (TicketState, error) {
		return s.ticketState(), nil
	})
}

func (s *Service) ticketState() TicketState {
	return TicketState{
		Next:       s.alloc.Peek(),
		MaxTicket:  s.alloc.Cursor().MaxTicket,
		Overflowed: s.alloc.Overflowed(),
	}
}

// SetTicket overrides the next ticket number in the current epoch.
func (s *Service) SetTicket(ctx context.Context, n int) (TicketState, error) {
	return call(ctx, s, func() (TicketState, error) {
		if err := s.alloc.SetTicket(n); err != nil {
			return s.ticketState(), err
		}
		s.logger.Info("ticket set", "ticket", s.alloc.Peek().String())
		return s.ticketState(), nil
	})
}

// Wrap starts a new epoch. Staff call it after confirming an overflow.
func (s *Service) Wrap(ctx context.Context) (TicketState, error) {
	return call(ctx, s, func() (TicketState, error) {
		t := s.alloc.Wrap()
		s.logger.Info("ticket wrapped", "epoch", t.Epoch)
		return s.ticketState(), nil
	})
}

// PlaceOrder issues one ticket for the whole tray and archives every line under it.
// It returns reservation.ErrOverflow, without side effects, when the stand must wrap first.
func (s *Service) PlaceOrder(ctx context.Context, req OrderRequest) (Placement, error) {
	return call(ctx, s, func() (Placement, error) {
		if !s.machine.OrderingOpen() {
			return Placement{}, fmt.Errorf("%s: %w", s.machine.Phase(), ErrNotOpen)
		}
		if len(req.Lines) == 0 {
			return Placement{}, invalid("order has no lines")
		}
		if req.Ticket < 0 {
			return Placement{}, fmt.Errorf("%d: %w", req.Ticket, reservation.ErrInvalidTicket)
		}
		items := make([]catalog.Item, len(req.Lines))
		for i, line := range req.Lines {
			if line.Quantity <= 0 {
				return Placement{}, invalid(fmt.Sprintf("line %d: quantity must be positive", i))
			}
			item, err := s.catalog.Get(line.ItemID)
			if err != nil {
				return Placement{}, fmt.Errorf("line %d: %w", i, err)
			}
			items[i] = item
		}

		if req.Ticket > 0 {
			if err := s.alloc.SetTicket(req.Ticket); err != nil {
				return Placement{}, err
			}
		}
		ticket, err := s.alloc.Advance()
		if err != nil {
			return Placement{}, err
		}

		day := s.machine.CurrentDay()
		placement := Placement{Ticket: ticket, Archives: make([]order.Archive, 0, len(items))}
		for i, item := range items {
			archive := s.ledger.PlaceOrder(item, req.Lines[i].Quantity, ticket, day)
			placement.Archives = append(placement.Archives, archive)
			placement.Total += archive.LineTotal
		}
		s.machine.CountCustomer()
		s.logger.Info("order placed", "ticket", ticket.String(), "lines", len(items), "total", placement.Total, "day", day)
		return placement, nil
	})
}

// Receive marks every unreceived archive of the ticket as handed over.
func (s *Service) Receive(ctx context.Context, req ReceiveRequest) (Receipt, error) {
	return call(ctx, s, func() (Receipt, error) {
		if req.Ticket < 1 {
			return Receipt{}, fmt.Errorf("%d: %w", req.Ticket, reservation.ErrInvalidTicket)
		}
		ticket := reservation.Ticket{Number: req.Ticket, Epoch: s.alloc.Peek().Epoch}
		if req.Epoch != nil {
			if err := s.alloc.CheckEpoch(*req.Epoch); err != nil {
				return Receipt{}, err
			}
			ticket.Epoch = *req.Epoch
		}
		count := s.ledger.Fulfill(ticket)
		if count == 0 {
			return Receipt{Ticket: ticket}, fmt.Errorf("%s: %w", ticket, ErrNothingToReceive)
		}
		s.logger.Info("order received", "ticket", ticket.String(), "archives", count)
		return Receipt{Ticket: ticket, Received: count, Archives: s.ledger.FindByTicket(ticket)}, nil
	})
}

// Cancel removes an unreceived archive.
func (s *Service) Cancel(ctx context.Context, id string) (order.Archive, error) {
	return call(ctx, s, func() (order.Archive, error) {
		archive, err := s.ledger.Cancel(id)
		if err != nil {
			return archive, err
		}
		s.logger.Info("order cancelled", "id", id, "ticket", archive.Key().String(), "name", archive.Name)
		return archive, nil
	})
}

// Pending lists tickets still waiting in epoch, or in the current epoch when epoch is nil.
func (s *Service) Pending(ctx context.Context, epoch *int) (Pending, error) {
	return call(ctx, s, func() (Pending, error) {
		e := s.alloc.Peek().Epoch
		if epoch != nil {
			if err := s.alloc.CheckEpoch(*epoch); err != nil {
				return Pending{}, err
			}
			e = *epoch
		}
		return Pending{Epoch: e, Tickets: s.ledger.PendingTickets(e)}, nil
	})
}

// FindByTicket returns the archives of a ticket, received or not.
func (s *Service) FindByTicket(ctx context.Context, t reservation.Ticket) ([]order.Archive, error) {
	return call(ctx, s, func() ([]order.Archive, error) {
		if t.Number < 1 {
			return nil, fmt.Errorf("%d: %w", t.Number, reservation.ErrInvalidTicket)
		}
		if err := s.alloc.CheckEpoch(t.Epoch); err != nil {
			return nil, err
		}
		return s.ledger.FindByTicket(t), nil
	})
}

// Archives returns the whole ledger in insertion order.
func (s *Service) Archives(ctx context.Context) ([]order.Archive, error) {
	return call(ctx, s, func() ([]order.Archive, error) {
		return s.ledger.Archives(), nil
	})
}

// Recent returns the newest n archives, newest first.
func (s *Service) Recent(ctx context.Context, n int) ([]order.Archive, error) {
	return call(ctx, s, func() ([]order.Archive, error) {
		return s.ledger.Recent(n), nil
	})
}

// Days reports the lifecycle position.
func (s *Service) Days(ctx context.Context) (DayState, error) {
	return call(ctx, s, func() (DayState, error) {
		return s.dayState(), nil
	})
}

func (s *Service) dayState() DayState {
	return DayState{
		Phase:      s.machine.Phase().String(),
		Days:       s.machine.Days(),
		Customers:  s.machine.Customers(),
		Ordering:   s.machine.OrderingOpen(),
		Sales:      s.machine.Sales(),
		CurrentDay: s.machine.CurrentDay(),
	}
}

// StartDay1 opens the first operating day.
func (s *Service) StartDay1(ctx context.Context) (DayState, error) {
	return s.transition(ctx, "start day 1", (*shop.Machine).StartDay1)
}

// FinishDay1 closes day 1 and snapshots its sales.
func (s *Service) FinishDay1(ctx context.Context) (DayState, error) {
	return s.transition(ctx, "finish day 1", (*shop.Machine).FinishDay1)
}

// StartDay2 opens the second operating day.
func (s *Service) StartDay2(ctx context.Context) (DayState, error) {
	return s.transition(ctx, "start day 2", (*shop.Machine).StartDay2)
}

// FinishDay2 closes the stand.
func (s *Service) FinishDay2(ctx context.Context) (DayState, error) {
	return s.transition(ctx, "finish day 2", (*shop.Machine).FinishDay2)
}

// NextDay performs whichever transition comes next.
func (s *Service) NextDay(ctx context.Context) (DayState, error) {
	return s.transition(ctx, "advance day", func(m *shop.Machine) error {
		_, err := m.Advance()
		return err
	})
}

func (s *Service) transition(ctx context.Context, action string, fn func(*shop.Machine) error) (DayState, error) {
	return call(ctx, s, func() (DayState, error) {
		from := s.machine.Phase()
		if err := fn(s.machine); err != nil {
			return s.dayState(), err
		}
		switch s.machine.Phase() {
		case shop.Day1Closed:
			s.closeDay(1)
		case shop.Day2Closed:
			s.closeDay(2)
		}
		s.logger.Info("day transition", "action", action, "from", from.String(), "to", s.machine.Phase().String())
		return s.dayState(), nil
	})
}

// closeDay fixes the day's revenue in its snapshot next to the customer count.
// Later TotalFor calls recompute without touching it.
func (s *Service) closeDay(day int) {
	total, err := s.sales.TotalFor(day)
	if err != nil {
		s.logger.Error("closing day totals failed", "day", day, "err", err)
		return
	}
	s.machine.RecordRevenue(day, total.Revenue)
}

// TotalFor reports the sales of day 1 or 2.
func (s *Service) TotalFor(ctx context.Context, day int) (sales.Total, error) {
	return call(ctx, s, func() (sales.Total, error) {
		return s.sales.TotalFor(day)
	})
}

// Shop returns the profile and wrap boundary.
func (s *Service) Shop(ctx context.Context) (shop.Settings, error) {
	return call(ctx, s, func() (shop.Settings, error) {
		return shop.Settings{Profile: s.profile, MaxTicket: s.alloc.Cursor().MaxTicket}, nil
	})
}

// UpdateShop validates and applies new shop settings.
func (s *Service) UpdateShop(ctx context.Context, settings shop.Settings) (shop.Settings, error) {
	return call(ctx, s, func() (shop.Settings, error) {
		normalized, err := settings.Normalize()
		if err != nil {
			return shop.Settings{}, err
		}
		if err := s.alloc.SetMaxTicket(normalized.MaxTicket); err != nil {
			return shop.Settings{}, err
		}
		s.profile = normalized.Profile
		s.logger.Info("shop updated", "shop", s.profile.ShopName, "max_ticket", normalized.MaxTicket)
		return normalized, nil
	})
}

// Save writes all four records. Every record is attempted; failures are joined.
// Cancellation and deadlines on ctx are ignored so a save is never skipped or cut short.
func (s *Service) Save(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	var saveErr error
	if err := s.do(ctx, func() { saveErr = s.save(ctx) }); err != nil {
		return err
	}
	return saveErr
}

func (s *Service) save(ctx context.Context) error {
	days := s.machine.Days()
	cursor := s.alloc.Cursor()
	records := []storage.Record{
		&storage.SettingsRecord{
			Ticket:        cursor.Ticket,
			Epoch:         cursor.Epoch,
			CustomerCount: s.machine.Customers(),
			CurrentDay:    days.CurrentDay,
		},
		&storage.ShopRecord{
			ClassName:    s.profile.ClassName,
			Year:         s.profile.Year,
			ShopName:     s.profile.ShopName,
			MaxTicket:    cursor.MaxTicket,
			Day1Started:  days.Day1Started,
			Day1Finished: days.Day1Finished,
			Day2Started:  days.Day2Started,
			Day2Finished: days.Day2Finished,
			Sales:        s.machine.Sales(),
		},
		&storage.CatalogRecord{Items: s.catalog.Items()},
		&storage.LedgerRecord{Archives: s.ledger.Archives()},
	}

	var errs []error
	for _, r := range records {
		if err := s.gateway.Save(ctx, r); err != nil {
			s.logger.Warn("save failed", "kind", r.Kind(), "err", err)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrPersistence, errors.Join(errs...))
	}
	s.logger.Debug("saved", "archives", s.ledger.Len())
	return nil
}

// Reset deletes every persisted record and returns the stand to a fresh state.
// Records that were never saved are only logged.
func (s *Service) Reset(ctx context.Context) error {
	var resetErr error
	if err := s.do(ctx, func() {
		var errs []error
		for _, kind := range storage.Kinds {
			err := s.gateway.Delete(ctx, kind)
			switch {
			case err == nil:
			case errors.Is(err, storage.ErrNotFound):
				s.logger.Warn("nothing to delete", "kind", kind)
			default:
				s.logger.Warn("delete failed", "kind", kind, "err", err)
				errs = append(errs, err)
			}
		}
		if len(errs) > 0 {
			resetErr = fmt.Errorf("%w: %w", ErrPersistence, errors.Join(errs...))
			return
		}
		var (
			settings storage.SettingsRecord
			shopRec  storage.ShopRecord
		)
		for _, r := range []storage.Record{&settings, &shopRec} {
			if err := s.gateway.Load(ctx, r); err != nil {
				resetErr = err
				return
			}
		}
		if err := s.restore(storage.CatalogRecord{}, storage.LedgerRecord{}, settings, shopRec); err != nil {
			resetErr = err
			return
		}
		s.logger.Info("stand reset", "max_ticket", s.alloc.Cursor().MaxTicket)
	}); err != nil {
		return err
	}
	return resetErr
}
