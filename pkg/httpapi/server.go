package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"stall/pkg/catalog"
	"stall/pkg/order"
	"stall/pkg/reservation"
	"stall/pkg/sales"
	"stall/pkg/shop"
	"stall/pkg/stand"
)

// Options configure the HTTP surface.
type Options struct {
	// RateLimit is the per-client request rate; zero disables limiting.
	RateLimit float64
	RateBurst int
	// Timeout bounds how long a handler waits to reach the stand goroutine.
	Timeout time.Duration
}

// Server wires HTTP endpoints to the stand service.
type Server struct {
	stand   *stand.Service
	logger  *slog.Logger
	limiter *rateLimiter
	timeout time.Duration
}

// New builds the server. A nil logger falls back to slog.Default so requests are always reported.
func New(svc *stand.Service, logger *slog.Logger, opts Options) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	s := &Server{stand: svc, logger: logger, timeout: timeout}
	if opts.RateLimit > 0 {
		s.limiter = newRateLimiter(opts.RateLimit, opts.RateBurst)
	}
	return s
}

// Handler exposes the JSON API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/items", s.itemsEndpoint())
	mux.Handle("/api/ticket", s.ticketEndpoint())
	mux.Handle("/api/ticket/wrap", s.only(http.MethodPost, s.wrapTicket))
	mux.Handle("/api/orders", s.ordersEndpoint())
	mux.Handle("/api/receive", s.only(http.MethodPost, s.receive))
	mux.Handle("/api/pending", s.only(http.MethodGet, s.pending))
	mux.Handle("/api/days", s.only(http.MethodGet, s.days))
	mux.Handle("/api/days/next", s.only(http.MethodPost, s.nextDay))
	mux.Handle("/api/totals", s.only(http.MethodGet, s.totals))
	mux.Handle("/api/shop", s.shopEndpoint())
	mux.Handle("/api/save", s.only(http.MethodPost, s.save))
	mux.Handle("/api/data", s.only(http.MethodDelete, s.reset))

	var handler http.Handler = mux
	if s.limiter != nil {
		handler = s.limiter.middleware(handler)
	}
	return s.logRequests(handler)
}

func (s *Server) only(method string, fn http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			s.respondError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		fn(w, r)
	})
}

func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.timeout)
}

// itemsEndpoint manages the catalog.
func (s *Server) itemsEndpoint() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			s.listItems(w, r)
		case http.MethodPost:
			s.addItem(w, r)
		case http.MethodPut:
			s.editItem(w, r)
		case http.MethodDelete:
			s.removeItem(w, r)
		default:
			s.respondError(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
}

type itemPayload struct {
	Name  string `json:"name"`
	Price int    `json:"price"`
}

func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	items, err := s.stand.Items(ctx)
	if err != nil {
		s.fail(w, "item listing failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, items)
}

func (s *Server) addItem(w http.ResponseWriter, r *http.Request) {
	var payload itemPayload
	if !s.decode(w, r, &payload) {
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	item, err := s.stand.AddItem(ctx, payload.Name, payload.Price)
	if errors.Is(err, catalog.ErrNameTaken) {
		// The caller may offer to change the existing item's price instead.
		s.respondJSON(w, http.StatusConflict, map[string]any{"error": err.Error(), "existing": item})
		return
	}
	if err != nil {
		s.fail(w, "item creation failed", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, item)
}

func (s *Server) editItem(w http.ResponseWriter, r *http.Request) {
	id, ok := s.queryInt(w, r, "id")
	if !ok {
		return
	}
	var payload itemPayload
	if !s.decode(w, r, &payload) {
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	item, err := s.stand.EditItem(ctx, id, payload.Name, payload.Price)
	if err != nil {
		s.fail(w, "item update failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, item)
}

func (s *Server) removeItem(w http.ResponseWriter, r *http.Request) {
	id, ok := s.queryInt(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	if _, err := s.stand.RemoveItem(ctx, id); err != nil {
		s.fail(w, "item removal failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ticketEndpoint reads or overrides the next ticket.
func (s *Server) ticketEndpoint() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := s.requestContext(r)
		defer cancel()

		switch r.Method {
		case http.MethodGet:
			state, err := s.stand.Ticket(ctx)
			if err != nil {
				s.fail(w, "ticket lookup failed", err)
				return
			}
			s.respondJSON(w, http.StatusOK, state)
		case http.MethodPut:
			var payload struct {
				Ticket json.Number `json:"ticket"`
			}
			if !s.decode(w, r, &payload) {
				return
			}
			n, err := reservation.ParseTicket(payload.Ticket.String())
			if err != nil {
				s.fail(w, "ticket override rejected", err)
				return
			}
			state, err := s.stand.SetTicket(ctx, n)
			if err != nil {
				s.fail(w, "ticket override rejected", err)
				return
			}
			s.respondJSON(w, http.StatusOK, state)
		default:
			s.respondError(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
}

func (s *Server) wrapTicket(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	state, err := s.stand.Wrap(ctx)
	if err != nil {
		s.fail(w, "ticket wrap failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, state)
}

// ordersEndpoint places, lists and cancels orders.
func (s *Server) ordersEndpoint() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			s.listOrders(w, r)
		case http.MethodPost:
			s.createOrder(w, r)
		case http.MethodDelete:
			s.cancelOrder(w, r)
		default:
			s.respondError(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	var req stand.OrderRequest
	if !s.decode(w, r, &req) {
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	placement, err := s.stand.PlaceOrder(ctx, req)
	if err != nil {
		s.fail(w, "order placement failed", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, placement)
}

// listOrders serves the ledger, one ticket of it, or the newest entries.
func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	query := r.URL.Query()
	var (
		archives []order.Archive
		err      error
	)
	switch {
	case query.Get("ticket") != "":
		number, perr := reservation.ParseTicket(query.Get("ticket"))
		if perr != nil {
			s.fail(w, "order lookup rejected", perr)
			return
		}
		epoch, ok := s.optionalInt(w, r, "epoch")
		if !ok {
			return
		}
		if epoch == nil {
			state, terr := s.stand.Ticket(ctx)
			if terr != nil {
				s.fail(w, "order lookup failed", terr)
				return
			}
			epoch = &state.Next.Epoch
		}
		archives, err = s.stand.FindByTicket(ctx, reservation.Ticket{Number: number, Epoch: *epoch})
	case query.Get("recent") != "":
		n, ok := s.queryInt(w, r, "recent")
		if !ok {
			return
		}
		archives, err = s.stand.Recent(ctx, n)
	default:
		archives, err = s.stand.Archives(ctx)
	}
	if err != nil {
		s.fail(w, "order listing failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, archives)
}

func (s *Server) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		s.respondError(w, "id is required", http.StatusBadRequest)
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	archive, err := s.stand.Cancel(ctx, id)
	if err != nil {
		s.fail(w, "order cancellation failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, archive)
}

func (s *Server) receive(w http.ResponseWriter, r *http.Request) {
	var req stand.ReceiveRequest
	if !s.decode(w, r, &req) {
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	receipt, err := s.stand.Receive(ctx, req)
	if err != nil {
		s.fail(w, "receive failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, receipt)
}

func (s *Server) pending(w http.ResponseWriter, r *http.Request) {
	epoch, ok := s.optionalInt(w, r, "epoch")
	if !ok {
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	pending, err := s.stand.Pending(ctx, epoch)
	if err != nil {
		s.fail(w, "pending lookup failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, pending)
}

func (s *Server) days(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	state, err := s.stand.Days(ctx)
	if err != nil {
		s.fail(w, "day lookup failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, state)
}

func (s *Server) nextDay(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	state, err := s.stand.NextDay(ctx)
	if err != nil {
		s.fail(w, "day transition failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, state)
}

type totalResponse struct {
	sales.Total
	RevenueText string `json:"revenue_text"`
}

func (s *Server) totals(w http.ResponseWriter, r *http.Request) {
	day, ok := s.queryInt(w, r, "day")
	if !ok {
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	total, err := s.stand.TotalFor(ctx, day)
	if err != nil {
		s.fail(w, "total failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, totalResponse{Total: total, RevenueText: sales.FormatYen(total.Revenue)})
}

// shopEndpoint reads and edits the stand profile.
func (s *Server) shopEndpoint() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := s.requestContext(r)
		defer cancel()

		switch r.Method {
		case http.MethodGet:
			settings, err := s.stand.Shop(ctx)
			if err != nil {
				s.fail(w, "shop lookup failed", err)
				return
			}
			s.respondJSON(w, http.StatusOK, settings)
		case http.MethodPut:
			var payload shop.Settings
			if !s.decode(w, r, &payload) {
				return
			}
			settings, err := s.stand.UpdateShop(ctx, payload)
			if err != nil {
				s.fail(w, "shop update rejected", err)
				return
			}
			s.respondJSON(w, http.StatusOK, settings)
		default:
			s.respondError(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
}

func (s *Server) save(w http.ResponseWriter, r *http.Request) {
	// Saves outlive the request.
	if err := s.stand.Save(context.WithoutCancel(r.Context())); err != nil {
		s.fail(w, "save failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	if err := s.stand.Reset(r.Context()); err != nil {
		s.fail(w, "data reset failed", err)
		return
	}
	s.logger.Warn("all stand data deleted", "remote", r.RemoteAddr)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.logger.Info("request rejected: unable to decode payload", "path", r.URL.Path, "err", err)
		s.respondError(w, "invalid JSON", http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) queryInt(w http.ResponseWriter, r *http.Request, key string) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		s.respondError(w, key+" is required", http.StatusBadRequest)
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		s.respondError(w, "invalid "+key, http.StatusBadRequest)
		return 0, false
	}
	return n, true
}

func (s *Server) optionalInt(w http.ResponseWriter, r *http.Request, key string) (*int, bool) {
	if r.URL.Query().Get(key) == "" {
		return nil, true
	}
	n, ok := s.queryInt(w, r, key)
	if !ok {
		return nil, false
	}
	return &n, true
}

// fail logs err and answers with the status its kind maps to.
func (s *Server) fail(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg, "err", err, "status", status)
	} else {
		s.logger.Info(msg, "err", err, "status", status)
	}
	s.respondError(w, err.Error(), status)
}

func statusFor(err error) int {
	switch {
	case stand.IsInvalidRequest(err), catalog.IsValidation(err), shop.IsValidation(err),
		errors.Is(err, reservation.ErrInvalidTicket), errors.Is(err, reservation.ErrInvalidEpoch),
		errors.Is(err, reservation.ErrInvalidMax), errors.Is(err, sales.ErrInvalidDay):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, order.ErrNotFound),
		errors.Is(err, stand.ErrNothingToReceive):
		return http.StatusNotFound
	case errors.Is(err, reservation.ErrOverflow), errors.Is(err, shop.ErrIllegalTransition),
		errors.Is(err, order.ErrReceived), errors.Is(err, stand.ErrNotOpen),
		errors.Is(err, catalog.ErrDuplicate), errors.Is(err, catalog.ErrNameTaken):
		return http.StatusConflict
	case errors.Is(err, stand.ErrPersistence), errors.Is(err, stand.ErrClosed),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError keeps JSON formatting consistent across endpoints.
func (s *Server) respondError(w http.ResponseWriter, message string, status int) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("response encoding failed", "err", err)
	}
}
