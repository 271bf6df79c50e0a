package stand

import (
	"stall/pkg/order"
	"stall/pkg/reservation"
	"stall/pkg/shop"
)

// Line is one item of a tray.
type Line struct {
	ItemID   int `json:"item_id"`
	Quantity int `json:"quantity"`
}

// OrderRequest places every line under a single ticket.
// A positive Ticket overrides the allocator before the number is issued.
type OrderRequest struct {
	Lines  []Line `json:"lines"`
	Ticket int    `json:"ticket,omitempty"`
}

// Placement is the result of a successful order.
type Placement struct {
	Ticket   reservation.Ticket `json:"ticket"`
	Archives []order.Archive    `json:"archives"`
	Total    int                `json:"total"`
}

// ReceiveRequest names the ticket being handed over. A nil Epoch means the current one.
type ReceiveRequest struct {
	Ticket int  `json:"ticket"`
	Epoch  *int `json:"epoch,omitempty"`
}

// Receipt lists the archives flipped to received.
type Receipt struct {
	Ticket   reservation.Ticket `json:"ticket"`
	Received int                `json:"received"`
	Archives []order.Archive    `json:"archives"`
}

// TicketState is what the reservation screen shows.
type TicketState struct {
	Next       reservation.Ticket `json:"next"`
	MaxTicket  int                `json:"max_ticket"`
	Overflowed bool               `json:"overflowed"`
}

// Pending lists the tickets still waiting in one epoch.
type Pending struct {
	Epoch   int   `json:"epoch"`
	Tickets []int `json:"tickets"`
}

// DayState is the lifecycle view.
type DayState struct {
	Phase      string           `json:"phase"`
	Days       shop.Days        `json:"days"`
	Customers  int              `json:"customers"`
	Ordering   bool             `json:"ordering"`
	Sales      [2]shop.Snapshot `json:"sales"`
	CurrentDay int              `json:"current_day"`
}
