package order

import (
	"time"

	"stall/pkg/reservation"
)

// Archive is the permanent record of one order line. Name and UnitPrice are
// copied from the catalog at placement, so later catalog edits never reach it.
type Archive struct {
	ID        string    `json:"id" cbor:"id"`
	Name      string    `json:"name" cbor:"name"`
	UnitPrice int       `json:"unit_price" cbor:"unit_price"`
	Quantity  int       `json:"quantity" cbor:"quantity"`
	LineTotal int       `json:"line_total" cbor:"line_total"`
	Ticket    int       `json:"ticket" cbor:"ticket"`
	Epoch     int       `json:"epoch" cbor:"epoch"`
	PlacedAt  time.Time `json:"placed_at" cbor:"placed_at"`
	Day       int       `json:"day" cbor:"day"`
	Received  bool      `json:"received" cbor:"received"`
}

// Key returns the ticket the archive was placed under.
func (a Archive) Key() reservation.Ticket {
	return reservation.Ticket{Number: a.Ticket, Epoch: a.Epoch}
}
