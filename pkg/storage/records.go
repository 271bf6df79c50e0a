package storage

import (
	"stall/pkg/catalog"
	"stall/pkg/order"
	"stall/pkg/shop"
)

// CatalogRecord is the persisted item list.
type CatalogRecord struct {
	Items []catalog.Item `json:"items" cbor:"items"`
}

func (*CatalogRecord) Kind() Kind { return KindCatalog }

func (r *CatalogRecord) setDefaults() { r.Items = []catalog.Item{} }

func (r *CatalogRecord) normalize() {
	if r.Items == nil {
		r.Items = []catalog.Item{}
	}
}

// LedgerRecord is the persisted archive list.
type LedgerRecord struct {
	Archives []order.Archive `json:"archives" cbor:"archives"`
}

func (*LedgerRecord) Kind() Kind { return KindLedger }

func (r *LedgerRecord) setDefaults() { r.Archives = []order.Archive{} }

func (r *LedgerRecord) normalize() {
	if r.Archives == nil {
		r.Archives = []order.Archive{}
	}
}

// SettingsRecord holds the ticket cursor and the running day counters.
type SettingsRecord struct {
	Ticket        int `json:"ticket" cbor:"ticket"`
	Epoch         int `json:"epoch" cbor:"epoch"`
	CustomerCount int `json:"customer_count" cbor:"customer_count"`
	CurrentDay    int `json:"current_day" cbor:"current_day"`
}

func (*SettingsRecord) Kind() Kind { return KindSettings }

func (r *SettingsRecord) setDefaults() {
	*r = SettingsRecord{Ticket: 1, Epoch: 0, CustomerCount: 0, CurrentDay: 1}
}

func (r *SettingsRecord) normalize() {
	if r.Ticket < 1 {
		r.Ticket = 1
	}
	if r.CurrentDay != 2 {
		r.CurrentDay = 1
	}
}

// ShopRecord holds the stand profile, the wrap boundary, the day flags and the day snapshots.
type ShopRecord struct {
	ClassName    string           `json:"class_name" cbor:"class_name"`
	Year         string           `json:"year" cbor:"year"`
	ShopName     string           `json:"shop_name" cbor:"shop_name"`
	MaxTicket    int              `json:"max_ticket" cbor:"max_ticket"`
	Day1Started  bool             `json:"day1_started" cbor:"day1_started"`
	Day1Finished bool             `json:"day1_finished" cbor:"day1_finished"`
	Day2Started  bool             `json:"day2_started" cbor:"day2_started"`
	Day2Finished bool             `json:"day2_finished" cbor:"day2_finished"`
	Sales        [2]shop.Snapshot `json:"sales" cbor:"sales"`
}

func (*ShopRecord) Kind() Kind { return KindShop }

func (r *ShopRecord) setDefaults() { *r = ShopRecord{MaxTicket: 1} }

func (r *ShopRecord) normalize() {
	if r.MaxTicket < 1 {
		r.MaxTicket = 1
	}
}
