package sales_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stall/pkg/catalog"
	"stall/pkg/order"
	"stall/pkg/reservation"
	"stall/pkg/sales"
	"stall/pkg/shop"
)

func TestTotalForKeepsArchivedPrices(t *testing.T) {
	items := catalog.New(nil)
	tea, err := items.Add("Tea", 100)
	require.NoError(t, err)

	ledger := order.NewLedger(nil)
	machine := shop.NewMachine(shop.Days{Day1Started: true}, 0, [2]shop.Snapshot{})
	agg := sales.NewAggregator(ledger, machine)

	ledger.PlaceOrder(tea, 1, reservation.Ticket{Number: 1}, 1)
	machine.CountCustomer()
	ledger.Fulfill(reservation.Ticket{Number: 1})

	_, err = items.Edit(tea.ID, "Tea", 150)
	require.NoError(t, err)

	total, err := agg.TotalFor(1)
	require.NoError(t, err)
	assert.Equal(t, 100, total.Revenue)
	require.Len(t, total.Archives, 1)
	assert.Equal(t, 100, total.Archives[0].LineTotal)
	assert.Equal(t, "open", total.Status)
}

func TestTotalForIsIdempotent(t *testing.T) {
	ledger := order.NewLedger(nil)
	machine := shop.NewMachine(shop.Days{Day1Started: true}, 0, [2]shop.Snapshot{})
	agg := sales.NewAggregator(ledger, machine)

	item := catalog.Item{Name: "Cake", Price: 300}
	ledger.PlaceOrder(item, 2, reservation.Ticket{Number: 1}, 1)
	ledger.PlaceOrder(item, 1, reservation.Ticket{Number: 2}, 1)
	machine.CountCustomer()
	machine.CountCustomer()
	ledger.Fulfill(reservation.Ticket{Number: 1})
	require.NoError(t, machine.FinishDay1())

	first, err := agg.TotalFor(1)
	require.NoError(t, err)
	second, err := agg.TotalFor(1)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 600, first.Revenue, "unreceived orders do not count")
	assert.Equal(t, 2, first.Customers)
	assert.Equal(t, shop.Snapshot{Customers: 2}, machine.Sales()[0], "totals never write the day snapshot")
}

func TestTotalForRejectsUnknownDay(t *testing.T) {
	agg := sales.NewAggregator(order.NewLedger(nil), shop.NewMachine(shop.Days{}, 0, [2]shop.Snapshot{}))
	for _, day := range []int{0, 3, -1} {
		_, err := agg.TotalFor(day)
		assert.ErrorIs(t, err, sales.ErrInvalidDay)
	}
}

func TestTotalForEmptyDay(t *testing.T) {
	agg := sales.NewAggregator(order.NewLedger(nil), shop.NewMachine(shop.Days{}, 0, [2]shop.Snapshot{}))
	total, err := agg.TotalFor(2)
	require.NoError(t, err)
	assert.Zero(t, total.Revenue)
	assert.NotNil(t, total.Archives)
	assert.Equal(t, "preparing", total.Status)
}

func TestFormatYen(t *testing.T) {
	assert.Equal(t, "¥0", sales.FormatYen(0))
	assert.Equal(t, "¥12,300", sales.FormatYen(12300))
}
