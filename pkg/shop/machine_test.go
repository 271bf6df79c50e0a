package shop_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stall/pkg/shop"
)

func TestFullLifecycle(t *testing.T) {
	m := shop.NewMachine(shop.Days{}, 0, [2]shop.Snapshot{})
	assert.Equal(t, shop.NotStarted, m.Phase())
	assert.False(t, m.OrderingOpen())
	assert.Equal(t, 1, m.CurrentDay())

	require.NoError(t, m.StartDay1())
	assert.True(t, m.OrderingOpen())
	m.CountCustomer()
	m.CountCustomer()
	m.CountCustomer()
	assert.Equal(t, 3, m.Sales()[0].Customers, "open day snapshot is live")

	require.NoError(t, m.FinishDay1())
	assert.Equal(t, shop.Day1Closed, m.Phase())
	assert.Equal(t, 3, m.Sales()[0].Customers)
	assert.Equal(t, 1, m.CurrentDay())
	assert.False(t, m.OrderingOpen())

	require.NoError(t, m.StartDay2())
	assert.Equal(t, 2, m.CurrentDay())
	assert.Zero(t, m.Customers())
	assert.Equal(t, 3, m.Sales()[0].Customers, "day 1 snapshot survives the counter reset")
	m.CountCustomer()

	require.NoError(t, m.FinishDay2())
	assert.Equal(t, shop.Day2Closed, m.Phase())
	assert.Equal(t, 1, m.Sales()[1].Customers)

	_, err := m.Advance()
	assert.ErrorIs(t, err, shop.ErrIllegalTransition)
}

func TestOutOfOrderTransitionsLeaveFlagsUnchanged(t *testing.T) {
	cases := []struct {
		name  string
		days  shop.Days
		apply func(*shop.Machine) error
	}{
		{"finish day 1 before start", shop.Days{}, (*shop.Machine).FinishDay1},
		{"start day 2 while day 1 open", shop.Days{Day1Started: true}, (*shop.Machine).StartDay2},
		{"finish day 2 before it started", shop.Days{Day1Started: true, Day1Finished: true}, (*shop.Machine).FinishDay2},
		{"start day 1 twice", shop.Days{Day1Started: true}, (*shop.Machine).StartDay1},
		{"start day 2 twice", shop.Days{Day1Started: true, Day1Finished: true, Day2Started: true, CurrentDay: 2}, (*shop.Machine).StartDay2},
		{"anything after close", shop.Days{Day1Started: true, Day1Finished: true, Day2Started: true, Day2Finished: true, CurrentDay: 2}, (*shop.Machine).FinishDay2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := shop.NewMachine(tc.days, 4, [2]shop.Snapshot{})
			before := m.Days()

			err := tc.apply(m)
			require.Error(t, err)
			assert.ErrorIs(t, err, shop.ErrIllegalTransition)

			var te *shop.TransitionError
			require.True(t, errors.As(err, &te))
			assert.NotEmpty(t, te.Error())
			assert.Equal(t, before, m.Days())
			assert.Equal(t, 4, m.Customers())
		})
	}
}

func TestAdvanceWalksPhases(t *testing.T) {
	m := shop.NewMachine(shop.Days{}, 0, [2]shop.Snapshot{})
	want := []shop.Phase{shop.Day1Open, shop.Day1Closed, shop.Day2Open, shop.Day2Closed}
	for _, phase := range want {
		got, err := m.Advance()
		require.NoError(t, err)
		assert.Equal(t, phase, got)
	}
}

func TestSnapshotAndRevenue(t *testing.T) {
	m := shop.NewMachine(shop.Days{}, 0, [2]shop.Snapshot{{Customers: 2}, {Customers: 5}})
	m.RecordRevenue(2, 900)
	m.RecordRevenue(3, 1)

	s, ok := m.Snapshot(2)
	require.True(t, ok)
	assert.Equal(t, shop.Snapshot{Revenue: 900, Customers: 5}, s)

	_, ok = m.Snapshot(0)
	assert.False(t, ok)
}

func TestDayStatus(t *testing.T) {
	m := shop.NewMachine(shop.Days{Day1Started: true, Day1Finished: true, Day2Started: true, CurrentDay: 2}, 0, [2]shop.Snapshot{})
	assert.Equal(t, "closed", m.DayStatus(1))
	assert.Equal(t, "open", m.DayStatus(2))

	fresh := shop.NewMachine(shop.Days{}, 0, [2]shop.Snapshot{})
	assert.Equal(t, "preparing", fresh.DayStatus(2))
}

func TestSettingsNormalize(t *testing.T) {
	s, err := shop.Settings{Profile: shop.Profile{ClassName: " 2-B ", Year: "2026"}, MaxTicket: 50}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, "2026 - 2-B", s.ShopName)
	assert.Equal(t, "2-B", s.ClassName)

	_, err = shop.Settings{Profile: shop.Profile{ClassName: "2-B", Year: "2026"}}.Normalize()
	assert.True(t, shop.IsValidation(err))

	_, err = shop.Settings{Profile: shop.Profile{Year: "2026"}, MaxTicket: 1}.Normalize()
	assert.True(t, shop.IsValidation(err))

	_, err = shop.Settings{Profile: shop.Profile{ClassName: "2-B"}, MaxTicket: 1}.Normalize()
	assert.True(t, shop.IsValidation(err))
}

func TestDefaultProfileYear(t *testing.T) {
	p := shop.DefaultProfile(time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "2026", p.Year)
}
