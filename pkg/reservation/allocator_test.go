package reservation_test

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stall/pkg/reservation"
)

func TestAdvanceUntilOverflowThenWrap(t *testing.T) {
	a := reservation.NewAllocator(reservation.Cursor{Ticket: 1, MaxTicket: 5})

	for want := 1; want <= 5; want++ {
		got, err := a.Advance()
		require.NoError(t, err)
		assert.Equal(t, reservation.Ticket{Number: want, Epoch: 0}, got)
	}

	assert.True(t, a.Overflowed())
	_, err := a.Advance()
	require.ErrorIs(t, err, reservation.ErrOverflow)
	assert.Equal(t, 6, a.Peek().Number, "a rejected Advance must not move the cursor")

	assert.Equal(t, reservation.Ticket{Number: 1, Epoch: 1}, a.Wrap())
	got, err := a.Advance()
	require.NoError(t, err)
	assert.Equal(t, reservation.Ticket{Number: 1, Epoch: 1}, got)
}

func TestPeekDoesNotMutate(t *testing.T) {
	a := reservation.NewAllocator(reservation.Cursor{Ticket: 3, Epoch: 2, MaxTicket: 9})
	assert.Equal(t, a.Peek(), a.Peek())
	assert.Equal(t, reservation.Ticket{Number: 3, Epoch: 2}, a.Peek())
}

func TestSetTicket(t *testing.T) {
	a := reservation.NewAllocator(reservation.Cursor{Ticket: 4, Epoch: 1, MaxTicket: 10})

	require.NoError(t, a.SetTicket(7))
	assert.Equal(t, reservation.Ticket{Number: 7, Epoch: 1}, a.Peek())

	assert.ErrorIs(t, a.SetTicket(0), reservation.ErrInvalidTicket)
	assert.ErrorIs(t, a.SetTicket(-3), reservation.ErrInvalidTicket)
	assert.ErrorIs(t, a.SetTicket(11), reservation.ErrOverflow)
	assert.Equal(t, reservation.Ticket{Number: 7, Epoch: 1}, a.Peek())
}

func TestSetMaxTicket(t *testing.T) {
	a := reservation.NewAllocator(reservation.Cursor{Ticket: 8, MaxTicket: 10})

	assert.ErrorIs(t, a.SetMaxTicket(0), reservation.ErrInvalidMax)
	require.NoError(t, a.SetMaxTicket(5))
	assert.True(t, a.Overflowed())
}

func TestNewAllocatorRepairsCursor(t *testing.T) {
	a := reservation.NewAllocator(reservation.Cursor{})
	assert.Equal(t, reservation.DefaultCursor(), a.Cursor())
}

func TestCheckEpoch(t *testing.T) {
	a := reservation.NewAllocator(reservation.Cursor{Ticket: 1, Epoch: 2, MaxTicket: 3})

	assert.NoError(t, a.CheckEpoch(0))
	assert.NoError(t, a.CheckEpoch(2))
	assert.ErrorIs(t, a.CheckEpoch(3), reservation.ErrInvalidEpoch)
	assert.ErrorIs(t, a.CheckEpoch(-1), reservation.ErrInvalidEpoch)
}

func TestParseTicket(t *testing.T) {
	cases := map[string]struct {
		want int
		ok   bool
	}{
		"12":   {want: 12, ok: true},
		" 3 ":  {want: 3, ok: true},
		"0":    {},
		"-4":   {},
		"abc":  {},
		"":     {},
		"1.5":  {},
		"٣":    {},
		"2147": {want: 2147, ok: true},
	}
	for input, tc := range cases {
		got, err := reservation.ParseTicket(input)
		if !tc.ok {
			assert.ErrorIs(t, err, reservation.ErrInvalidTicket, input)
			continue
		}
		require.NoError(t, err, input)
		assert.Equal(t, tc.want, got, input)
	}
}

// advanceWrapping applies the staff confirmation step: wrap whenever Advance overflows.
func advanceWrapping(a *reservation.Allocator) reservation.Ticket {
	t, err := a.Advance()
	if errors.Is(err, reservation.ErrOverflow) {
		a.Wrap()
		t, _ = a.Advance()
	}
	return t
}

func TestAdvanceSequenceProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("n-th ticket is ((n-1) mod M)+1 in epoch (n-1)/M", prop.ForAll(
		func(max, calls int) bool {
			a := reservation.NewAllocator(reservation.Cursor{Ticket: 1, MaxTicket: max})
			for n := 1; n <= calls; n++ {
				got := advanceWrapping(a)
				want := reservation.Ticket{Number: (n-1)%max + 1, Epoch: (n - 1) / max}
				if got != want {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 50),
		gen.IntRange(1, 300),
	))

	properties.TestingRun(t)
}
