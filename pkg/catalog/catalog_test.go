package catalog_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stall/pkg/catalog"
)

func TestAddAssignsSequentialIDs(t *testing.T) {
	c := catalog.New(nil)

	tea, err := c.Add("Tea", 100)
	require.NoError(t, err)
	cake, err := c.Add("  Cake ", 250)
	require.NoError(t, err)

	assert.Equal(t, 0, tea.ID)
	assert.Equal(t, 1, cake.ID)
	assert.Equal(t, "Cake", cake.Name)
	assert.Equal(t, 2, c.Len())
}

func TestAddRejectsInvalidInput(t *testing.T) {
	c := catalog.New(nil)

	_, err := c.Add("   ", 100)
	assert.True(t, catalog.IsValidation(err))

	_, err = c.Add("Tea", -1)
	assert.True(t, catalog.IsValidation(err))
	assert.Zero(t, c.Len())
}

func TestAddDuplicateRules(t *testing.T) {
	c := catalog.New(nil)
	_, err := c.Add("Tea", 100)
	require.NoError(t, err)

	_, err = c.Add("Tea", 100)
	assert.ErrorIs(t, err, catalog.ErrDuplicate)

	existing, err := c.Add("Tea", 150)
	assert.ErrorIs(t, err, catalog.ErrNameTaken)
	assert.Equal(t, 0, existing.ID, "the clashing item is returned so the caller can offer a price edit")
	assert.Equal(t, 1, c.Len())
}

func TestAddNormalizesUnicode(t *testing.T) {
	c := catalog.New(nil)
	// Precomposed GA vs. KA followed by a combining dakuten.
	_, err := c.Add("\u30ac", 100)
	require.NoError(t, err)

	_, err = c.Add("\u30ab\u3099", 100)
	assert.ErrorIs(t, err, catalog.ErrDuplicate)
}

func TestEditOverwritesItem(t *testing.T) {
	c := catalog.New(nil)
	_, _ = c.Add("Tea", 100)
	_, _ = c.Add("Coffee", 200)

	edited, err := c.Edit(0, "Tea", 150)
	require.NoError(t, err)
	assert.Equal(t, catalog.Item{ID: 0, Name: "Tea", Price: 150}, edited)

	_, err = c.Edit(0, "Coffee", 150)
	assert.ErrorIs(t, err, catalog.ErrNameTaken)

	_, err = c.Edit(7, "Juice", 10)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestRemoveRenumbers(t *testing.T) {
	c := catalog.New(nil)
	for _, name := range []string{"A", "B", "C", "D"} {
		_, err := c.Add(name, 10)
		require.NoError(t, err)
	}

	removed, err := c.Remove(1)
	require.NoError(t, err)
	assert.Equal(t, "B", removed.Name)

	items := c.Items()
	require.Len(t, items, 3)
	for i, item := range items {
		assert.Equal(t, i, item.ID)
	}
	assert.Equal(t, []string{"A", "C", "D"}, []string{items[0].Name, items[1].Name, items[2].Name})

	_, err = c.Remove(3)
	assert.True(t, errors.Is(err, catalog.ErrNotFound))
}

func TestNewRenumbersPersistedItems(t *testing.T) {
	c := catalog.New([]catalog.Item{{ID: 4, Name: "A"}, {ID: 9, Name: "B"}})

	items := c.Items()
	assert.Equal(t, 0, items[0].ID)
	assert.Equal(t, 1, items[1].ID)
}

func TestItemsReturnsCopy(t *testing.T) {
	c := catalog.New(nil)
	_, _ = c.Add("Tea", 100)

	items := c.Items()
	items[0].Price = 1

	got, err := c.Get(0)
	require.NoError(t, err)
	assert.Equal(t, 100, got.Price)
}
