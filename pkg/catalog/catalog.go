package catalog

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Catalog holds the items on sale. IDs always run contiguously from zero.
// It is not safe for concurrent use; the stand service serializes access.
type Catalog struct {
	items []Item
}

// New builds a catalog from persisted items, renumbering them so IDs match positions.
func New(items []Item) *Catalog {
	c := &Catalog{items: make([]Item, len(items))}
	copy(c.items, items)
	c.renumber()
	return c
}

// Items returns a copy of the catalog in ID order.
func (c *Catalog) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Len reports how many items are registered.
func (c *Catalog) Len() int { return len(c.items) }

// Get looks an item up by ID.
func (c *Catalog) Get(id int) (Item, error) {
	if id < 0 || id >= len(c.items) {
		return Item{}, fmt.Errorf("item %d: %w", id, ErrNotFound)
	}
	return c.items[id], nil
}

// FindByName returns the item whose normalized name matches.
func (c *Catalog) FindByName(name string) (Item, bool) {
	name = normalizeName(name)
	for _, item := range c.items {
		if item.Name == name {
			return item, true
		}
	}
	return Item{}, false
}

// Add registers a new item with ID equal to the current catalog size.
// A same-name item with the same price yields ErrDuplicate; with another price, ErrNameTaken.
func (c *Catalog) Add(name string, price int) (Item, error) {
	name = normalizeName(name)
	if err := validate(name, price); err != nil {
		return Item{}, err
	}
	if existing, ok := c.FindByName(name); ok {
		if existing.Price == price {
			return Item{}, fmt.Errorf("%q: %w", name, ErrDuplicate)
		}
		return existing, fmt.Errorf("%q: %w", name, ErrNameTaken)
	}
	item := Item{ID: len(c.items), Name: name, Price: price}
	c.items = append(c.items, item)
	return item, nil
}

// Edit overwrites the name and price of an existing item. Archived orders keep their own snapshot.
func (c *Catalog) Edit(id int, name string, price int) (Item, error) {
	if _, err := c.Get(id); err != nil {
		return Item{}, err
	}
	name = normalizeName(name)
	if err := validate(name, price); err != nil {
		return Item{}, err
	}
	if existing, ok := c.FindByName(name); ok && existing.ID != id {
		return Item{}, fmt.Errorf("%q: %w", name, ErrNameTaken)
	}
	c.items[id] = Item{ID: id, Name: name, Price: price}
	return c.items[id], nil
}

// Remove deletes an item and renumbers the rest.
func (c *Catalog) Remove(id int) (Item, error) {
	item, err := c.Get(id)
	if err != nil {
		return Item{}, err
	}
	c.items = append(c.items[:id], c.items[id+1:]...)
	c.renumber()
	return item, nil
}

func (c *Catalog) renumber() {
	for i := range c.items {
		c.items[i].ID = i
	}
}

func validate(name string, price int) error {
	if name == "" {
		return ValidationError{Message: "name is required"}
	}
	if price < 0 {
		return ValidationError{Message: "price must not be negative"}
	}
	return nil
}

// normalizeName trims and NFC-normalizes so visually equal names compare equal.
func normalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}
