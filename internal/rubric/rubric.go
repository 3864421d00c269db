// Package rubric holds the ordered catalog of named deductions a quiz is
// graded against.
package rubric

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrEmptyName     = errors.New("rubric: name is required")
	ErrInvalidPoints = errors.New("rubric: deduction points must be a non-negative number")
	ErrDuplicate     = errors.New("rubric: item already exists")
	ErrNotFound      = errors.New("rubric: item not found")
)

var validate = validator.New()

// Item is one named deduction.
type Item struct {
	Name   string  `json:"name" validate:"required"`
	Points float64 `json:"points" validate:"gte=0"`
}

// Rename describes an edit that may have changed an item's name.
type Rename struct {
	From string
	To   string
	Item Item
}

// Renamed reports whether the edit changed the name.
func (r Rename) Renamed() bool { return r.From != r.To }

// ParsePoints parses user input for a deduction value.
func ParsePoints(text string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPoints, strings.TrimSpace(text))
	}
	return value, nil
}

// Validate checks a single item in isolation.
func Validate(item Item) error {
	err := validate.Struct(item)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		switch fieldErrs[0].Field() {
		case "Name":
			return ErrEmptyName
		case "Points":
			return fmt.Errorf("%w: %v", ErrInvalidPoints, item.Points)
		}
	}
	return fmt.Errorf("rubric: %w", err)
}

// Catalog is the ordered list of rubric items. Names are unique.
type Catalog struct {
	items []Item
}

// NewCatalog builds a catalog from persisted items. Entries with an empty
// name or a duplicate name are dropped and negative points clamp to zero.
func NewCatalog(items []Item) *Catalog {
	c := &Catalog{}
	for _, item := range items {
		item.Name = strings.TrimSpace(item.Name)
		if item.Name == "" || c.Has(item.Name) {
			continue
		}
		if item.Points < 0 || math.IsNaN(item.Points) || math.IsInf(item.Points, 0) {
			item.Points = 0
		}
		c.items = append(c.items, item)
	}
	return c
}

// Items returns a copy of the catalog in order.
func (c *Catalog) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of items.
func (c *Catalog) Len() int { return len(c.items) }

// Names returns item names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.items))
	for i, item := range c.items {
		names[i] = item.Name
	}
	return names
}

// Has reports whether an item with this exact name exists.
func (c *Catalog) Has(name string) bool {
	return c.indexOf(name) >= 0
}

// Lookup returns the named item.
func (c *Catalog) Lookup(name string) (Item, bool) {
	if i := c.indexOf(name); i >= 0 {
		return c.items[i], true
	}
	return Item{}, false
}

// Points returns the name → points table used for scoring.
func (c *Catalog) Points() map[string]float64 {
	table := make(map[string]float64, len(c.items))
	for _, item := range c.items {
		table[item.Name] = item.Points
	}
	return table
}

// Add appends a new item built from user input.
func (c *Catalog) Add(name, pointsText string) (Item, error) {
	item, err := buildItem(name, pointsText)
	if err != nil {
		return Item{}, err
	}
	if c.Has(item.Name) {
		return Item{}, fmt.Errorf("%w: %q", ErrDuplicate, item.Name)
	}
	c.items = append(c.items, item)
	return item, nil
}

// Edit replaces the item called oldName, keeping its position.
func (c *Catalog) Edit(oldName, name, pointsText string) (Rename, error) {
	oldName = strings.TrimSpace(oldName)
	idx := c.indexOf(oldName)
	if idx < 0 {
		return Rename{}, fmt.Errorf("%w: %q", ErrNotFound, oldName)
	}
	item, err := buildItem(name, pointsText)
	if err != nil {
		return Rename{}, err
	}
	if other := c.indexOf(item.Name); other >= 0 && other != idx {
		return Rename{}, fmt.Errorf("%w: %q", ErrDuplicate, item.Name)
	}
	c.items[idx] = item
	return Rename{From: oldName, To: item.Name, Item: item}, nil
}

// Remove deletes the named item.
func (c *Catalog) Remove(name string) (Item, error) {
	name = strings.TrimSpace(name)
	idx := c.indexOf(name)
	if idx < 0 {
		return Item{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	removed := c.items[idx]
	c.items = append(c.items[:idx], c.items[idx+1:]...)
	return removed, nil
}

// Import appends every item whose name is not already present and returns
// the items that were added. One invalid item rejects the whole import.
func (c *Catalog) Import(items []Item) ([]Item, error) {
	var added []Item
	seen := map[string]bool{}
	for i, item := range items {
		item.Name = strings.TrimSpace(item.Name)
		if err := Validate(item); err != nil {
			return nil, fmt.Errorf("item %d: %w", i+1, err)
		}
		if c.Has(item.Name) || seen[item.Name] {
			continue
		}
		seen[item.Name] = true
		added = append(added, item)
	}
	c.items = append(c.items, added...)
	return added, nil
}

func (c *Catalog) indexOf(name string) int {
	name = strings.TrimSpace(name)
	for i, item := range c.items {
		if item.Name == name {
			return i
		}
	}
	return -1
}

func buildItem(name, pointsText string) (Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Item{}, ErrEmptyName
	}
	points, err := ParsePoints(pointsText)
	if err != nil {
		return Item{}, err
	}
	item := Item{Name: name, Points: points}
	if err := Validate(item); err != nil {
		return Item{}, err
	}
	return item, nil
}
