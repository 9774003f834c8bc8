package events

import (
	"slices"

	"github.com/dshills/assetbus/internal/event"
)

// Multiselect event names.
const (
	// NameAddItemMultiselect is emitted when a user adds an item to the
	// selection cart.
	NameAddItemMultiselect event.Name = "add-item-multiselect"

	// NameRemoveItemMultiselect is emitted when a user removes an item from
	// the selection cart.
	NameRemoveItemMultiselect event.Name = "remove-item-multiselect"
)

// MultiselectItem describes a cart change and the resulting selection.
type MultiselectItem struct {
	// ID is the ID of the item that was added or removed.
	ID string `json:"id"`

	// Name is the display name of the item.
	Name string `json:"name"`

	// Type is the item type (e.g. "asset", "collection").
	Type string `json:"type"`

	// Selections holds the IDs selected after the change.
	Selections []string `json:"selections"`
}

// Typed multiselect events.
// Clone implements event.Cloner.
func (m MultiselectItem) Clone() any {
	m.Selections = slices.Clone(m.Selections)
	return m
}

var (
	AddItemMultiselect    = event.NewKind[MultiselectItem](NameAddItemMultiselect)
	RemoveItemMultiselect = event.NewKind[MultiselectItem](NameRemoveItemMultiselect)
)
