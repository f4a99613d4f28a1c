package monitor

import (
	"context"
	"time"
)

// Item is one catalog listing observed on a store page. Identity is
// the link when one exists, otherwise the display name; everything
// else is mutable between observations.
type Item struct {
	Name    string
	Link    string
	Image   string
	SoldOut bool
	// one price per currency code
	Prices    map[string]float64
	FirstSeen time.Time
	LastSeen  time.Time
}

func (i Item) IdentityKey() string {
	if i.Link != "" {
		return i.Link
	}
	return i.Name
}

type ChangeKind string

const (
	ChangeNewItem     ChangeKind = "new_item"
	ChangePriceChange ChangeKind = "price_change"
	ChangeRestock     ChangeKind = "restock"
	ChangeSoldOut     ChangeKind = "sold_out"
	ChangeRemoved     ChangeKind = "removed"
)

// ChangeEvent is a classified delta between two observations of one
// item. Currency/OldPrice/NewPrice are only set for price changes.
type ChangeEvent struct {
	Kind     ChangeKind
	Store    string
	Item     Item
	Currency string
	OldPrice float64
	NewPrice float64
}

// Notifier receives the change events of one completed store cycle.
// The chat front-end lives behind this interface, the engine never
// formats messages itself.
type Notifier interface {
	Notify(ctx context.Context, store StoreConfig, events []ChangeEvent) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, store StoreConfig, events []ChangeEvent) error

func (f NotifierFunc) Notify(ctx context.Context, store StoreConfig, events []ChangeEvent) error {
	return f(ctx, store, events)
}
