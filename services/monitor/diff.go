package monitor

import (
	"slices"
	"sort"
)

// Diff classifies the deltas between the current observation and the
// last committed one. Both inputs are keyed by item identity. Output
// order is deterministic for a given input: sorted by identity key,
// with per-item price events sorted by currency.
func Diff(storeName string, current, previous map[string]Item) []ChangeEvent {
	var events []ChangeEvent

	currentKeys := sortedKeys(current)
	for _, key := range currentKeys {
		item := current[key]

		prev, existed := previous[key]
		if !existed {
			events = append(events, ChangeEvent{
				Kind:  ChangeNewItem,
				Store: storeName,
				Item:  item,
			})
			continue
		}

		if !prev.SoldOut && item.SoldOut {
			events = append(events, ChangeEvent{
				Kind:  ChangeSoldOut,
				Store: storeName,
				Item:  item,
			})
		} else if prev.SoldOut && !item.SoldOut {
			events = append(events, ChangeEvent{
				Kind:  ChangeRestock,
				Store: storeName,
				Item:  item,
			})
		} else {
			// one event per currency whose price moved, exact equality
			for _, currency := range sortedKeys(item.Prices) {
				newPrice := item.Prices[currency]
				oldPrice, tracked := prev.Prices[currency]
				if !tracked || oldPrice == newPrice {
					continue
				}
				events = append(events, ChangeEvent{
					Kind:     ChangePriceChange,
					Store:    storeName,
					Item:     item,
					Currency: currency,
					OldPrice: oldPrice,
					NewPrice: newPrice,
				})
			}
		}
	}

	for _, key := range sortedKeys(previous) {
		if _, stillThere := current[key]; stillThere {
			continue
		}
		events = append(events, ChangeEvent{
			Kind:  ChangeRemoved,
			Store: storeName,
			Item:  previous[key],
		})
	}

	return events
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// NewPriceRecords derives the append-only history rows implied by a
// cycle's events: an initial record per currency for new items, and
// one record per price change.
func NewPriceRecords(events []ChangeEvent) []PriceObservation {
	var records []PriceObservation
	for _, event := range events {
		switch event.Kind {
		case ChangeNewItem:
			for _, currency := range sortedKeys(event.Item.Prices) {
				records = append(records, PriceObservation{
					IdentityKey: event.Item.IdentityKey(),
					Currency:    currency,
					Price:       event.Item.Prices[currency],
				})
			}
		case ChangePriceChange:
			records = append(records, PriceObservation{
				IdentityKey: event.Item.IdentityKey(),
				Currency:    event.Currency,
				Price:       event.NewPrice,
			})
		}
	}

	slices.SortStableFunc(records, func(a, b PriceObservation) int {
		if a.IdentityKey != b.IdentityKey {
			if a.IdentityKey < b.IdentityKey {
				return -1
			}
			return 1
		}
		if a.Currency < b.Currency {
			return -1
		}
		if a.Currency > b.Currency {
			return 1
		}
		return 0
	})
	return records
}
