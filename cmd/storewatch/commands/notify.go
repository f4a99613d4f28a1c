package commands

import (
	"context"
	"log/slog"

	"storewatch-backend/services/monitor"
)

// logNotifier writes every change event to the default logger. A chat
// integration would replace this with its own Notifier.
func logNotifier() monitor.Notifier {
	return monitor.NotifierFunc(func(ctx context.Context, store monitor.StoreConfig, events []monitor.ChangeEvent) error {
		for _, event := range events {
			args := []any{
				"store", store.DisplayName(),
				"kind", string(event.Kind),
				"item", event.Item.Name,
				"link", event.Item.Link,
			}
			if event.Kind == monitor.ChangePriceChange {
				args = append(args,
					"currency", event.Currency,
					"old", event.OldPrice,
					"new", event.NewPrice,
				)
			}
			slog.InfoContext(ctx, "change detected", args...)
		}
		return nil
	})
}
