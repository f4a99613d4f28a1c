package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"storewatch-backend/lib/serviceutil"
	"storewatch-backend/lib/telemetry"
	"storewatch-backend/services/monitor/db"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var itemsArchived *bool

func init() {
	itemsArchived = itemsCmd.Flags().Bool("archived", false, "Include archived items.")
	rootCmd.AddCommand(itemsCmd)
}

var itemsCmd = &cobra.Command{
	Use:   "items <store> [--archived]",
	Short: "Lists the items last seen on a store.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		telemetry.InitSlog(*verbose)

		config := readConfig()
		database := openDatabase(config)
		defer database.Close()
		qry := db.New(database)

		var items []db.Item
		var err error
		if *itemsArchived {
			items, err = qry.GetAllItems(ctx, args[0])
		} else {
			items, err = qry.GetActiveItems(ctx, args[0])
		}
		if err != nil {
			serviceutil.Fatal("failed to query items", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Name", "Link", "Prices", "Sold out", "Archived", "Last seen"})

		for _, item := range items {
			t.AppendRow(table.Row{
				item.Name,
				item.Link,
				formatPrices(item.Prices),
				item.SoldOut,
				item.Archived,
				time.Unix(item.LastSeen, 0).Format(time.DateTime),
			})
		}

		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}

func formatPrices(raw string) string {
	prices := map[string]float64{}
	err := json.Unmarshal([]byte(raw), &prices)
	if err != nil {
		return raw
	}
	currencies := make([]string, 0, len(prices))
	for currency := range prices {
		currencies = append(currencies, currency)
	}
	sort.Strings(currencies)

	parts := make([]string, 0, len(currencies))
	for _, currency := range currencies {
		parts = append(parts, fmt.Sprintf("%s %.2f", currency, prices[currency]))
	}
	return strings.Join(parts, ", ")
}
