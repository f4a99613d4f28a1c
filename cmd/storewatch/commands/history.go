package commands

import (
	"fmt"
	"os"
	"time"

	"storewatch-backend/lib/serviceutil"
	"storewatch-backend/lib/telemetry"
	"storewatch-backend/services/monitor/db"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history <store> <item link or name>",
	Short: "Shows the recorded price history of one item.",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		telemetry.InitSlog(*verbose)

		config := readConfig()
		database := openDatabase(config)
		defer database.Close()
		qry := db.New(database)

		records, err := qry.GetPriceHistory(ctx, db.GetPriceHistoryParams{
			StoreName:   args[0],
			IdentityKey: args[1],
		})
		if err != nil {
			serviceutil.Fatal("failed to query price history", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Currency", "Price", "Observed"})

		for _, record := range records {
			t.AppendRow(table.Row{
				record.Currency,
				fmt.Sprintf("%.2f", record.Price),
				time.Unix(record.ObservedAt, 0).Format(time.DateTime),
			})
		}

		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
