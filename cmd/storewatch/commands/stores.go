package commands

import (
	"os"
	"time"

	"storewatch-backend/lib/serviceutil"
	"storewatch-backend/lib/telemetry"
	"storewatch-backend/services/monitor"
	"storewatch-backend/services/monitor/db"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(storesCmd)
}

var storesCmd = &cobra.Command{
	Use:   "stores",
	Short: "Lists the configured stores and whether each is due right now.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		telemetry.InitSlog(*verbose)

		config := readConfig()
		database := openDatabase(config)
		defer database.Close()

		stores, err := monitor.LoadStores(ctx, config.StoresFile)
		if err != nil {
			serviceutil.Fatal("failed to load stores", err)
		}
		known, err := db.New(database).GetStores(ctx)
		if err != nil {
			serviceutil.Fatal("failed to query stores", err)
		}
		seen := map[string]bool{}
		for _, name := range known {
			seen[name] = true
		}

		now := time.Now()
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Store", "Url", "Due now", "Has data"})

		for _, store := range stores {
			t.AppendRow(table.Row{
				store.DisplayName(),
				store.Options.BaseUrl,
				store.ParsedSchedule.IsDue(now),
				seen[store.Name],
			})
		}

		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
