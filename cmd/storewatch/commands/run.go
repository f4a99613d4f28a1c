package commands

import (
	"context"

	"storewatch-backend/lib/serviceutil"
	"storewatch-backend/lib/telemetry"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Runs the monitoring daemon until interrupted.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		telemetry.InitSlog(*verbose)
		tel, err := telemetry.SetupFromEnv(ctx, "storewatch")
		if err != nil {
			serviceutil.Fatal("failed to setup telemetry", err)
		}
		defer tel.Shutdown(context.Background())
		telemetry.InstrumentPerfStats(ctx)

		config := readConfig()
		database := openDatabase(config)
		defer database.Close()

		service := newService(ctx, config, database)
		service.Start(ctx)
	},
}
