package commands

import (
	"storewatch-backend/lib/telemetry"

	"github.com/spf13/cobra"
)

var tickAll *bool

func init() {
	tickAll = tickCmd.Flags().Bool("all", false, "Run every store regardless of schedule.")
	rootCmd.AddCommand(tickCmd)
}

var tickCmd = &cobra.Command{
	Use:   "tick [--all]",
	Short: "Runs a single monitoring pass and exits.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		telemetry.InitSlog(*verbose)

		config := readConfig()
		database := openDatabase(config)
		defer database.Close()

		service := newService(ctx, config, database)
		if *tickAll {
			service.RunAll(ctx)
		} else {
			service.RunTick(ctx)
		}
	},
}
