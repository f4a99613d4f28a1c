package commands

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"storewatch-backend/lib/agentpool"
	"storewatch-backend/lib/configutil"
	configsqlite "storewatch-backend/lib/configutil/sqlite"
	"storewatch-backend/lib/serviceutil"
	"storewatch-backend/services/monitor"
	"storewatch-backend/services/monitor/db"

	"github.com/spf13/cobra"
)

type Config struct {
	Database configsqlite.Struct `json:"database"`
	// json5 array of store definitions
	StoresFile string `json:"stores_file"`
	// newline-delimited user agent strings
	UserAgentsFile string `json:"user_agents_file"`
	// when set the rotation cursor lives in this file instead of the
	// database
	AgentCursorFile string `json:"agent_cursor_file"`

	TickSeconds         int `json:"tick_seconds"`
	StoreTimeoutSeconds int `json:"store_timeout_seconds"`
	MaxConcurrentStores int `json:"max_concurrent_stores"`
	MaxPages            int `json:"max_pages"`
}

var configFile *string
var verbose *bool

var rootCmd = &cobra.Command{
	Use:   "storewatch",
	Short: "storewatch polls store catalog pages and reports item changes.",
}

func init() {
	configFile = rootCmd.PersistentFlags().String("config", "config.json5", "The engine config file.")
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func readConfig() Config {
	config, err := configutil.ReadConfig[Config](*configFile)
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	return config
}

func openDatabase(config Config) *sql.DB {
	database, err := config.Database.OpenDB(db.Schema)
	if err != nil {
		serviceutil.Fatal("failed to open db", err)
	}
	return database
}

func newRotator(config Config, database *sql.DB) *agentpool.Rotator {
	var cursor agentpool.CursorStore
	if config.AgentCursorFile != "" {
		cursor = agentpool.FileCursorStore{Path: config.AgentCursorFile}
	} else {
		cursor = monitor.NewDBCursorStore(database)
	}
	rotator, err := agentpool.NewRotatorFromFile(config.UserAgentsFile, cursor)
	if err != nil {
		serviceutil.Fatal("failed to load user agents", err)
	}
	return rotator
}

func newService(ctx context.Context, config Config, database *sql.DB) monitor.Service {
	stores, err := monitor.LoadStores(ctx, config.StoresFile)
	if err != nil {
		serviceutil.Fatal("failed to load stores", err)
	}

	fetcher, err := monitor.NewFetcher(newRotator(config, database), monitor.FetcherOptions{
		MaxPages: config.MaxPages,
	})
	if err != nil {
		serviceutil.Fatal("failed to initialize fetcher", err)
	}

	return monitor.NewService(
		stores,
		monitor.NewRepository(database),
		fetcher,
		monitor.ServiceOptions{
			Notifier:            logNotifier(),
			TickInterval:        time.Duration(config.TickSeconds) * time.Second,
			StoreTimeout:        time.Duration(config.StoreTimeoutSeconds) * time.Second,
			MaxConcurrentStores: config.MaxConcurrentStores,
		},
	)
}
