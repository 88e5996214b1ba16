// Package cli implements the driftwood CLI commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kimhsiao/driftwood/internal/config"
	"github.com/kimhsiao/driftwood/internal/db"
	"github.com/kimhsiao/driftwood/internal/journal"
	"github.com/kimhsiao/driftwood/internal/logging"
	"github.com/kimhsiao/driftwood/internal/state"
)

var (
	configPath string
	dataDir    string
	formatFlag string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "driftwood",
	Short: "A local-first memory journal",
	Long:  "Driftwood keeps a personal memory journal: write memories, seal them until a future date, let them drift away. SQLite-backed, single binary.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ~/.driftwood/config.yaml)")
	RootCmd.PersistentFlags().StringVarP(&dataDir, "data-dir", "d", "", "Data directory (default: $DRIFTWOOD_DATA_DIR or ~/.driftwood)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "text", "Output format: json or text")
}

func loadConfig() *config.Config {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		exitErr("load config", err)
	}
	if dataDir != "" {
		cfg.Storage.DataDir = dataDir
	}
	return cfg
}

// openService wires the full stack for one command invocation. The
// returned close function releases the database.
func openService() (*journal.Service, *config.Config, func()) {
	cfg := loadConfig()
	logging.Init(os.Stderr, logging.ParseLevel(cfg.Logging.Level))

	database, err := db.Open(cfg.Storage.DataDir)
	if err != nil {
		exitErr("open database", err)
	}
	if err := db.NewMigrator(database.DB).Up(); err != nil {
		database.Close()
		exitErr("migrate database", err)
	}

	store := db.NewStore(database)
	svc := journal.NewService(store, state.NewContainer(), logging.Get())
	return svc, cfg, func() { store.Close() }
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
