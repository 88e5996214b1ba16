package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kimhsiao/driftwood/internal/db"
	"github.com/kimhsiao/driftwood/internal/export"
	"github.com/kimhsiao/driftwood/internal/logging"
)

func init() {
	exportCmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Export the whole journal to an archive file",
		Long:  "Export every memory, attachment, and the first-encounter record to a single archive. A password encrypts the archive; it is never stored, so keep it safe.",
		Args:  cobra.ExactArgs(1),
		Run:   runExport,
	}
	exportCmd.Flags().StringP("password", "p", "", "Encrypt the archive with this password")
	RootCmd.AddCommand(exportCmd)

	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import an archive into the journal",
		Long:  "Restore memories from an archive. Memories already in the journal are kept as-is and skipped; an existing first-encounter record is never overwritten.",
		Args:  cobra.ExactArgs(1),
		Run:   runImport,
	}
	importCmd.Flags().StringP("password", "p", "", "Password for an encrypted archive")
	RootCmd.AddCommand(importCmd)
}

func runExport(cmd *cobra.Command, args []string) {
	password, _ := cmd.Flags().GetString("password")

	svc, closeFn := openExportService()
	defer closeFn()

	res, err := svc.Export(args[0], password)
	if err != nil {
		exitErr("export", err)
	}

	if formatFlag == "json" {
		printJSON(res)
		return
	}
	fmt.Printf("exported %d memories and %d attachments to %s (%d bytes)\n",
		res.MemoryCount, res.BlobCount, res.FilePath, res.SizeBytes)
	if res.Encrypted {
		fmt.Println("the archive is encrypted; the password is not stored anywhere")
	}
}

func runImport(cmd *cobra.Command, args []string) {
	password, _ := cmd.Flags().GetString("password")

	svc, closeFn := openExportService()
	defer closeFn()

	res, err := svc.Import(args[0], password)
	if err != nil {
		exitErr("import", err)
	}

	if formatFlag == "json" {
		printJSON(res)
		return
	}
	fmt.Printf("imported %d memories (%d skipped, %d attachments)\n",
		res.ImportedMemories, res.SkippedMemories, res.ImportedBlobs)
	if res.ImportedEncounter {
		fmt.Println("restored the first-encounter record")
	}
}

// openExportService wires the archive service for one invocation.
func openExportService() (*export.Service, func()) {
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
	return export.NewService(store, logging.Get()), func() { store.Close() }
}
