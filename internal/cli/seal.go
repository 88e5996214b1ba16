package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kimhsiao/driftwood/internal/models"
)

func init() {
	sealCmd := &cobra.Command{
		Use:   "seal <id>",
		Short: "Seal a memory until a future date",
		Long:  "Seal a memory so its content stays hidden until the unlock date passes. Unsealing happens by itself; no write is needed.",
		Args:  cobra.ExactArgs(1),
		Run:   runSeal,
	}
	sealCmd.Flags().String("until", "", "Unlock date (RFC3339, e.g. 2027-01-01T00:00:00Z)")
	sealCmd.Flags().Duration("for", 0, "Seal duration from now (e.g. 720h); default from config")
	RootCmd.AddCommand(sealCmd)

	unsealCmd := &cobra.Command{
		Use:   "unseal <id>",
		Short: "Release a sealed memory early",
		Args:  cobra.ExactArgs(1),
		Run:   runUnseal,
	}
	RootCmd.AddCommand(unsealCmd)
}

func runSeal(cmd *cobra.Command, args []string) {
	untilStr, _ := cmd.Flags().GetString("until")
	forDur, _ := cmd.Flags().GetDuration("for")

	svc, cfg, closeFn := openService()
	defer closeFn()

	var unlockAt time.Time
	switch {
	case untilStr != "":
		t, err := time.Parse(time.RFC3339, untilStr)
		if err != nil {
			exitErr("seal", fmt.Errorf("invalid --until value %q: %w", untilStr, err))
		}
		unlockAt = t
	case forDur > 0:
		unlockAt = time.Now().Add(forDur)
	default:
		unlockAt = time.Now().Add(cfg.Journal.DefaultSealDuration)
	}

	m, err := svc.SealMemory(models.UUID(args[0]), unlockAt)
	if err != nil {
		exitErr("seal", err)
	}

	if formatFlag == "json" {
		printJSON(m)
		return
	}
	fmt.Printf("sealed %s until %s\n", m.ID, m.SealedUntilTime().Format(time.RFC3339))
}

func runUnseal(cmd *cobra.Command, args []string) {
	svc, _, closeFn := openService()
	defer closeFn()

	m, err := svc.UnsealMemory(models.UUID(args[0]))
	if err != nil {
		exitErr("unseal", err)
	}

	if formatFlag == "json" {
		printJSON(m)
		return
	}
	fmt.Printf("unsealed %s\n", m.ID)
}
