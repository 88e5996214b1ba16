package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kimhsiao/driftwood/internal/models"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List memories, newest first",
		Run:   runList,
	}

	cmd.Flags().String("status", "", "Filter by status: active or sealed")

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	statusFilter, _ := cmd.Flags().GetString("status")

	svc, _, closeFn := openService()
	defer closeFn()

	svc.Start()
	snap := svc.State().Snapshot()
	if snap.Err != "" {
		exitErr("list", fmt.Errorf("%s", snap.Err))
	}

	memories := snap.Memories
	if statusFilter != "" {
		filtered := make([]models.Memory, 0, len(memories))
		for _, m := range memories {
			if string(m.Status) == statusFilter {
				filtered = append(filtered, m)
			}
		}
		memories = filtered
	}

	printMemories(memories)
}
