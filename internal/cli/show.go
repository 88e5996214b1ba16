package cli

import (
	"github.com/spf13/cobra"

	"github.com/kimhsiao/driftwood/internal/models"
)

func init() {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a single memory",
		Args:  cobra.ExactArgs(1),
		Run:   runShow,
	}

	RootCmd.AddCommand(cmd)
}

func runShow(cmd *cobra.Command, args []string) {
	svc, _, closeFn := openService()
	defer closeFn()

	id := models.UUID(args[0])
	m, err := svc.GetMemory(id)
	if err != nil {
		exitErr("show", err)
	}
	blobs, err := svc.Attachments(id)
	if err != nil {
		exitErr("show", err)
	}

	printMemory(m, blobs)
}
