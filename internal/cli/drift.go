package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kimhsiao/driftwood/internal/models"
)

// driftPhrase must be typed back to confirm a delete. Deletion removes
// the memory and every attachment in one transaction; there is no undo.
const driftPhrase = "let it go"

func init() {
	cmd := &cobra.Command{
		Use:   "drift <id>",
		Short: "Let a memory drift away (permanent delete)",
		Long:  "Permanently delete a memory and all of its attachments. Asks for a typed confirmation unless --force is given.",
		Args:  cobra.ExactArgs(1),
		Run:   runDrift,
	}

	cmd.Flags().Bool("force", false, "Skip the typed confirmation")

	RootCmd.AddCommand(cmd)
}

func runDrift(cmd *cobra.Command, args []string) {
	force, _ := cmd.Flags().GetBool("force")

	svc, _, closeFn := openService()
	defer closeFn()

	id := models.UUID(args[0])
	m, err := svc.GetMemory(id)
	if err != nil {
		exitErr("drift", err)
	}

	if !force {
		fmt.Printf("this will permanently delete %q and its attachments.\n", m.Title)
		fmt.Printf("type %q to confirm: ", driftPhrase)
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			exitErr("drift", err)
		}
		if strings.TrimSpace(line) != driftPhrase {
			fmt.Println("kept.")
			return
		}
	}

	if err := svc.DeleteMemory(id); err != nil {
		exitErr("drift", err)
	}

	if formatFlag == "json" {
		fmt.Printf(`{"ok":true,"id":%q}`+"\n", id)
		return
	}
	fmt.Printf("%s has drifted away\n", id)
}
