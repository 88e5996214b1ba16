package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kimhsiao/driftwood/internal/models"
)

func init() {
	cmd := &cobra.Command{
		Use:   "attach <id> <file>",
		Short: "Attach an image or audio file to a memory",
		Args:  cobra.ExactArgs(2),
		Run:   runAttach,
	}

	cmd.Flags().String("kind", "image", "Attachment kind: image or audio")
	cmd.Flags().String("mime", "", "MIME type (sniffed from the payload when omitted)")

	RootCmd.AddCommand(cmd)
}

func runAttach(cmd *cobra.Command, args []string) {
	kindStr, _ := cmd.Flags().GetString("kind")
	mime, _ := cmd.Flags().GetString("mime")

	var kind models.BlobKind
	switch kindStr {
	case "image":
		kind = models.BlobImage
	case "audio":
		kind = models.BlobAudio
	default:
		exitErr("attach", fmt.Errorf("unknown kind %q (want image or audio)", kindStr))
	}

	data, err := os.ReadFile(args[1])
	if err != nil {
		exitErr("read file", err)
	}

	svc, _, closeFn := openService()
	defer closeFn()

	blob, err := svc.SaveAttachment(models.UUID(args[0]), kind, mime, data)
	if err != nil {
		exitErr("attach", err)
	}

	if formatFlag == "json" {
		printJSON(blob)
		return
	}
	fmt.Printf("attached %s (%s, %d bytes)\n", blob.ID, blob.MimeType, blob.Size)
}
