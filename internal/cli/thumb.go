package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kimhsiao/driftwood/internal/media"
	"github.com/kimhsiao/driftwood/internal/models"
)

func init() {
	cmd := &cobra.Command{
		Use:   "thumb <id>",
		Short: "Write thumbnails for a memory's image attachments",
		Args:  cobra.ExactArgs(1),
		Run:   runThumb,
	}

	cmd.Flags().StringP("out", "o", ".", "Output directory")
	cmd.Flags().Int("max", 512, "Longest thumbnail edge in pixels")

	RootCmd.AddCommand(cmd)
}

func runThumb(cmd *cobra.Command, args []string) {
	outDir, _ := cmd.Flags().GetString("out")
	maxEdge, _ := cmd.Flags().GetInt("max")

	svc, _, closeFn := openService()
	defer closeFn()

	blobs, err := svc.Attachments(models.UUID(args[0]))
	if err != nil {
		exitErr("thumb", err)
	}

	written := 0
	for _, b := range blobs {
		if b.Kind != models.BlobImage {
			continue
		}
		thumb, err := media.Thumbnail(b.Data, maxEdge, maxEdge)
		if err != nil {
			exitErr("thumb", err)
		}
		path := filepath.Join(outDir, fmt.Sprintf("%s.jpg", b.ID))
		if err := os.WriteFile(path, thumb, 0o644); err != nil {
			exitErr("write thumbnail", err)
		}
		fmt.Printf("wrote %s\n", path)
		written++
	}
	if written == 0 {
		fmt.Println("no image attachments")
	}
}
