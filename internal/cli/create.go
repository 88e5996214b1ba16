package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kimhsiao/driftwood/internal/models"
)

func init() {
	cmd := &cobra.Command{
		Use:   "create [content]",
		Short: "Write a new memory",
		Long:  "Write a new memory. Content can be a positional arg or piped via stdin.",
		Run:   runCreate,
	}

	cmd.Flags().StringP("title", "t", "", "Memory title (required)")
	cmd.Flags().String("location", "", "Where it happened")
	cmd.Flags().String("weather", "", "What the weather was like")
	cmd.Flags().String("mood", "", "How it felt")
	cmd.Flags().String("tags", "", "Comma-separated tags")

	cmd.MarkFlagRequired("title")

	RootCmd.AddCommand(cmd)
}

func runCreate(cmd *cobra.Command, args []string) {
	title, _ := cmd.Flags().GetString("title")
	location, _ := cmd.Flags().GetString("location")
	weather, _ := cmd.Flags().GetString("weather")
	mood, _ := cmd.Flags().GetString("mood")
	tagsStr, _ := cmd.Flags().GetString("tags")

	// Content: positional arg first, then stdin.
	var content string
	if len(args) > 0 {
		content = strings.Join(args, " ")
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitErr("read stdin", err)
			}
			content = string(b)
		}
	}
	if strings.TrimSpace(content) == "" {
		exitErr("create", fmt.Errorf("content is required (positional arg or stdin)"))
	}

	draft := models.Memory{
		Title:   strings.TrimSpace(title),
		Content: strings.TrimSpace(content),
	}
	if location != "" || weather != "" || mood != "" || tagsStr != "" {
		draft.Meta = &models.MemoryMeta{
			Location: location,
			Weather:  weather,
			Mood:     mood,
			Tags:     splitTags(tagsStr),
		}
	}

	svc, _, closeFn := openService()
	defer closeFn()

	m, err := svc.CreateMemory(draft)
	if err != nil {
		exitErr("create", err)
	}

	if formatFlag == "json" {
		printJSON(m)
		return
	}
	fmt.Printf("created %s\n", m.ID)
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(s, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
