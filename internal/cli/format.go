package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kimhsiao/driftwood/internal/models"
)

func printJSON(v interface{}) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func printMemories(memories []models.Memory) {
	if formatFlag == "json" {
		printJSON(memories)
		return
	}
	if len(memories) == 0 {
		fmt.Println("no memories yet")
		return
	}
	for _, m := range memories {
		printMemoryLine(m)
	}
}

func printMemoryLine(m models.Memory) {
	marker := " "
	if m.Status == models.StatusSealed {
		marker = "*"
	}
	fmt.Printf("%s %s  %s  %s\n", marker, m.ID, m.CreatedAtTime().Format("2006-01-02"), m.Title)
}

func printMemory(m *models.Memory, blobs []models.BlobRecord) {
	if formatFlag == "json" {
		printJSON(struct {
			*models.Memory
			Attachments []models.BlobRecord `json:"attachments,omitempty"`
		}{m, blobs})
		return
	}

	fmt.Printf("%s\n", m.Title)
	fmt.Printf("  id:      %s\n", m.ID)
	fmt.Printf("  status:  %s\n", m.Status)
	if m.Status == models.StatusSealed && m.SealedUntil != nil {
		fmt.Printf("  sealed:  until %s\n", m.SealedUntilTime().Format(time.RFC3339))
	}
	fmt.Printf("  created: %s\n", m.CreatedAtTime().Format(time.RFC3339))
	if m.Meta != nil {
		if m.Meta.Location != "" {
			fmt.Printf("  where:   %s\n", m.Meta.Location)
		}
		if m.Meta.Weather != "" {
			fmt.Printf("  weather: %s\n", m.Meta.Weather)
		}
		if m.Meta.Mood != "" {
			fmt.Printf("  mood:    %s\n", m.Meta.Mood)
		}
		if len(m.Meta.Tags) > 0 {
			fmt.Printf("  tags:    %s\n", strings.Join(m.Meta.Tags, ", "))
		}
	}
	if len(blobs) > 0 {
		fmt.Printf("  attachments:\n")
		for _, b := range blobs {
			extra := ""
			if b.Width > 0 {
				extra = fmt.Sprintf(", %dx%d", b.Width, b.Height)
			}
			fmt.Printf("    %s (%s, %d bytes%s)\n", b.ID, b.MimeType, b.Size, extra)
		}
	}

	// Sealed content stays hidden until the unlock date.
	if m.Status == models.StatusSealed {
		fmt.Println("\n  [content sealed]")
		return
	}
	fmt.Printf("\n%s\n", m.Content)
}

func printEncounter(fe *models.FirstEncounter) {
	if formatFlag == "json" {
		printJSON(fe)
		return
	}

	state := "draft"
	if fe.IsLocked {
		state = "locked"
	}
	fmt.Printf("first encounter (%s)\n", state)
	if fe.Time != "" {
		fmt.Printf("  when:    %s\n", fe.Time)
	}
	if fe.Location != "" {
		fmt.Printf("  where:   %s\n", fe.Location)
	}
	if fe.Weather != "" {
		fmt.Printf("  weather: %s\n", fe.Weather)
	}
	if fe.Mood != "" {
		fmt.Printf("  mood:    %s\n", fe.Mood)
	}
	if fe.Story != "" {
		fmt.Printf("\n%s\n", fe.Story)
	}
	for _, d := range fe.Dialogues {
		fmt.Printf("  > %s\n", d)
	}
}
