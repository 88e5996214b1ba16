package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	apperrors "github.com/kimhsiao/driftwood/internal/errors"
	"github.com/kimhsiao/driftwood/internal/models"
)

// lockPhrase must be typed back to confirm the one-way lock.
const lockPhrase = "seal it forever"

func init() {
	encounterCmd := &cobra.Command{
		Use:   "encounter",
		Short: "Manage the first-encounter record",
		Long:  "The first-encounter record describes how it all began. It can be redrafted freely until locked; the lock is permanent.",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the first-encounter record",
		Run:   runEncounterShow,
	}

	saveCmd := &cobra.Command{
		Use:   "save [story]",
		Short: "Save a first-encounter draft",
		Long:  "Save the first-encounter draft, replacing any previous draft. Story can be a positional arg or piped via stdin. Fails once the record is locked.",
		Run:   runEncounterSave,
	}
	saveCmd.Flags().String("time", "", "When it happened, free-form")
	saveCmd.Flags().String("location", "", "Where it happened")
	saveCmd.Flags().String("weather", "", "What the weather was like")
	saveCmd.Flags().String("mood", "", "How it felt")
	saveCmd.Flags().StringArray("dialogue", nil, "A remembered line (repeatable)")

	lockCmd := &cobra.Command{
		Use:   "lock",
		Short: "Lock the first-encounter record forever",
		Run:   runEncounterLock,
	}
	lockCmd.Flags().Bool("force", false, "Skip the typed confirmation")

	encounterCmd.AddCommand(showCmd, saveCmd, lockCmd)
	RootCmd.AddCommand(encounterCmd)
}

func runEncounterShow(cmd *cobra.Command, args []string) {
	svc, _, closeFn := openService()
	defer closeFn()

	if err := svc.LoadFirstEncounter(); err != nil {
		exitErr("encounter show", err)
	}
	snap := svc.State().Snapshot()
	if snap.FirstEncounter == nil {
		fmt.Println("no first-encounter record yet")
		return
	}
	printEncounter(snap.FirstEncounter)
}

func runEncounterSave(cmd *cobra.Command, args []string) {
	timeStr, _ := cmd.Flags().GetString("time")
	location, _ := cmd.Flags().GetString("location")
	weather, _ := cmd.Flags().GetString("weather")
	mood, _ := cmd.Flags().GetString("mood")
	dialogues, _ := cmd.Flags().GetStringArray("dialogue")

	var story string
	if len(args) > 0 {
		story = strings.Join(args, " ")
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitErr("read stdin", err)
			}
			story = string(b)
		}
	}

	svc, _, closeFn := openService()
	defer closeFn()

	err := svc.SaveFirstEncounter(models.FirstEncounter{
		Time:      timeStr,
		Location:  location,
		Weather:   weather,
		Mood:      mood,
		Story:     strings.TrimSpace(story),
		Dialogues: dialogues,
	})
	if err != nil {
		if apperrors.Is(err, apperrors.ErrEncounterLocked) {
			exitErr("encounter save", fmt.Errorf("the record is locked and can no longer change"))
		}
		exitErr("encounter save", err)
	}

	fmt.Println("draft saved")
}

func runEncounterLock(cmd *cobra.Command, args []string) {
	force, _ := cmd.Flags().GetBool("force")

	svc, _, closeFn := openService()
	defer closeFn()

	if !force {
		fmt.Println("locking is permanent: the record can never change again.")
		fmt.Printf("type %q to confirm: ", lockPhrase)
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			exitErr("encounter lock", err)
		}
		if strings.TrimSpace(line) != lockPhrase {
			fmt.Println("left unlocked.")
			return
		}
	}

	if err := svc.LockFirstEncounter(); err != nil {
		exitErr("encounter lock", err)
	}
	fmt.Println("locked")
}
