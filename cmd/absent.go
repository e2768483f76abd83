package cmd

import (
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/absentee"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/mailer"
	"github.com/kozaktomas/face-attendance/internal/roster"
	"github.com/spf13/cobra"
)

var absentCmd = &cobra.Command{
	Use:   "absent [date]",
	Short: "List absentees for a day, optionally emailing them",
	Long: `List roster entries without an attendance record for a day.
The date is given as YYYY-MM-DD and defaults to today. With --notify, each
absentee with an email address receives an absence notice over SMTP.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAbsent,
}

func init() {
	rootCmd.AddCommand(absentCmd)

	absentCmd.Flags().Bool("notify", false, "Send an absence notice to each absentee")
}

func runAbsent(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	day, err := dayArg(args)
	if err != nil {
		return err
	}

	entries, err := roster.Load(cfg.Roster.Path)
	if err != nil {
		return fmt.Errorf("loading roster: %w", err)
	}
	if len(entries) == 0 {
		fmt.Printf("Roster %s is empty or missing, nothing to resolve\n", cfg.Roster.Path)
		return nil
	}

	store, err := newStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.Query(cmd.Context(), day)
	if err != nil {
		return fmt.Errorf("querying attendance: %w", err)
	}

	absentees := absentee.Absentees(entries, records)
	if len(absentees) == 0 {
		fmt.Printf("Everyone on the roster was present on %s\n", day)
		return nil
	}

	fmt.Printf("Absent on %s (%d):\n", day, len(absentees))
	for _, a := range absentees {
		if a.Email != "" {
			fmt.Printf("  %s <%s>\n", a.Name, a.Email)
		} else {
			fmt.Printf("  %s (no email)\n", a.Name)
		}
	}

	if !mustGetBool(cmd, "notify") {
		return nil
	}

	if cfg.SMTP.Host == "" {
		return errors.New("SMTP_HOST environment variable is required for --notify")
	}

	notifier := absentee.NewNotifier(&mailer.SMTP{}, cfg.SMTP)
	report := notifier.Notify(cmd.Context(), absentees, day)

	fmt.Printf("Notices sent: %d", len(report.Sent))
	if len(report.Failed) > 0 {
		fmt.Printf(", failed: %d", len(report.Failed))
	}
	if len(report.Skipped) > 0 {
		fmt.Printf(", skipped (no email): %d", len(report.Skipped))
	}
	fmt.Println()
	return nil
}
