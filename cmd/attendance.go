package cmd

import (
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/spf13/cobra"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance [date]",
	Short: "List attendance records for a day",
	Long: `List attendance records for a day in the order people arrived.
The date is given as YYYY-MM-DD and defaults to today.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAttendance,
}

func init() {
	rootCmd.AddCommand(attendanceCmd)
}

// dayArg resolves the optional date argument, defaulting to today.
func dayArg(args []string) (string, error) {
	if len(args) == 0 {
		return ledger.Today(), nil
	}
	if _, err := time.Parse("2006-01-02", args[0]); err != nil {
		return "", fmt.Errorf("invalid date %q, expected YYYY-MM-DD", args[0])
	}
	return args[0], nil
}

func runAttendance(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	day, err := dayArg(args)
	if err != nil {
		return err
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

	if len(records) == 0 {
		fmt.Printf("No attendance records for %s\n", day)
		return nil
	}

	fmt.Printf("Attendance for %s (%d present):\n", day, len(records))
	for _, r := range records {
		fmt.Printf("  %s  %s (id %d)\n", r.Time, r.Name, r.Label)
	}
	return nil
}
