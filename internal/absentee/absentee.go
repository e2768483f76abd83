// Package absentee computes who on the roster has no attendance record for a
// day and drives the absence notification mail.
package absentee

import (
	"context"
	"fmt"
	"os"

	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/mailer"
	"github.com/kozaktomas/face-attendance/internal/roster"
)

// Absentees returns roster entries whose id has no attendance record among
// the given records. Entries without an email are still returned; skipping
// them is the notification step's job, not the resolver's.
func Absentees(entries []roster.Entry, records []ledger.Record) []roster.Entry {
	present := make(map[int]bool, len(records))
	for _, r := range records {
		present[r.Label] = true
	}

	var absent []roster.Entry
	for _, e := range entries {
		if !present[e.ID] {
			absent = append(absent, e)
		}
	}
	return absent
}

// Report aggregates per-recipient notification outcomes.
type Report struct {
	Sent    []string `json:"sent"`    // email addresses notified
	Failed  []string `json:"failed"`  // email addresses that errored
	Skipped []string `json:"skipped"` // absentee names without an email
}

// Notifier sends absence notices.
type Notifier struct {
	sender mailer.Sender
	cfg    mailer.Config
}

// NewNotifier creates a notifier.
func NewNotifier(sender mailer.Sender, cfg mailer.Config) *Notifier {
	return &Notifier{sender: sender, cfg: cfg}
}

// Notify mails each absentee with an email address. A failure for one
// recipient never aborts the rest; outcomes are aggregated in the report.
func (n *Notifier) Notify(ctx context.Context, absentees []roster.Entry, day string) Report {
	var report Report
	for _, a := range absentees {
		if a.Email == "" {
			report.Skipped = append(report.Skipped, a.Name)
			continue
		}
		if err := ctx.Err(); err != nil {
			// Remaining recipients count as failed so the caller sees an
			// incomplete batch.
			report.Failed = append(report.Failed, a.Email)
			continue
		}

		subject := fmt.Sprintf("Absent Notice for %s", day)
		body := fmt.Sprintf(
			"Hello %s,\n\nYou were marked absent on %s. If this is a mistake, please contact the administration.\n\nRegards,\nAttendance System",
			a.Name, day)

		if err := n.sender.Send(n.cfg, a.Email, subject, body); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to send email to %s: %v\n", a.Email, err)
			report.Failed = append(report.Failed, a.Email)
			continue
		}
		report.Sent = append(report.Sent, a.Email)
	}
	return report
}
