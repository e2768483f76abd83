package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/kozaktomas/face-attendance/internal/absentee"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/mailer"
	"github.com/kozaktomas/face-attendance/internal/roster"
)

// AttendanceHandler handles attendance and absentee endpoints.
type AttendanceHandler struct {
	config *config.Config
	store  ledger.Store
	sender mailer.Sender
}

// NewAttendanceHandler creates a new attendance handler.
func NewAttendanceHandler(cfg *config.Config, store ledger.Store, sender mailer.Sender) *AttendanceHandler {
	return &AttendanceHandler{
		config: cfg,
		store:  store,
		sender: sender,
	}
}

// List returns attendance records for a day.
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	day, ok := dayParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	records, err := h.store.Query(r.Context(), day)
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to query attendance: %v", err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"date":    day,
		"records": records,
		"count":   len(records),
	})
}

// Students returns the roster as JSON.
func (h *AttendanceHandler) Students(w http.ResponseWriter, r *http.Request) {
	entries, err := roster.Load(h.config.Roster.Path)
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load roster: %v", err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"students": entries,
		"count":    len(entries),
	})
}

// Export writes attendance records as a CSV download. Without a date
// parameter it exports every day; with one it exports that day only.
func (h *AttendanceHandler) Export(w http.ResponseWriter, r *http.Request) {
	day := r.URL.Query().Get("date")
	if day != "" {
		if _, err := time.Parse("2006-01-02", day); err != nil {
			respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
	}

	var records []ledger.Record
	var err error
	if day == "" {
		records, err = h.store.QueryAll(r.Context())
	} else {
		records, err = h.store.Query(r.Context(), day)
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to query attendance: %v", err))
		return
	}

	filename := "attendance_all.csv"
	if day != "" {
		filename = "attendance_" + day + ".csv"
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	cw := csv.NewWriter(w)
	cw.Write([]string{"id", "name", "date", "time"})
	for _, rec := range records {
		cw.Write([]string{strconv.Itoa(rec.Label), rec.Name, rec.Day, rec.Time})
	}
	cw.Flush()
}

// absenteesForDay loads the roster and diffs it against the day's attendance.
func (h *AttendanceHandler) absenteesForDay(r *http.Request, day string) ([]roster.Entry, error) {
	entries, err := roster.Load(h.config.Roster.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}

	records, err := h.store.Query(r.Context(), day)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance: %w", err)
	}

	return absentee.Absentees(entries, records), nil
}

// Absentees returns roster entries without an attendance record for a day.
func (h *AttendanceHandler) Absentees(w http.ResponseWriter, r *http.Request) {
	day, ok := dayParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	absentees, err := h.absenteesForDay(r, day)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"date":      day,
		"absentees": absentees,
		"count":     len(absentees),
	})
}

// Notify emails every absentee for a day and reports per-recipient outcomes.
func (h *AttendanceHandler) Notify(w http.ResponseWriter, r *http.Request) {
	day, ok := dayParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	absentees, err := h.absenteesForDay(r, day)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	notifier := absentee.NewNotifier(h.sender, h.config.SMTP)
	report := notifier.Notify(r.Context(), absentees, day)

	respondJSON(w, http.StatusOK, map[string]any{
		"date":   day,
		"report": report,
	})
}
