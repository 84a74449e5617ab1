package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/eleven-am/chrono/internal/report"
	"github.com/eleven-am/chrono/internal/scope"
	"github.com/eleven-am/chrono/internal/store"
)

var (
	reportKind   string
	reportDate   string
	reportWeek   int
	reportMonth  int
	reportYear   int
	reportFrom   string
	reportTo     string
	reportUser   int64
	reportClient int64
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print an aggregate time report",
	Long: `Aggregates time entries over a window. The CLI runs with admin
visibility: pass --user to narrow to one user, omit it for all users.

Kinds: task, client, client-task, detailed, notes, entries.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := buildWindow()
		if err != nil {
			return err
		}

		var target *int64
		if reportUser != 0 {
			target = &reportUser
		}
		sc, err := scope.Resolve(scope.Caller{Role: store.RoleAdmin}, target)
		if err != nil {
			return err
		}

		var filters report.Filters
		if reportClient != 0 {
			filters.ClientID = &reportClient
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		engine := report.NewEngine(s)
		ctx := cmd.Context()

		switch reportKind {
		case "task":
			rows, err := engine.ByTask(ctx, w, sc, filters)
			if err != nil {
				return err
			}
			cmd.Printf("%-40s %12s\n", "TASK", "DURATION")
			for _, r := range rows {
				cmd.Printf("%-40s %12s\n", r.TaskName, report.FormatDuration(r.TotalSeconds))
			}
		case "client":
			rows, err := engine.ByClient(ctx, w, sc, filters)
			if err != nil {
				return err
			}
			cmd.Printf("%-40s %12s\n", "CLIENT", "DURATION")
			for _, r := range rows {
				cmd.Printf("%-40s %12s\n", r.ClientName, report.FormatDuration(r.TotalSeconds))
			}
		case "client-task":
			rows, err := engine.ByClientTask(ctx, w, sc, filters)
			if err != nil {
				return err
			}
			cmd.Printf("%-30s %-30s %12s\n", "CLIENT", "TASK", "DURATION")
			for _, r := range rows {
				cmd.Printf("%-30s %-30s %12s\n", r.ClientName, r.TaskName, report.FormatDuration(r.TotalSeconds))
			}
		case "detailed":
			rows, err := engine.DetailedByTask(ctx, w, sc, filters)
			if err != nil {
				return err
			}
			cmd.Printf("%-40s %8s %12s %12s\n", "TASK", "ENTRIES", "TOTAL", "AVERAGE")
			for _, r := range rows {
				cmd.Printf("%-40s %8d %12s %12s\n", r.TaskName, r.Entries,
					report.FormatDuration(r.TotalSeconds), report.FormatDuration(r.AverageSeconds))
			}
		case "notes":
			rows, err := engine.Notes(ctx, w, sc, filters)
			if err != nil {
				return err
			}
			for _, r := range rows {
				cmd.Printf("%s  %s / %s / %s\n  %s\n",
					r.StartTime.Format("2006-01-02 15:04"), r.Username, r.ClientName, r.TaskName, r.Notes)
			}
		case "entries":
			rows, err := engine.ListEntries(ctx, w, sc, filters)
			if err != nil {
				return err
			}
			now := time.Now()
			cmd.Printf("%-6s %-16s %-24s %-24s %-17s %12s\n", "ID", "USER", "CLIENT", "TASK", "START", "DURATION")
			for _, r := range rows {
				cmd.Printf("%-6d %-16s %-24s %-24s %-17s %12s\n", r.ID, r.Username, r.ClientName,
					r.TaskName, r.StartTime.Format("2006-01-02 15:04"), entryDuration(r, now))
			}
		default:
			return fmt.Errorf("unknown report kind %q", reportKind)
		}
		return nil
	},
}

// entryDuration renders a closed entry's stored duration, or the elapsed
// time so far for a still-running one.
func entryDuration(r report.EntryRow, now time.Time) string {
	if r.Duration != nil {
		return report.FormatDuration(*r.Duration)
	}
	open := store.TimeEntry{StartTime: r.StartTime, EndTime: r.EndTime}
	return report.FormatDuration(report.ElapsedSeconds(&open, now))
}

func buildWindow() (report.Window, error) {
	switch {
	case reportDate != "":
		d, err := time.Parse("2006-01-02", reportDate)
		if err != nil {
			return nil, fmt.Errorf("invalid --date: %w", err)
		}
		return report.Day(d), nil
	case reportWeek != 0:
		year := reportYear
		if year == 0 {
			year, _ = time.Now().ISOWeek()
		}
		return report.ISOWeek(year, reportWeek), nil
	case reportMonth != 0:
		year := reportYear
		if year == 0 {
			year = time.Now().Year()
		}
		return report.Month(year, time.Month(reportMonth)), nil
	case reportFrom != "" || reportTo != "":
		if reportFrom == "" || reportTo == "" {
			return nil, fmt.Errorf("--from and --to must be given together")
		}
		from, err := time.Parse("2006-01-02", reportFrom)
		if err != nil {
			return nil, fmt.Errorf("invalid --from: %w", err)
		}
		to, err := time.Parse("2006-01-02", reportTo)
		if err != nil {
			return nil, fmt.Errorf("invalid --to: %w", err)
		}
		return report.Range(from, to), nil
	}
	return nil, nil
}

func init() {
	reportCmd.Flags().StringVar(&reportKind, "kind", "task", "report kind: task, client, client-task, detailed, notes, entries")
	reportCmd.Flags().StringVar(&reportDate, "date", "", "daily window (YYYY-MM-DD)")
	reportCmd.Flags().IntVar(&reportWeek, "week", 0, "ISO week number")
	reportCmd.Flags().IntVar(&reportMonth, "month", 0, "calendar month (1-12)")
	reportCmd.Flags().IntVar(&reportYear, "year", 0, "year for --week or --month (default: current)")
	reportCmd.Flags().StringVar(&reportFrom, "from", "", "range start (YYYY-MM-DD)")
	reportCmd.Flags().StringVar(&reportTo, "to", "", "range end, inclusive (YYYY-MM-DD)")
	reportCmd.Flags().Int64Var(&reportUser, "user", 0, "narrow to one user id")
	reportCmd.Flags().Int64Var(&reportClient, "client", 0, "narrow to one client id")
}
