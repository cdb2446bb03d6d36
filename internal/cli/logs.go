package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"activity-tracker/internal/domain"
	"activity-tracker/internal/export"
)

func newLogsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "List, add and delete log entries",
	}
	cmd.AddCommand(newLogsListCmd(e), newLogsAddCmd(e), newLogsDeleteCmd(e))
	return cmd
}

func newLogsListCmd(e *env) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List log entries, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, cfg, err := e.open()
			if err != nil {
				return err
			}
			defer a.Close()

			logs, err := a.Logs().ListLogs(cmd.Context(), date)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tACTIVITY\tSTART\tEND\tMIN")
			for _, l := range logs {
				end, mins := export.Open, export.Open
				if l.End != nil {
					end = l.End.In(cfg.Tracker.Location).Format(time.DateTime)
					mins = export.FormatMinutes(l.End.Sub(l.Start))
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", l.ID, l.Activity,
					l.Start.In(cfg.Tracker.Location).Format(time.DateTime), end, mins)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Only entries started on this day (YYYY-MM-DD)")
	return cmd
}

func newLogsAddCmd(e *env) *cobra.Command {
	var activity, start, end string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a finished interval",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, cfg, err := e.open()
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := domain.ParseTimestamp("start", start, cfg.Tracker.Location)
			if err != nil {
				return err
			}
			en, err := domain.ParseTimestamp("end", end, cfg.Tracker.Location)
			if err != nil {
				return err
			}
			saved, err := a.Logs().AddLog(cmd.Context(), activity, s, en)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Log saved: %s\n", saved.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&activity, "activity", "", "Activity name")
	cmd.Flags().StringVar(&start, "start", "", "Start time (RFC3339 or YYYY-MM-DDTHH:MM)")
	cmd.Flags().StringVar(&end, "end", "", "End time (RFC3339 or YYYY-MM-DDTHH:MM)")
	return cmd
}

func newLogsDeleteCmd(e *env) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "delete [id...]",
		Short: "Delete the given entries, or every entry with --all",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !all {
				return errors.New("pass log ids or --all")
			}
			if len(args) > 0 && all {
				return errors.New("--all cannot be combined with ids")
			}
			a, _, err := e.open()
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.Logs().DeleteLogs(cmd.Context(), args)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d logs\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Delete every entry")
	return cmd
}

func newActivitiesCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activities",
		Short: "Manage selectable activity names",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List activity names",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, _, err := e.open()
			if err != nil {
				return err
			}
			defer a.Close()

			names, err := a.Logs().ListActivities(cmd.Context())
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}, &cobra.Command{
		Use:   "add NAME",
		Short: "Register an activity name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := e.open()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Logs().AddActivity(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Activity %q added.\n", args[0])
			return nil
		},
	})
	return cmd
}

func newSummaryCmd(e *env) *cobra.Command {
	var date, metric string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show per-activity totals for one day",
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := domain.ParseMetric(metric)
			if err != nil {
				return err
			}
			a, _, err := e.open()
			if err != nil {
				return err
			}
			defer a.Close()

			rows, err := a.Logs().Summary(cmd.Context(), date, m)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No logs for this day.")
				return nil
			}
			unit := "MIN"
			if m == domain.MetricCount {
				unit = "COUNT"
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "ACTIVITY\t%s\tSHARE\n", unit)
			for _, r := range rows {
				share := "-"
				if r.Percent != nil {
					share = fmt.Sprintf("%.1f%%", *r.Percent)
				}
				fmt.Fprintf(tw, "%s\t%.1f\t%s\n", r.Activity, r.Value, share)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Day to summarise (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&metric, "metric", string(domain.MetricDuration), "count or duration")
	return cmd
}

func newExportCmd(e *env) *cobra.Command {
	var date, output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write log entries as CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, cfg, err := e.open()
			if err != nil {
				return err
			}
			defer a.Close()

			logs, err := a.Logs().ListLogs(cmd.Context(), date)
			if err != nil {
				return err
			}
			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := export.WriteCSV(w, logs, cfg.Tracker.Location); err != nil {
				return err
			}
			if output != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d rows to %s\n", len(logs), output)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Only entries started on this day (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "File to write (default stdout)")
	return cmd
}
