package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"activity-tracker/internal/timer"
)

func newTrackCmd(e *env) *cobra.Command {
	var activity string
	cmd := &cobra.Command{
		Use:   "track",
		Short: "Time an activity live; Enter or Ctrl-C stops and saves it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, cfg, err := e.open()
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			opts := timer.Options{Tick: cfg.Tracker.Tick, Timeout: cfg.Store.Timeout}
			if isTerminal(out) {
				opts.OnTick = func(t timer.Tick) {
					fmt.Fprintf(out, "\r%s  %s", t.Activity, formatElapsed(t.Elapsed))
				}
			}
			m := timer.New(a.Logs(), e.log, opts)
			if _, err := m.Start(activity); err != nil {
				return err
			}
			fmt.Fprintf(out, "Tracking %q. Press Enter to stop.\n", activity)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			enter := make(chan struct{})
			go func() {
				_, _ = bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				close(enter)
			}()
			select {
			case <-enter:
			case <-ctx.Done():
			}

			// The signal context is done by now; saving gets a fresh one.
			saveCtx := context.WithoutCancel(cmd.Context())
			entry, err := m.Stop(saveCtx)
			if err != nil {
				e.log.Warn("saving tracked interval failed, retrying", slog.String("error", err.Error()))
				entry, err = m.Stop(saveCtx)
			}
			if err != nil {
				// The session is still held; print it so it can be re-entered.
				snap := m.Snapshot()
				fmt.Fprintf(out, "\nCould not save %s. Record it later with:\n  activity-tracker logs add --activity %q --start %s --end %s\n",
					snap.Activity, snap.Activity, snap.StartedAt.Format(time.RFC3339), time.Now().Format(time.RFC3339))
				return err
			}
			fmt.Fprintf(out, "\nSaved %s: %s\n", entry.Activity, formatElapsed(entry.End.Sub(entry.Start)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&activity, "activity", "a", "", "Activity to track")
	_ = cmd.MarkFlagRequired("activity")
	return cmd
}

// isTerminal reports whether w is an interactive terminal; the live
// readout is only drawn there.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// formatElapsed renders d as HH:MM:SS.
func formatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	return fmt.Sprintf("%02d:%02d:%02d", h, m, d/time.Second)
}
