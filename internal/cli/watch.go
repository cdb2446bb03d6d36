package cli

import (
	"context"
	"encoding/json"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	kafkafeed "activity-tracker/internal/adapter/kafka"
	"activity-tracker/internal/domain"
)

func newWatchCmd(e *env) *cobra.Command {
	var group string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print change events from the Kafka feed as JSON lines",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := e.opts.LoadConfig()
			if err != nil {
				return err
			}
			if len(cfg.Kafka.Brokers) == 0 {
				return errors.New("KAFKA_BROKERS is not set")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			enc := json.NewEncoder(cmd.OutOrStdout())
			w := kafkafeed.NewWatcher(kafkafeed.NewReader(cfg.Kafka.Brokers, cfg.Kafka.Topic, group),
				func(_ context.Context, ev domain.Event) error { return enc.Encode(ev) }, e.log)
			defer w.Close()

			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&group, "group", "activity-tracker-watch", "Kafka consumer group")
	return cmd
}
