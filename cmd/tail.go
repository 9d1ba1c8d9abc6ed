package cmd

import (
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cotyar/tagstream"
	"github.com/cotyar/tagstream/sink"
)

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Stream a tag's events to stdout as JSON lines",
	Long: `Follows one tag from the journal and writes every envelope to stdout as a
JSON line, in offset order, from the given starting offset. Keeps polling for
new writes until interrupted.`,
	RunE: runTail,
}

func init() {
	f := tailCmd.Flags()

	f.StringP("tag", "t", "", "tag to stream (required)")
	f.Uint64("from", 0, "starting journal offset")
	f.Uint64("window", 64, "demand window: envelopes requested ahead of consumption")
	f.Duration("refresh-interval", 0, "journal poll period (default 1s)")
	f.Int("max-buffer", 0, "publisher buffer bound (default 512)")

	_ = tailCmd.MarkFlagRequired("tag")
}

func runTail(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := slog.Default()

	tag, _ := cmd.Flags().GetString("tag")
	from, _ := cmd.Flags().GetUint64("from")
	window, _ := cmd.Flags().GetUint64("window")
	refresh, _ := cmd.Flags().GetDuration("refresh-interval")
	maxBuffer, _ := cmd.Flags().GetInt("max-buffer")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dec, err := newDecoder(cfg)
	if err != nil {
		return err
	}

	store, err := openJournal(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	runner := tagstream.NewRunner(store, dec,
		tagstream.WithStream(tag, from, sink.NewStdout(cmd.OutOrStdout(), window, logger)),
		tagstream.WithRefreshInterval(refresh),
		tagstream.WithMaxBufferSize(maxBuffer),
		tagstream.WithLogger(logger),
	)
	return runner.Run(ctx)
}
