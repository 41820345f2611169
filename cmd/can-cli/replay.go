package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/gavinwade12/canLogger/logging"
	"github.com/gavinwade12/canLogger/protocols/can"
)

var pace bool
var replayJSON bool
var replaySend bool

func init() {
	replayCmd.Flags().BoolVar(&pace, "pace", false, "wait out the recorded gap between frames")
	replayCmd.Flags().BoolVar(&replayJSON, "json", false, "print each decoded frame as a JSON object")
	replayCmd.Flags().BoolVar(&replaySend, "send", false, "transmit the frames on the configured bus instead of decoding them")

	rootCmd.AddCommand(replayCmd)
}

var replayCmd = &cobra.Command{
	Use:          "replay <capture file>",
	Short:        "Replay a capture written by log --capture",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		src, err := logging.OpenReplay(args[0], pace)
		if err != nil {
			return err
		}
		defer src.Close()

		if replaySend {
			bus, err := openBus(ctx, cmd)
			if err != nil {
				return errors.Wrap(err, "opening bus")
			}
			defer bus.Close()
			return forward(ctx, src, bus)
		}

		db, err := loadDatabase()
		if err != nil {
			return err
		}
		records, err := logging.Session(ctx, src, db, logging.SessionOptions{Logger: canLogger(cmd)})
		if err != nil {
			return err
		}
		for rec := range records {
			if err := printRecord(cmd.OutOrStdout(), rec, replayJSON); err != nil {
				cancel()
				return err
			}
		}
		return nil
	},
}

// forward sends every frame received from src to dst until src is exhausted.
func forward(ctx context.Context, src, dst can.Bus) error {
	for {
		f, err := src.Receive(ctx)
		if err != nil {
			if errors.Is(err, can.ErrClosed) {
				return nil
			}
			return err
		}
		if err = dst.Send(ctx, f); err != nil {
			return errors.Wrapf(err, "sending %s", f)
		}
	}
}
