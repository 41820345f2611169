package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/gavinwade12/canLogger/codec"
	"github.com/gavinwade12/canLogger/dbc"
	"github.com/gavinwade12/canLogger/logging"
	"github.com/gavinwade12/canLogger/protocols/can"
)

var physical bool
var send bool
var request bool
var asJSON bool

func init() {
	packCmd.Flags().BoolVar(&physical, "physical", false, "values are physical quantities rather than raw values")
	packCmd.Flags().BoolVar(&send, "send", false, "transmit the frame on the configured bus")
	packCmd.Flags().BoolVar(&request, "request", false, "build a remote request for the message instead")
	unpackCmd.Flags().BoolVar(&asJSON, "json", false, "print each decoded frame as a JSON object")

	rootCmd.AddCommand(packCmd)
	rootCmd.AddCommand(unpackCmd)
}

var packCmd = &cobra.Command{
	Use:   "pack <message> [signal=value...]",
	Short: "Encode signal values into a frame of the named message",
	Long: "Encode signal values into a frame of the named message. Signals that aren't " +
		"given are packed as zero. The frame is printed in candump format.",
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := loadDatabase()
		if err != nil {
			return err
		}
		m, err := db.MessageByName(args[0])
		if err != nil {
			return err
		}

		var f can.Frame
		if request {
			f, err = codec.RequestFrame(m)
		} else {
			f, err = packMessage(m, args[1:], physical)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), f)

		if !send {
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		bus, err := openBus(ctx, cmd)
		if err != nil {
			return errors.Wrap(err, "opening bus")
		}
		defer bus.Close()
		return bus.Send(ctx, f)
	},
}

// packMessage encodes "signal=value" assignments into a frame of m.
func packMessage(m *dbc.Message, assignments []string, physical bool) (can.Frame, error) {
	values := make([]codec.Value, len(m.Signals))
	for i, s := range m.Signals {
		v, err := codec.ParseValue("0", s.Kind)
		if err != nil {
			return can.Frame{}, err
		}
		values[i] = v
	}

	for _, a := range assignments {
		name, text, ok := strings.Cut(a, "=")
		if !ok {
			return can.Frame{}, errors.Errorf("expected signal=value, got '%s'", a)
		}
		i := signalPosition(m, name)
		if i < 0 {
			return can.Frame{}, errors.Wrapf(dbc.ErrSignalNotFound, "%s in message %s", name, m.Name)
		}
		s := m.Signals[i]

		if raw, found := labelValue(s, text); found {
			text = strconv.FormatInt(raw, 10)
		} else if physical {
			phys, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return can.Frame{}, errors.Wrapf(err, "parsing %s", name)
			}
			if values[i], err = codec.FromPhysical(s, phys); err != nil {
				return can.Frame{}, err
			}
			continue
		}

		v, err := codec.ParseValue(text, s.Kind)
		if err != nil {
			return can.Frame{}, errors.Wrapf(err, "parsing %s", name)
		}
		values[i] = v
	}

	return codec.Pack(m, values)
}

func signalPosition(m *dbc.Message, name string) int {
	for i, s := range m.Signals {
		if s.Name == name {
			return i
		}
	}
	return -1
}

// labelValue maps a value-enumeration label back to its raw value.
func labelValue(s *dbc.Signal, label string) (int64, bool) {
	for _, vd := range s.ValueDescriptions {
		if vd.Label == label {
			return vd.Value, true
		}
	}
	return 0, false
}

var unpackCmd = &cobra.Command{
	Use:          "unpack <frame...>",
	Short:        "Decode frames given in candump format, e.g. 123#DEADBEEF",
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := loadDatabase()
		if err != nil {
			return err
		}

		for _, arg := range args {
			f, err := can.ParseFrame(arg)
			if err != nil {
				return errors.Wrapf(err, "parsing frame '%s'", arg)
			}
			rec, err := logging.DecodeFrame(db, f, time.Now())
			if err != nil {
				return err
			}
			if err = printRecord(cmd.OutOrStdout(), rec, asJSON); err != nil {
				return err
			}
		}
		return nil
	},
}

func printRecord(w io.Writer, rec logging.Record, asJSON bool) error {
	if asJSON {
		b, err := logging.MarshalRecord(rec)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", b)
		return err
	}

	if rec.Message == nil {
		_, err := fmt.Fprintf(w, "%s: unknown message\n", rec.Frame)
		return err
	}
	fmt.Fprintf(w, "%s: %s\n", rec.Frame, rec.Message.Name)
	for _, v := range rec.Values {
		line := fmt.Sprintf("  %s = %s", v.Signal.Name, strconv.FormatFloat(v.Physical, 'g', -1, 64))
		if v.Unit != "" {
			line += " " + string(v.Unit)
		}
		line += " (raw " + v.Raw.String() + ")"
		if v.Label != "" {
			line += " " + v.Label
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
