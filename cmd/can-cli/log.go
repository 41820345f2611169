package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gavinwade12/canLogger/dbc"
	"github.com/gavinwade12/canLogger/logging"
	"github.com/gavinwade12/canLogger/units"
)

var logFileFormat string
var logFormat string
var sqlitePath string
var capturePath string
var publishMQTT bool
var skipUnknown bool
var logDuration time.Duration

func init() {
	addLoggedSignalCmd.Flags().StringVar(&messageName, "message", "", "The message the signal belongs to")
	addLoggedSignalCmd.Flags().StringVar(&signalName, "signal", "", "The signal to add")
	addLoggedSignalCmd.Flags().StringVar(&unit, "unit", "", "The desired unit for the signal")
	logCmd.AddCommand(addLoggedSignalCmd)

	rootCmd.AddCommand(logCmd)

	logCmd.Flags().StringVar(&logFileFormat, "logFileFormat", "{{dbc}}-{{timestamp}}.{{ext}}", "The format used for generating a log file name (path included). Variables can be injected using the format {{variableName}}. Supported variables: dbc, timestamp, ext. An empty format disables the file.")
	logCmd.Flags().StringVar(&logFormat, "format", "csv", "log file format: csv or json")
	logCmd.Flags().StringVar(&sqlitePath, "sqlite", "", "also store records in this SQLite database")
	logCmd.Flags().StringVar(&capturePath, "capture", "", "also append raw frames to this capture file for later replay")
	logCmd.Flags().BoolVar(&publishMQTT, "mqtt", false, "also publish records to the configured MQTT broker")
	logCmd.Flags().BoolVar(&skipUnknown, "skipUnknown", false, "drop frames that aren't in the DBC file")
	logCmd.Flags().DurationVar(&logDuration, "duration", 0, "stop after this long (default is until interrupted)")
}

var logCmd = &cobra.Command{
	Use:          "log",
	Short:        "Log the configured signals (or every signal) received on the bus.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := loadDatabase()
		if err != nil {
			return err
		}

		var selections []logging.Selection
		if err := viper.UnmarshalKey("logging.signals", &selections); err != nil {
			return errors.Wrap(err, "getting signals configured for logging")
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()
		if logDuration > 0 {
			ctx, cancel = context.WithTimeout(ctx, logDuration)
			defer cancel()
		}

		bus, err := openBus(ctx, cmd)
		if err != nil {
			return errors.Wrap(err, "opening bus")
		}
		defer bus.Close()

		sinks, err := openSinks(ctx, cmd)
		if err != nil {
			return err
		}

		records, err := logging.Session(ctx, bus, db, logging.SessionOptions{
			Signals:     selections,
			SkipUnknown: skipUnknown,
			Logger:      canLogger(cmd),
		})
		if err != nil {
			for _, s := range sinks {
				s.Close()
			}
			return err
		}

		if !quiet {
			fmt.Fprintln(cmd.OutOrStdout(), "logging, interrupt to stop")
		}
		return logging.Run(records, sinks...)
	},
}

func logFileName(format, dbcPath, ext string, now time.Time) string {
	base := dbcPath
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	base = strings.TrimSuffix(base, ".dbc")

	return strings.NewReplacer(
		"{{dbc}}", base,
		"{{timestamp}}", now.Format("20060102_150405"), //yyyyMMdd_hhmmss
		"{{ext}}", ext,
	).Replace(format)
}

func openSinks(ctx context.Context, cmd *cobra.Command) (sinks []logging.Sink, err error) {
	defer func() {
		if err != nil {
			for _, s := range sinks {
				s.Close()
			}
		}
	}()
	stdOut := cmd.OutOrStdout()

	if logFileFormat != "" {
		if logFormat != "csv" && logFormat != "json" {
			return sinks, errors.Errorf("unknown log format '%s'", logFormat)
		}
		name := logFileName(logFileFormat, dbcFile, logFormat, time.Now())
		f, err := os.OpenFile(name, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0644)
		if err != nil {
			return sinks, errors.Wrap(err, "opening file for logging")
		}
		if !quiet {
			fmt.Fprintf(stdOut, "logging to file: %s\n", name)
		}
		if logFormat == "json" {
			sinks = append(sinks, logging.NewJSONSink(f))
		} else {
			sinks = append(sinks, logging.NewCSVSink(f))
		}
	}

	if capturePath != "" {
		c, err := logging.CreateCapture(capturePath)
		if err != nil {
			return sinks, err
		}
		if !quiet {
			fmt.Fprintf(stdOut, "capturing session %s to %s\n", c.Session(), capturePath)
		}
		sinks = append(sinks, c)
		if sqlitePath != "" {
			s, err := logging.NewSQLiteSink(sqlitePath, c.Session())
			if err != nil {
				return sinks, err
			}
			sinks = append(sinks, s)
		}
	} else if sqlitePath != "" {
		s, err := logging.NewSQLiteSink(sqlitePath, time.Now().Format(time.RFC3339))
		if err != nil {
			return sinks, err
		}
		sinks = append(sinks, s)
	}

	if publishMQTT {
		var cfg logging.MQTTConfig
		if err := viper.UnmarshalKey("mqtt", &cfg); err != nil {
			return sinks, errors.Wrap(err, "getting mqtt settings")
		}
		if cfg.Broker == "" {
			return sinks, errors.New("the mqtt.broker setting is required for publishing")
		}
		if cfg.Topic == "" {
			cfg.Topic = "can"
		}
		m, err := logging.DialMQTT(ctx, cfg, canLogger(cmd))
		if err != nil {
			return sinks, err
		}
		sinks = append(sinks, m)
	}

	if len(sinks) == 0 {
		return nil, errors.New("nothing to log to")
	}
	return sinks, nil
}

var messageName string
var signalName string
var unit string

var addLoggedSignalCmd = &cobra.Command{
	Use:   "add_signal",
	Short: "Adds a signal to the logging config",
	RunE: func(cmd *cobra.Command, args []string) error {
		if messageName == "" || signalName == "" {
			return errors.New("both message and signal must be set")
		}

		db, err := loadDatabase()
		if err != nil {
			return err
		}

		var selections []logging.Selection
		if err := viper.UnmarshalKey("logging.signals", &selections); err != nil {
			return errors.Wrap(err, "getting signals configured for logging")
		}

		selections, err = addSelection(db, selections, logging.Selection{
			Message: messageName,
			Signal:  signalName,
			Unit:    units.Unit(unit),
		})
		if err != nil {
			return err
		}

		viper.Set("logging.signals", selections)
		return viper.WriteConfig()
	},
}

// addSelection validates sel against db and appends it.
func addSelection(db *dbc.Database, selections []logging.Selection, sel logging.Selection) ([]logging.Selection, error) {
	for _, s := range selections {
		if s.Message == sel.Message && s.Signal == sel.Signal {
			return nil, errors.New("the signal is already configured for logging")
		}
	}

	selections = append(selections, sel)
	if err := logging.ValidateSelections(db, selections); err != nil {
		return nil, err
	}
	return selections, nil
}
