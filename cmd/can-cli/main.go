package main

import (
	"context"
	"log"
	"os"
	"path"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/gavinwade12/canLogger/dbc"
	"github.com/gavinwade12/canLogger/protocols/can"
)

const (
	portSettingName      = "port"
	busSettingName       = "bus"
	interfaceSettingName = "interface"
	bitrateSettingName   = "bitrate"
	dbcSettingName       = "dbc"
)

const (
	busSLCAN     = "slcan"
	busSocketCAN = "socketcan"
)

var configFile string
var dbcFile string
var busKind string
var port string
var iface string
var bitrate int
var quiet bool
var verbose bool

func init() {
	cobra.OnInitialize(func() {
		initConfig()
		postInitCommands(rootCmd.Commands())
	})

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is $HOME/.can-cli.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbcFile, dbcSettingName, "", "DBC file describing the bus")
	rootCmd.PersistentFlags().StringVar(&busKind, busSettingName, busSLCAN, "bus adapter: slcan or socketcan")
	rootCmd.PersistentFlags().StringVar(&port, portSettingName, "", "serial port of an SLCAN adapter. Example: /dev/ttyACM0")
	rootCmd.PersistentFlags().StringVar(&iface, interfaceSettingName, "can0", "SocketCAN network interface")
	rootCmd.PersistentFlags().IntVar(&bitrate, bitrateSettingName, 500000, "bus bitrate for SLCAN adapters")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "quiet all log output")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "provide verbose output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

var rootCmd = &cobra.Command{
	Use:           "can-cli",
	Short:         "A CLI for decoding, encoding and logging CAN traffic described by a DBC file.",
	SilenceErrors: true,
}

func initConfig() {
	if configFile != "" {
		viper.SetConfigFile(path.Base(configFile))
		viper.AddConfigPath(path.Dir(configFile))
	} else {
		home, err := homedir.Dir()
		if err != nil {
			log.Fatalf("finding home directory: %v\n", err)
		}

		viper.AddConfigPath(home)
		viper.SetConfigName(".can-cli")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("CAN")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok || os.IsNotExist(err) {
			if err = viper.SafeWriteConfig(); err != nil {
				log.Fatalf("creating config file: %v\n", err)
			}
		} else {
			log.Fatalf("reading config file: %v\n", err)
		}
	}
}

func postInitCommands(commands []*cobra.Command) {
	for _, cmd := range commands {
		presetRequiredFlags(cmd)
		if cmd.HasSubCommands() {
			postInitCommands(cmd.Commands())
		}
	}
}

func presetRequiredFlags(cmd *cobra.Command) {
	viper.BindPFlags(cmd.Flags())
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if viper.IsSet(f.Name) && viper.GetString(f.Name) != "" {
			cmd.Flags().Set(f.Name, viper.GetString(f.Name))
		}
	})
}

func canLogger(cmd *cobra.Command) can.Logger {
	if !verbose {
		return can.NopLogger
	}
	return can.DefaultLogger(cmd.ErrOrStderr())
}

func loadDatabase() (*dbc.Database, error) {
	if dbcFile == "" {
		return nil, errors.New("the dbc setting is required")
	}
	return dbc.ParseFile(dbcFile)
}

// openBus connects to the configured adapter. With --verbose every frame is
// logged as it crosses the bus.
func openBus(ctx context.Context, cmd *cobra.Command) (can.Bus, error) {
	l := canLogger(cmd)

	var bus can.Bus
	switch busKind {
	case busSLCAN:
		if port == "" {
			return nil, errors.New("the port setting is required for an slcan bus")
		}
		b, err := can.OpenSLCAN(port, bitrate, l)
		if err != nil {
			return nil, err
		}
		bus = b
	case busSocketCAN:
		b, err := can.DialSocketCAN(ctx, iface, l)
		if err != nil {
			return nil, err
		}
		bus = b
	default:
		return nil, errors.Errorf("unknown bus '%s'", busKind)
	}

	if verbose {
		bus = can.NewLoggedBus(bus, l, can.LogAll, nil)
	}
	return bus, nil
}
