package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gavinwade12/canLogger/protocols/can"
)

func init() {
	portsCmd.AddCommand(listPortsCmd)
	portsCmd.AddCommand(selectPortCmd)

	rootCmd.AddCommand(portsCmd)
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "Manage the serial ports SLCAN adapters can be reached on",
}

var listPortsCmd = &cobra.Command{
	Use:   "list",
	Short: "List the available ports on the host",
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := can.AvailablePorts()
		if err != nil {
			return err
		}

		listPorts(cmd.OutOrStdout(), ports, port)
		return nil
	},
}

func listPorts(w io.Writer, ports []can.SerialPort, selected string) {
	for i, p := range ports {
		fmt.Fprintf(w, "[%d]:\tPortName: '%s'\n\tProduct: %s\n\tVID/PID: %s/%s\n\tUSB: %v\n\tSelected: %v\n",
			i, p.PortName, p.Description, p.VID, p.PID, p.IsUSB, p.PortName == selected)
	}
}

var selectPortCmd = &cobra.Command{
	Use:          "set",
	Short:        "Set the port to use in the config file",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := can.AvailablePorts()
		if err != nil {
			return err
		}
		listPorts(cmd.OutOrStdout(), ports, port)
		fmt.Fprint(cmd.OutOrStdout(), "Port (index): ")

		portName, err := readSelection(cmd.InOrStdin(), ports)
		if err != nil {
			return err
		}

		viper.Set(portSettingName, portName)
		viper.Set(busSettingName, busSLCAN)
		fmt.Fprintf(cmd.OutOrStdout(), "Selected '%s'\n", portName)

		return viper.WriteConfig()
	},
}

func readSelection(r io.Reader, ports []can.SerialPort) (string, error) {
	input, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}

	i, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return "", errors.Wrap(err, "parsing input as integer")
	}

	if i < 0 || i >= len(ports) {
		return "", errors.New("invalid selection")
	}
	return ports[i].PortName, nil
}
