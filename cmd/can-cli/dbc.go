package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/gavinwade12/canLogger/dbc"
)

var exportFormat string
var exportOutput string

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "yaml", "output format: yaml or dbc")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "file to write to (default is stdout)")

	dbcCmd.AddCommand(showCmd)
	dbcCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(dbcCmd)
}

var dbcCmd = &cobra.Command{
	Use:   "dbc",
	Short: "Inspect the configured DBC file",
}

var showCmd = &cobra.Command{
	Use:          "show [message...]",
	Short:        "Show the messages and signals of the DBC file",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := loadDatabase()
		if err != nil {
			return err
		}

		messages := db.Messages
		if len(args) > 0 {
			messages = nil
			for _, name := range args {
				m, err := db.MessageByName(name)
				if err != nil {
					return err
				}
				messages = append(messages, m)
			}
		}

		return describeMessages(cmd.OutOrStdout(), messages)
	},
}

func describeMessages(w io.Writer, messages []*dbc.Message) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, m := range messages {
		id := fmt.Sprintf("%03X", m.CANID())
		if m.IsExtended() {
			id = fmt.Sprintf("%08X", m.CANID())
		}
		fmt.Fprintf(tw, "%s\t%s\t%d bytes\tfrom %s\n", id, m.Name, m.Length, m.Sender)
		for _, s := range m.Signals {
			order := "BE"
			if s.LittleEndian {
				order = "LE"
			}
			fmt.Fprintf(tw, "\t%s\t%d|%d %s %s\t(%g,%g) [%g|%g] %s\n",
				s.Name, s.BitStart, s.BitLength, order, s.Kind,
				s.Factor, s.Offset, s.Min, s.Max, s.Unit)
			for _, vd := range s.ValueDescriptions {
				fmt.Fprintf(tw, "\t\t%d = %s\t\n", vd.Value, vd.Label)
			}
		}
	}
	return tw.Flush()
}

var exportCmd = &cobra.Command{
	Use:          "export",
	Short:        "Export the DBC file as YAML or normalized DBC",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := loadDatabase()
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if exportOutput != "" {
			f, err := os.Create(exportOutput)
			if err != nil {
				return errors.Wrap(err, "creating export file")
			}
			defer f.Close()
			w = f
		}

		return exportDatabase(w, db, exportFormat)
	},
}

func exportDatabase(w io.Writer, db *dbc.Database, format string) error {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		return db.WriteYAML(w)
	case "dbc":
		return db.WriteDBC(w)
	}
	return errors.Errorf("unknown export format '%s'", format)
}
