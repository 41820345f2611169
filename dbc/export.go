package dbc

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type yamlValue struct {
	Value int64  `yaml:"value"`
	Label string `yaml:"label"`
}

type yamlSignal struct {
	Name         string      `yaml:"name"`
	Multiplex    string      `yaml:"multiplex,omitempty"`
	BitStart     uint        `yaml:"bitStart"`
	BitLength    uint        `yaml:"bitLength"`
	LittleEndian bool        `yaml:"littleEndian"`
	Kind         string      `yaml:"kind"`
	Factor       float64     `yaml:"factor"`
	Offset       float64     `yaml:"offset"`
	Min          float64     `yaml:"min"`
	Max          float64     `yaml:"max"`
	Unit         string      `yaml:"unit,omitempty"`
	Receivers    []string    `yaml:"receivers"`
	Values       []yamlValue `yaml:"values,omitempty"`
	Comment      string      `yaml:"comment,omitempty"`
}

type yamlMessage struct {
	ID       uint32       `yaml:"id"`
	Name     string       `yaml:"name"`
	Length   int          `yaml:"length"`
	Sender   string       `yaml:"sender"`
	Extended bool         `yaml:"extended,omitempty"`
	Comment  string       `yaml:"comment,omitempty"`
	Signals  []yamlSignal `yaml:"signals"`
}

type yamlDatabase struct {
	Version  string        `yaml:"version,omitempty"`
	Nodes    []string      `yaml:"nodes,omitempty"`
	Messages []yamlMessage `yaml:"messages"`
}

// WriteYAML writes a YAML rendering of the database.
func (db *Database) WriteYAML(w io.Writer) error {
	doc := yamlDatabase{Version: db.Version, Nodes: db.Nodes}
	for _, m := range db.Messages {
		ym := yamlMessage{
			ID:       m.ID,
			Name:     m.Name,
			Length:   m.Length,
			Sender:   m.Sender,
			Extended: m.IsExtended(),
			Comment:  m.Comment,
		}
		for _, s := range m.Signals {
			ys := yamlSignal{
				Name:         s.Name,
				Multiplex:    s.Multiplex,
				BitStart:     s.BitStart,
				BitLength:    s.BitLength,
				LittleEndian: s.LittleEndian,
				Kind:         s.Kind.String(),
				Factor:       s.Factor,
				Offset:       s.Offset,
				Min:          s.Min,
				Max:          s.Max,
				Unit:         s.Unit,
				Receivers:    s.Receivers,
				Comment:      s.Comment,
			}
			for _, vd := range s.ValueDescriptions {
				ys.Values = append(ys.Values, yamlValue(vd))
			}
			ym.Signals = append(ym.Signals, ys)
		}
		doc.Messages = append(doc.Messages, ym)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(err, "encoding yaml")
	}
	return enc.Close()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// WriteDBC writes the database back out in DBC text form. Parsing the output
// yields an equivalent Database.
func (db *Database) WriteDBC(w io.Writer) error {
	bw := bufio.NewWriter(w)

	if db.Version != "" {
		fmt.Fprintf(bw, "VERSION \"%s\"\n\n", db.Version)
	}
	fmt.Fprintf(bw, "BU_: %s\n\n", strings.Join(db.Nodes, " "))

	for _, m := range db.Messages {
		fmt.Fprintf(bw, "BO_ %d %s: %d %s\n", m.ID, m.Name, m.Length, m.Sender)
		for _, s := range m.Signals {
			name := s.Name
			if s.Multiplex != "" {
				name += " " + s.Multiplex
			}
			order, sign := '0', '+'
			if s.LittleEndian {
				order = '1'
			}
			if s.Kind == Signed {
				sign = '-'
			}
			fmt.Fprintf(bw, " SG_ %s : %d|%d@%c%c (%s,%s) [%s|%s] \"%s\" %s\n",
				name, s.BitStart, s.BitLength, order, sign,
				formatFloat(s.Factor), formatFloat(s.Offset),
				formatFloat(s.Min), formatFloat(s.Max),
				s.Unit, strings.Join(s.Receivers, ","))
		}
		fmt.Fprintln(bw)
	}

	nodes := make([]string, 0, len(db.NodeComments))
	for node := range db.NodeComments {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)
	for _, node := range nodes {
		fmt.Fprintf(bw, "CM_ BU_ %s \"%s\";\n", node, db.NodeComments[node])
	}
	for _, m := range db.Messages {
		if m.Comment != "" {
			fmt.Fprintf(bw, "CM_ BO_ %d \"%s\";\n", m.ID, m.Comment)
		}
		for _, s := range m.Signals {
			if s.Comment != "" {
				fmt.Fprintf(bw, "CM_ SG_ %d %s \"%s\";\n", m.ID, s.Name, s.Comment)
			}
		}
	}

	for _, m := range db.Messages {
		for _, s := range m.Signals {
			switch s.Kind {
			case Float32:
				fmt.Fprintf(bw, "SIG_VALTYPE_ %d %s : 1;\n", m.ID, s.Name)
			case Float64:
				fmt.Fprintf(bw, "SIG_VALTYPE_ %d %s : 2;\n", m.ID, s.Name)
			}
		}
	}

	for _, m := range db.Messages {
		for _, s := range m.Signals {
			if len(s.ValueDescriptions) == 0 {
				continue
			}
			fmt.Fprintf(bw, "VAL_ %d %s", m.ID, s.Name)
			for _, vd := range s.ValueDescriptions {
				fmt.Fprintf(bw, " %d \"%s\"", vd.Value, vd.Label)
			}
			fmt.Fprintln(bw, " ;")
		}
	}

	return errors.Wrap(bw.Flush(), "writing dbc")
}
