package dbc

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

const maxLineLength = 1024 * 1024

// assembler threads the most recently declared message through a single pass
// over the file.
type assembler struct {
	db      *Database
	current *Message
	pending *CommentDeclaration
	line    int
}

// Parse reads a DBC description and builds its Database. Any malformed or
// out-of-context record aborts the parse; no partial Database is returned.
// Lines that aren't a supported record kind are ignored.
func Parse(r io.Reader) (*Database, error) {
	a := &assembler{db: &Database{}}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	for scanner.Scan() {
		a.line++
		if err := a.parseLine(scanner.Text()); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading dbc")
	}
	if a.pending != nil {
		return nil, unexpected(KeywordComment, a.line, `"`, "", 0)
	}

	return a.db, nil
}

// ParseString parses a DBC description held in memory.
func ParseString(s string) (*Database, error) {
	return Parse(strings.NewReader(s))
}

// ParseFile opens and parses the DBC file at path.
func ParseFile(path string) (*Database, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening dbc file")
	}
	defer f.Close()

	db, err := Parse(f)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	return db, nil
}

func (a *assembler) parseLine(s string) error {
	if a.pending != nil {
		a.pending.continueComment(s)
		if a.pending.Complete {
			c := a.pending
			a.pending = nil
			return a.addComment(c)
		}
		return nil
	}

	m, ok, err := ParseMessageLine(s, a.line)
	if err != nil {
		return err
	}
	if ok {
		a.db.AddMessage(m)
		a.current = m
		return nil
	}

	sig, ok, err := ParseSignalLine(s, a.line)
	if err != nil {
		return err
	}
	if ok {
		if a.current == nil {
			return &OutOfContextError{Record: KeywordSignal, Line: a.line,
				Reason: "signal line precedes any message line"}
		}
		a.current.AddSignal(sig)
		return nil
	}

	val, ok, err := ParseValueLine(s, a.line)
	if err != nil {
		return err
	}
	if ok {
		if a.current == nil {
			return &OutOfContextError{Record: KeywordValue, Line: a.line,
				Reason: "value-enumeration line precedes any message line"}
		}
		target, err := a.signal(KeywordValue, val.ObjectID, val.SignalName)
		if err != nil {
			return err
		}
		target.SetValueDescriptions(val.Descriptions)
		return nil
	}

	return a.parseSupplementary(s)
}

// parseSupplementary handles the record kinds that decorate the schema
// rather than define it.
func (a *assembler) parseSupplementary(s string) error {
	version, ok, err := ParseVersionLine(s, a.line)
	if err != nil {
		return err
	}
	if ok {
		a.db.Version = version
		return nil
	}

	nodes, ok, err := ParseNodesLine(s, a.line)
	if err != nil {
		return err
	}
	if ok {
		a.db.Nodes = append(a.db.Nodes, nodes...)
		return nil
	}

	vt, ok, err := ParseValueTypeLine(s, a.line)
	if err != nil {
		return err
	}
	if ok {
		return a.setValueType(vt)
	}

	c, ok, err := ParseCommentLine(s, a.line)
	if err != nil {
		return err
	}
	if ok {
		if !c.Complete {
			a.pending = c
			return nil
		}
		return a.addComment(c)
	}

	return nil
}

// signal resolves a signal by explicit message id and name.
func (a *assembler) signal(record string, id uint32, name string) (*Signal, error) {
	m, err := a.db.MessageByID(id)
	if err == nil {
		var sig *Signal
		if sig, err = m.Signal(name); err == nil {
			return sig, nil
		}
	}
	return nil, &OutOfContextError{Record: record, Line: a.line,
		Reason: "references an undeclared signal: " + err.Error()}
}

func (a *assembler) setValueType(vt *ValueTypeDeclaration) error {
	sig, err := a.signal(KeywordValueType, vt.ObjectID, vt.SignalName)
	if err != nil {
		return err
	}

	switch vt.Kind {
	case Float32:
		if sig.BitLength != 32 {
			return badNumeral(KeywordValueType, a.line, "bit_length",
				errors.Errorf("%s is %d bits, float32 needs 32", sig.Name, sig.BitLength))
		}
	case Float64:
		if sig.BitLength != 64 {
			return badNumeral(KeywordValueType, a.line, "bit_length",
				errors.Errorf("%s is %d bits, float64 needs 64", sig.Name, sig.BitLength))
		}
	default:
		return nil
	}
	sig.Kind = vt.Kind
	return nil
}

func (a *assembler) addComment(c *CommentDeclaration) error {
	switch c.Object {
	case KeywordMessage:
		m, err := a.db.MessageByID(c.ObjectID)
		if err != nil {
			return &OutOfContextError{Record: KeywordComment, Line: a.line,
				Reason: "references an undeclared message: " + err.Error()}
		}
		m.Comment = c.Text
	case KeywordSignal:
		sig, err := a.signal(KeywordComment, c.ObjectID, c.Name)
		if err != nil {
			return err
		}
		sig.Comment = c.Text
	case KeywordNodes:
		if a.db.NodeComments == nil {
			a.db.NodeComments = make(map[string]string)
		}
		a.db.NodeComments[c.Name] = c.Text
	}
	return nil
}
