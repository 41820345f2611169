package dbc

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Record keywords.
const (
	KeywordVersion   = "VERSION"
	KeywordNodes     = "BU_"
	KeywordMessage   = "BO_"
	KeywordSignal    = "SG_"
	KeywordValue     = "VAL_"
	KeywordValueType = "SIG_VALTYPE_"
	KeywordComment   = "CM_"
)

const maxBitLength = 64

var errBitLength = errors.New("must be between 1 and 64")

// ValueDeclaration is a parsed VAL_ record. It only lives until it has been
// merged into the signal it names.
type ValueDeclaration struct {
	ObjectID     uint32
	SignalName   string
	Descriptions []ValueDescription
}

// ValueTypeDeclaration is a parsed SIG_VALTYPE_ record.
type ValueTypeDeclaration struct {
	ObjectID   uint32
	SignalName string
	Kind       ValueKind
}

// CommentDeclaration is a parsed CM_ record. Complete is false while the
// closing quote hasn't been seen yet.
type CommentDeclaration struct {
	Object   string // "", "BU_", "BO_", "SG_" or "EV_"
	ObjectID uint32
	Name     string
	Text     string
	Complete bool
}

// keyword reports whether the first token of s is kw followed by whitespace
// and returns the position right after the token.
func keyword(s, kw string) (int, bool) {
	start := skipSpaces(s, 0)
	end := skipNonSpaces(s, start)
	if s[start:end] != kw || !isSpace(at(s, end)) {
		return 0, false
	}
	return end, true
}

func scanUint(s string, pos int, record string, line int, field string) (uint64, int, error) {
	end := skipUnsigned(s, pos)
	if end == pos {
		return 0, pos, missingField(record, line, field)
	}
	v, err := strconv.ParseUint(s[pos:end], 10, 32)
	if err != nil {
		return 0, pos, badNumeral(record, line, field, err)
	}
	return v, end, nil
}

func scanFloat(s string, pos int, record string, line int, field string) (float64, int, error) {
	end := skipFloat(s, pos)
	if end == pos {
		return 0, pos, missingField(record, line, field)
	}
	v, err := strconv.ParseFloat(s[pos:end], 64)
	if err != nil {
		return 0, pos, badNumeral(record, line, field, err)
	}
	return v, end, nil
}

// scanName reads a name terminated by ':'. The name stops at whichever comes
// first of the colon and the next whitespace. colon is the position of ':'.
func scanName(s string, pos int, record string, line int) (name string, end, colon int, err error) {
	pos = skipSpaces(s, pos)
	colon = skipUntil(s, pos, ':')
	end = skipNonSpaces(s, pos)
	if colon == len(s) {
		return "", 0, 0, unexpected(record, line, ":", s, colon)
	}
	if colon < end {
		end = colon
	}
	if end == pos {
		return "", 0, 0, missingField(record, line, "name")
	}
	return s[pos:end], end, colon, nil
}

// expect checks that s[pos] is c and returns the position after it.
func expect(s string, pos int, c byte, record string, line int) (int, error) {
	if at(s, pos) != c {
		return pos, unexpected(record, line, string(c), s, pos)
	}
	return pos + 1, nil
}

// ParseMessageLine parses a BO_ record. matched is false when the line is
// some other kind of record.
func ParseMessageLine(s string, line int) (m *Message, matched bool, err error) {
	const rec = KeywordMessage
	pos, ok := keyword(s, rec)
	if !ok {
		return nil, false, nil
	}

	m = &Message{}
	id, pos, err := scanUint(s, skipSpaces(s, pos), rec, line, "id")
	if err != nil {
		return nil, true, err
	}
	m.ID = uint32(id)

	name, _, colon, err := scanName(s, pos, rec, line)
	if err != nil {
		return nil, true, err
	}
	m.Name = name

	length, pos, err := scanUint(s, skipSpaces(s, colon+1), rec, line, "length")
	if err != nil {
		return nil, true, err
	}
	m.Length = int(length)

	pos = skipSpaces(s, pos)
	end := skipNonSpaces(s, pos)
	if end == pos {
		return nil, true, missingField(rec, line, "sender")
	}
	m.Sender = s[pos:end]

	return m, true, nil
}

// ParseSignalLine parses an SG_ record. matched is false when the line is
// some other kind of record.
func ParseSignalLine(s string, line int) (sig *Signal, matched bool, err error) {
	const rec = KeywordSignal
	pos, ok := keyword(s, rec)
	if !ok {
		return nil, false, nil
	}

	sig = &Signal{}
	name, end, colon, err := scanName(s, pos, rec, line)
	if err != nil {
		return nil, true, err
	}
	sig.Name = name
	sig.Multiplex = strings.TrimSpace(s[end:colon])

	start, pos, err := scanUint(s, skipSpaces(s, colon+1), rec, line, "bit_start")
	if err != nil {
		return nil, true, err
	}
	sig.BitStart = uint(start)

	if pos, err = expect(s, pos, '|', rec, line); err != nil {
		return nil, true, err
	}
	length, pos, err := scanUint(s, pos, rec, line, "bit_length")
	if err != nil {
		return nil, true, err
	}
	if length == 0 || length > maxBitLength {
		return nil, true, badNumeral(rec, line, "bit_length", errBitLength)
	}
	sig.BitLength = uint(length)

	if pos, err = expect(s, pos, '@', rec, line); err != nil {
		return nil, true, err
	}
	switch at(s, pos) {
	case '1':
		sig.LittleEndian = true
	case '0':
	default:
		return nil, true, unexpected(rec, line, "0|1", s, pos)
	}
	pos++
	switch at(s, pos) {
	case '-':
		sig.Kind = Signed
	case '+':
	default:
		return nil, true, unexpected(rec, line, "+|-", s, pos)
	}
	pos++

	if pos, err = expect(s, skipSpaces(s, pos), '(', rec, line); err != nil {
		return nil, true, err
	}
	if sig.Factor, pos, err = scanFloat(s, pos, rec, line, "factor"); err != nil {
		return nil, true, err
	}
	if pos, err = expect(s, pos, ',', rec, line); err != nil {
		return nil, true, err
	}
	if sig.Offset, pos, err = scanFloat(s, pos, rec, line, "offset"); err != nil {
		return nil, true, err
	}
	if pos, err = expect(s, pos, ')', rec, line); err != nil {
		return nil, true, err
	}

	if pos, err = expect(s, skipSpaces(s, pos), '[', rec, line); err != nil {
		return nil, true, err
	}
	if sig.Min, pos, err = scanFloat(s, pos, rec, line, "min"); err != nil {
		return nil, true, err
	}
	if pos, err = expect(s, pos, '|', rec, line); err != nil {
		return nil, true, err
	}
	if sig.Max, pos, err = scanFloat(s, pos, rec, line, "max"); err != nil {
		return nil, true, err
	}
	if pos, err = expect(s, pos, ']', rec, line); err != nil {
		return nil, true, err
	}

	if pos, err = expect(s, skipSpaces(s, pos), '"', rec, line); err != nil {
		return nil, true, err
	}
	closing := skipUntil(s, pos, '"')
	if closing == len(s) {
		return nil, true, unexpected(rec, line, `"`, s, closing)
	}
	sig.Unit = s[pos:closing]
	pos = closing + 1

	for {
		pos = skipSpaces(s, pos)
		end := skipNonSpaces(s, pos)
		if end == pos {
			break
		}
		for _, r := range strings.Split(s[pos:end], ",") {
			if r != "" {
				sig.Receivers = append(sig.Receivers, r)
			}
		}
		pos = end
	}
	if len(sig.Receivers) == 0 {
		return nil, true, missingField(rec, line, "receivers")
	}

	return sig, true, nil
}

// ParseValueLine parses a VAL_ record. matched is false when the line is some
// other kind of record.
func ParseValueLine(s string, line int) (v *ValueDeclaration, matched bool, err error) {
	const rec = KeywordValue
	pos, ok := keyword(s, rec)
	if !ok {
		return nil, false, nil
	}

	v = &ValueDeclaration{}
	id, pos, err := scanUint(s, skipSpaces(s, pos), rec, line, "object_id")
	if err != nil {
		return nil, true, err
	}
	v.ObjectID = uint32(id)

	pos = skipSpaces(s, pos)
	end := skipNonSpaces(s, pos)
	if end == pos {
		return nil, true, missingField(rec, line, "signal_name")
	}
	v.SignalName = s[pos:end]

	for {
		pos = skipSpaces(s, end)
		numEnd := skipSigned(s, pos)
		if numEnd == pos {
			break
		}
		raw, err := strconv.ParseInt(s[pos:numEnd], 10, 64)
		if err != nil {
			return nil, true, badNumeral(rec, line, "value", err)
		}

		pos = skipSpaces(s, numEnd)
		if at(s, pos) != '"' {
			break
		}
		closing := skipUntil(s, pos+1, '"')
		if closing == len(s) {
			break
		}
		v.Descriptions = append(v.Descriptions, ValueDescription{Value: raw, Label: s[pos+1 : closing]})
		end = closing + 1
	}
	if len(v.Descriptions) == 0 {
		return nil, true, missingField(rec, line, "value_descriptions")
	}

	return v, true, nil
}

// ParseVersionLine parses a VERSION record.
func ParseVersionLine(s string, line int) (version string, matched bool, err error) {
	const rec = KeywordVersion
	pos, ok := keyword(s, rec)
	if !ok {
		return "", false, nil
	}

	if pos, err = expect(s, skipSpaces(s, pos), '"', rec, line); err != nil {
		return "", true, err
	}
	closing := skipUntil(s, pos, '"')
	if closing == len(s) {
		return "", true, unexpected(rec, line, `"`, s, closing)
	}
	return s[pos:closing], true, nil
}

// ParseNodesLine parses a BU_ record. An empty node list is allowed.
func ParseNodesLine(s string, line int) (nodes []string, matched bool, err error) {
	const rec = KeywordNodes
	start := skipSpaces(s, 0)
	tok := s[start:skipNonSpaces(s, start)]
	if !strings.HasPrefix(tok, rec) || (len(tok) > len(rec) && tok[len(rec)] != ':') {
		return nil, false, nil
	}

	pos, err := expect(s, skipSpaces(s, start+len(rec)), ':', rec, line)
	if err != nil {
		return nil, true, err
	}
	for {
		pos = skipSpaces(s, pos)
		end := skipNonSpaces(s, pos)
		if end == pos {
			break
		}
		nodes = append(nodes, s[pos:end])
		pos = end
	}
	return nodes, true, nil
}

// ParseValueTypeLine parses a SIG_VALTYPE_ record.
func ParseValueTypeLine(s string, line int) (v *ValueTypeDeclaration, matched bool, err error) {
	const rec = KeywordValueType
	pos, ok := keyword(s, rec)
	if !ok {
		return nil, false, nil
	}

	v = &ValueTypeDeclaration{}
	id, pos, err := scanUint(s, skipSpaces(s, pos), rec, line, "object_id")
	if err != nil {
		return nil, true, err
	}
	v.ObjectID = uint32(id)

	name, _, colon, err := scanName(s, pos, rec, line)
	if err != nil {
		return nil, true, err
	}
	v.SignalName = name

	pos = skipSpaces(s, colon+1)
	switch at(s, pos) {
	case '0':
		v.Kind = Unsigned
	case '1':
		v.Kind = Float32
	case '2':
		v.Kind = Float64
	default:
		return nil, true, unexpected(rec, line, "0|1|2", s, pos)
	}
	return v, true, nil
}

// ParseCommentLine parses the first line of a CM_ record.
func ParseCommentLine(s string, line int) (c *CommentDeclaration, matched bool, err error) {
	const rec = KeywordComment
	pos, ok := keyword(s, rec)
	if !ok {
		return nil, false, nil
	}

	c = &CommentDeclaration{}
	pos = skipSpaces(s, pos)
	if at(s, pos) != '"' {
		end := skipNonSpaces(s, pos)
		c.Object = s[pos:end]
		pos = skipSpaces(s, end)

		switch c.Object {
		case KeywordMessage, KeywordSignal:
			id, end, err := scanUint(s, pos, rec, line, "object_id")
			if err != nil {
				return nil, true, err
			}
			c.ObjectID = uint32(id)
			pos = skipSpaces(s, end)
		}
		switch c.Object {
		case KeywordSignal, KeywordNodes, "EV_":
			end := skipNonSpaces(s, pos)
			if end == pos {
				return nil, true, missingField(rec, line, "name")
			}
			c.Name = s[pos:end]
			pos = skipSpaces(s, end)
		case KeywordMessage:
		default:
			return nil, true, &MalformedFieldError{Record: rec, Line: line,
				Expected: "BU_|BO_|SG_|EV_", Found: c.Object}
		}
	}

	if pos, err = expect(s, pos, '"', rec, line); err != nil {
		return nil, true, err
	}
	closing := skipUntil(s, pos, '"')
	c.Text = s[pos:closing]
	c.Complete = closing < len(s)
	return c, true, nil
}

// continueComment appends the next raw line of an unterminated comment.
func (c *CommentDeclaration) continueComment(s string) {
	closing := skipUntil(s, 0, '"')
	c.Text += "\n" + s[:closing]
	c.Complete = closing < len(s)
}
