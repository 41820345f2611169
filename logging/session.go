package logging

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/gavinwade12/canLogger/codec"
	"github.com/gavinwade12/canLogger/dbc"
	"github.com/gavinwade12/canLogger/protocols/can"
	"github.com/gavinwade12/canLogger/units"
)

// SignalValue is one decoded signal of a received frame.
type SignalValue struct {
	Signal   *dbc.Signal
	Raw      codec.Value
	Physical float64 // raw*factor+offset, converted to Unit
	Unit     units.Unit
	Label    string // value-enumeration label, if any
}

// Record is a received frame and whatever the database knows about it.
type Record struct {
	Time    time.Time
	Frame   can.Frame
	Message *dbc.Message // nil when the id isn't in the database
	Values  []SignalValue
}

// Selection picks one signal to log and, optionally, the unit to log it in.
type Selection struct {
	Message string     `mapstructure:"message"`
	Signal  string     `mapstructure:"signal"`
	Unit    units.Unit `mapstructure:"unit"`
}

// SessionOptions tune a logging session. The zero value logs every signal of
// every known message and passes unknown frames through.
type SessionOptions struct {
	Signals     []Selection
	SkipUnknown bool
	Logger      can.Logger
	Now         func() time.Time
}

// maxConsecutiveErrors is how many receive errors in a row end a session.
const maxConsecutiveErrors = 3

type selected struct {
	signal *dbc.Signal
	from   units.Unit
	to     units.Unit
}

// Session receives frames from bus and decodes them with db. Records are sent
// on the returned channel, which is closed when ctx is canceled or too many
// consecutive receive errors are encountered. Selections are resolved up
// front so a bad configuration fails before anything is read.
func Session(ctx context.Context, bus can.Bus, db *dbc.Database, opts SessionOptions) (<-chan Record, error) {
	if opts.Logger == nil {
		opts.Logger = can.NopLogger
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	plan, err := resolve(db, opts.Signals)
	if err != nil {
		return nil, err
	}

	results := make(chan Record, 10)
	go processFrames(ctx, results, bus, db, plan, opts)
	return results, nil
}

// ValidateSelections reports the first selection that names an unknown
// signal or asks for a unit conversion that isn't possible.
func ValidateSelections(db *dbc.Database, sels []Selection) error {
	_, err := resolve(db, sels)
	return err
}

func resolve(db *dbc.Database, sels []Selection) (map[*dbc.Message][]selected, error) {
	if len(sels) == 0 {
		return nil, nil
	}
	plan := make(map[*dbc.Message][]selected)
	for _, sel := range sels {
		m, err := db.MessageByName(sel.Message)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving logged signal %s.%s", sel.Message, sel.Signal)
		}
		s, err := m.Signal(sel.Signal)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving logged signal %s.%s", sel.Message, sel.Signal)
		}
		item, err := newSelected(s, sel.Unit)
		if err != nil {
			return nil, err
		}
		plan[m] = append(plan[m], item)
	}
	return plan, nil
}

func newSelected(s *dbc.Signal, to units.Unit) (selected, error) {
	item := selected{signal: s, from: units.Unit(s.Unit), to: units.Unit(s.Unit)}
	if to == "" || to == item.from {
		return item, nil
	}
	from, ok := units.Parse(s.Unit)
	if !ok {
		return item, errors.Errorf("signal %s: unknown unit '%s'", s.Name, s.Unit)
	}
	if _, err := units.Convert(0, from, to); err != nil {
		return item, errors.Wrapf(err, "signal %s: %s to %s", s.Name, from, to)
	}
	item.from, item.to = from, to
	return item, nil
}

func processFrames(ctx context.Context, results chan<- Record, bus can.Bus,
	db *dbc.Database, plan map[*dbc.Message][]selected, opts SessionOptions) {
	defer close(results)

	errCount := 0
	for {
		f, err := bus.Receive(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			opts.Logger.Debug(err.Error())
			errCount++
			if errCount == maxConsecutiveErrors {
				return
			}
			continue
		}
		errCount = 0

		rec, ok := decode(f, db, plan, opts)
		if !ok {
			continue
		}
		select {
		case results <- rec:
		case <-ctx.Done():
			return
		}
	}
}

// decode builds the record for f. ok is false when the frame isn't logged.
func decode(f can.Frame, db *dbc.Database, plan map[*dbc.Message][]selected,
	opts SessionOptions) (rec Record, ok bool) {
	rec = Record{Time: opts.Now(), Frame: f}

	m, err := db.MessageByFrameID(f.ID, f.Extended)
	if err != nil || f.RTR {
		return rec, !opts.SkipUnknown && plan == nil
	}
	rec.Message = m

	items := allSignals(m)
	if plan != nil {
		if items = plan[m]; items == nil {
			return rec, false
		}
	}

	if err := rec.decodeValues(items); err != nil {
		opts.Logger.Debugf("decoding %s: %v", m.Name, err)
		return rec, false
	}
	return rec, true
}

// DecodeFrame decodes every signal of f in its native unit. A frame that
// isn't in db, or is a remote request, yields a record without values.
func DecodeFrame(db *dbc.Database, f can.Frame, t time.Time) (Record, error) {
	rec := Record{Time: t, Frame: f}
	m, err := db.MessageByFrameID(f.ID, f.Extended)
	if err != nil {
		return rec, nil
	}
	rec.Message = m
	if f.RTR {
		return rec, nil
	}
	return rec, rec.decodeValues(allSignals(m))
}

func allSignals(m *dbc.Message) []selected {
	items := make([]selected, len(m.Signals))
	for i, s := range m.Signals {
		items[i] = selected{signal: s, from: units.Unit(s.Unit), to: units.Unit(s.Unit)}
	}
	return items
}

func (rec *Record) decodeValues(items []selected) error {
	m := rec.Message
	values, err := codec.UnpackFrame(m, rec.Frame)
	if err != nil {
		return err
	}

	for _, item := range items {
		raw := values[signalIndex(m, item.signal)]
		sv := SignalValue{
			Signal:   item.signal,
			Raw:      raw,
			Physical: codec.Physical(item.signal, raw),
			Unit:     item.to,
		}
		if item.from != item.to {
			// checked when the session was created
			sv.Physical, _ = units.Convert(sv.Physical, item.from, item.to)
		}
		sv.Label, _ = codec.Label(item.signal, raw)
		rec.Values = append(rec.Values, sv)
	}
	return nil
}

func signalIndex(m *dbc.Message, s *dbc.Signal) int {
	for i, ms := range m.Signals {
		if ms == s {
			return i
		}
	}
	return -1
}
