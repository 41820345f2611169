package logging_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gavinwade12/canLogger/logging"
	"github.com/gavinwade12/canLogger/protocols/can"
	"github.com/gavinwade12/canLogger/units"
)

func TestSessionDecodesEverySignal(t *testing.T) {
	db := testDB(t)
	recs := decodeAll(t, db, engineFrame, strayFrame, diagFrame)
	require.Len(t, recs, 3)

	engine := recs[0]
	assert.Equal(t, testTime, engine.Time)
	assert.Equal(t, engineFrame, engine.Frame)
	require.NotNil(t, engine.Message)
	assert.Equal(t, "Engine", engine.Message.Name)
	require.Len(t, engine.Values, 2)

	speed := engine.Values[0]
	assert.Equal(t, "Speed", speed.Signal.Name)
	assert.Equal(t, uint64(200), speed.Raw.Uint64())
	assert.Equal(t, 100.0, speed.Physical)
	assert.Equal(t, units.KMH, speed.Unit)
	assert.Empty(t, speed.Label)

	mode := engine.Values[1]
	assert.Equal(t, "Mode", mode.Signal.Name)
	assert.Equal(t, 1.0, mode.Physical)
	assert.Equal(t, "RUN", mode.Label)

	stray := recs[1]
	assert.Nil(t, stray.Message)
	assert.Empty(t, stray.Values)
	assert.Equal(t, strayFrame, stray.Frame)

	diag := recs[2]
	require.NotNil(t, diag.Message)
	assert.Equal(t, "Diag", diag.Message.Name)
	require.Len(t, diag.Values, 1)
	assert.Equal(t, 7.0, diag.Values[0].Physical)
}

func TestSessionSelection(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	bus := can.NewLoopbackBus()
	defer bus.Close()
	tx, rx := bus.Open(), bus.Open()

	records, err := logging.Session(ctx, rx, testDB(t), logging.SessionOptions{
		Signals: []logging.Selection{{Message: "Engine", Signal: "Speed", Unit: units.MPH}},
		Now:     fixedNow,
	})
	require.NoError(t, err)

	// neither of the first two frames carries a selected signal
	require.NoError(t, tx.Send(ctx, strayFrame))
	require.NoError(t, tx.Send(ctx, diagFrame))
	require.NoError(t, tx.Send(ctx, engineFrame))

	r := <-records
	require.NotNil(t, r.Message)
	assert.Equal(t, "Engine", r.Message.Name)
	require.Len(t, r.Values, 1)
	assert.Equal(t, units.MPH, r.Values[0].Unit)
	assert.InDelta(t, 62.137, r.Values[0].Physical, 0.001)
	assert.Equal(t, uint64(200), r.Values[0].Raw.Uint64())
}

func TestSessionSkipUnknown(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	bus := can.NewLoopbackBus()
	defer bus.Close()
	tx, rx := bus.Open(), bus.Open()

	records, err := logging.Session(ctx, rx, testDB(t), logging.SessionOptions{SkipUnknown: true})
	require.NoError(t, err)

	require.NoError(t, tx.Send(ctx, strayFrame))
	require.NoError(t, tx.Send(ctx, engineFrame))

	r := <-records
	require.NotNil(t, r.Message)
	assert.Equal(t, engineFrame, r.Frame)
}

func TestSessionBadSelection(t *testing.T) {
	db := testDB(t)
	bus := can.NewLoopbackBus()
	defer bus.Close()

	tests := []struct {
		name string
		sel  logging.Selection
	}{
		{"unknown message", logging.Selection{Message: "Brakes", Signal: "Speed"}},
		{"unknown signal", logging.Selection{Message: "Engine", Signal: "Torque"}},
		{"signal without a unit", logging.Selection{Message: "Engine", Signal: "Mode", Unit: units.MPH}},
		{"impossible conversion", logging.Selection{Message: "Engine", Signal: "Speed", Unit: units.RPM}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := logging.Session(context.Background(), bus.Open(), db,
				logging.SessionOptions{Signals: []logging.Selection{tt.sel}})
			assert.Error(t, err)
			assert.Nil(t, records)
		})
	}

	_, err := logging.Session(context.Background(), bus.Open(), db, logging.SessionOptions{
		Signals: []logging.Selection{{Message: "Engine", Signal: "Speed", Unit: units.RPM}},
	})
	assert.True(t, errors.Is(err, units.ErrorInvalidConversion))
}

type failingBus struct {
	calls int32
}

func (b *failingBus) Send(ctx context.Context, f can.Frame) error { return nil }

func (b *failingBus) Receive(ctx context.Context) (can.Frame, error) {
	atomic.AddInt32(&b.calls, 1)
	return can.Frame{}, errors.New("no ack")
}

func (b *failingBus) Close() error { return nil }

func TestSessionEndsAfterConsecutiveErrors(t *testing.T) {
	bus := &failingBus{}
	records, err := logging.Session(context.Background(), bus, testDB(t), logging.SessionOptions{})
	require.NoError(t, err)

	select {
	case _, ok := <-records:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("session didn't close")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&bus.calls))
}

func TestSessionEndsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	bus := can.NewLoopbackBus()
	defer bus.Close()

	records, err := logging.Session(ctx, bus.Open(), testDB(t), logging.SessionOptions{})
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-records:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("session didn't close")
	}
}

func TestDecodeFrame(t *testing.T) {
	db := testDB(t)

	r, err := logging.DecodeFrame(db, engineFrame, testTime)
	require.NoError(t, err)
	require.NotNil(t, r.Message)
	require.Len(t, r.Values, 2)
	assert.Equal(t, 100.0, r.Values[0].Physical)

	r, err = logging.DecodeFrame(db, strayFrame, testTime)
	require.NoError(t, err)
	assert.Nil(t, r.Message)

	r, err = logging.DecodeFrame(db, can.Frame{ID: 0x100, RTR: true, Len: 4}, testTime)
	require.NoError(t, err)
	require.NotNil(t, r.Message)
	assert.Empty(t, r.Values)

	// the payload is shorter than the message's signals need
	_, err = logging.DecodeFrame(db, can.Frame{ID: 0x100, Len: 1}, testTime)
	assert.Error(t, err)
}
