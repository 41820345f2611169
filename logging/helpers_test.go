package logging_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gavinwade12/canLogger/dbc"
	"github.com/gavinwade12/canLogger/logging"
	"github.com/gavinwade12/canLogger/protocols/can"
)

const engineDBC = `VERSION "test"

BU_: ECU Dash

BO_ 256 Engine: 4 ECU
 SG_ Speed : 0|16@1+ (0.5,0) [0|300] "km/h" Dash
 SG_ Mode : 16|8@1+ (1,0) [0|3] "" Dash

BO_ 2147484160 Diag: 1 ECU
 SG_ Code : 0|8@1+ (1,0) [0|255] "" Dash

VAL_ 256 Mode 0 "IDLE" 1 "RUN" ;
`

var (
	testTime = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	// Speed 200 raw (100 km/h), Mode RUN
	engineFrame = can.Frame{ID: 0x100, Len: 4, Data: [8]byte{0xC8, 0x00, 0x01}}
	diagFrame   = can.Frame{ID: 0x200, Extended: true, Len: 1, Data: [8]byte{0x07}}
	strayFrame  = can.Frame{ID: 0x7FF, Len: 2, Data: [8]byte{0xAA, 0xBB}}
)

func testDB(t *testing.T) *dbc.Database {
	t.Helper()
	db, err := dbc.ParseString(engineDBC)
	require.NoError(t, err)
	return db
}

func fixedNow() time.Time { return testTime }

// decodeAll runs a session over a loopback bus, sends frames and collects one
// record per frame.
func decodeAll(t *testing.T, db *dbc.Database, frames ...can.Frame) []logging.Record {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	bus := can.NewLoopbackBus()
	defer bus.Close()
	tx, rx := bus.Open(), bus.Open()

	records, err := logging.Session(ctx, rx, db, logging.SessionOptions{Now: fixedNow})
	require.NoError(t, err)

	for _, f := range frames {
		require.NoError(t, tx.Send(ctx, f))
	}
	var out []logging.Record
	for range frames {
		select {
		case r, ok := <-records:
			require.True(t, ok, "session closed early")
			out = append(out, r)
		case <-ctx.Done():
			t.Fatal("timed out waiting for records")
		}
	}
	return out
}
