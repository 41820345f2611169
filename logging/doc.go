// Package logging turns a stream of CAN frames into decoded records and
// hands them to sinks: CSV, JSON lines, SQLite, MQTT and a CBOR capture that
// can later be replayed as a bus.
package logging
