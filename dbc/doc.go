// Package dbc parses CAN database (DBC) files into an in-memory schema of
// messages and their signals.
//
// Only the record kinds needed to pack and unpack frames are interpreted:
// BO_, SG_, VAL_, SIG_VALTYPE_, CM_, BU_ and VERSION. Every other line is
// skipped.
package dbc
