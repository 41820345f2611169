// Package codec packs typed signal values into CAN frame payloads and
// unpacks them again, following the layout a dbc.Message describes.
//
// Pack, Unpack and the bit-copy primitives don't mutate the schema, so one
// parsed dbc.Database can serve any number of goroutines.
package codec
