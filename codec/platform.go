package codec

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/pkg/errors"

	"github.com/gavinwade12/canLogger/dbc"
)

// Facts about the host, resolved once at init.
var (
	hostByteOrder = detectByteOrder()

	float32IEEE = unsafe.Sizeof(float32(0)) == 4 &&
		math.Float32bits(1) == 0x3f800000 && math.Float32bits(-2.5) == 0xc0200000
	float64IEEE = unsafe.Sizeof(float64(0)) == 8 &&
		math.Float64bits(1) == 0x3ff0000000000000 && math.Float64bits(-2.5) == 0xc004000000000000
)

func detectByteOrder() binary.ByteOrder {
	x := uint16(0x0102)
	b := (*[2]byte)(unsafe.Pointer(&x))
	switch b[0] {
	case 0x02:
		return binary.LittleEndian
	case 0x01:
		return binary.BigEndian
	}
	return nil
}

// HostByteOrder reports the byte order of the host, or nil when it's
// neither big nor little endian.
func HostByteOrder() binary.ByteOrder {
	return hostByteOrder
}

// checkPlatform fails if any signal of m needs a host capability that is
// missing.
func checkPlatform(m *dbc.Message) error {
	if hostByteOrder == nil {
		return errors.Wrap(ErrPlatformCapability, "host byte order is neither big nor little endian")
	}
	for _, s := range m.Signals {
		switch {
		case s.Kind == dbc.Float32 && !float32IEEE:
			return errors.Wrapf(ErrPlatformCapability, "signal %s: float32 is not 4 byte IEEE-754", s.Name)
		case s.Kind == dbc.Float64 && !float64IEEE:
			return errors.Wrapf(ErrPlatformCapability, "signal %s: float64 is not 8 byte IEEE-754", s.Name)
		}
	}
	return nil
}
