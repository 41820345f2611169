package can

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Frame is a classical CAN 2.0A/2.0B frame.
type Frame struct {
	ID       uint32 // 11-bit (standard) or 29-bit (extended)
	Extended bool
	RTR      bool // remote transmission request
	Len      uint8
	Data     [MaxDataLength]byte
}

const (
	// MaxDataLength is the payload capacity of a classical CAN frame.
	MaxDataLength = 8

	MaxStandardID = 0x7FF
	MaxExtendedID = 0x1FFFFFFF

	// BinaryFrameSize is the size of a frame in the SocketCAN can_frame layout.
	BinaryFrameSize = 16
)

const (
	effFlag = 0x80000000
	rtrFlag = 0x40000000
)

var (
	// ErrInvalidID is returned when a frame's identifier doesn't fit its format.
	ErrInvalidID = errors.New("invalid identifier")

	// ErrInvalidLength is returned when a frame declares more than 8 data bytes.
	ErrInvalidLength = errors.New("invalid data length")
)

// Validate returns an error if the frame can't be put on the bus.
func (f Frame) Validate() error {
	if f.Len > MaxDataLength {
		return errors.Wrapf(ErrInvalidLength, "%d bytes", f.Len)
	}
	limit := uint32(MaxStandardID)
	if f.Extended {
		limit = MaxExtendedID
	}
	if f.ID > limit {
		return errors.Wrapf(ErrInvalidID, "0x%x", f.ID)
	}
	return nil
}

// Payload returns the frame's data bytes.
func (f *Frame) Payload() []byte {
	return f.Data[:f.Len]
}

// MarshalBinary encodes the frame in the SocketCAN can_frame layout:
// a little-endian id word carrying the EFF and RTR flags, the length byte,
// three padding bytes and the 8 data bytes.
func (f Frame) MarshalBinary() ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	id := f.ID
	if f.Extended {
		id |= effFlag
	}
	if f.RTR {
		id |= rtrFlag
	}
	b := make([]byte, BinaryFrameSize)
	binary.LittleEndian.PutUint32(b[0:4], id)
	b[4] = f.Len
	copy(b[8:], f.Data[:])
	return b, nil
}

// UnmarshalBinary decodes a frame from the SocketCAN can_frame layout.
func (f *Frame) UnmarshalBinary(b []byte) error {
	if len(b) < BinaryFrameSize {
		return errors.Errorf("need %d bytes, got %d", BinaryFrameSize, len(b))
	}
	id := binary.LittleEndian.Uint32(b[0:4])
	f.Extended = id&effFlag != 0
	f.RTR = id&rtrFlag != 0
	if f.Extended {
		f.ID = id & MaxExtendedID
	} else {
		f.ID = id & MaxStandardID
	}
	f.Len = b[4]
	copy(f.Data[:], b[8:BinaryFrameSize])
	return f.Validate()
}

// String formats the frame the way candump's compact output does, e.g.
// "123#DEADBEEF", "1F334455#R".
func (f Frame) String() string {
	var sb strings.Builder
	if f.Extended {
		fmt.Fprintf(&sb, "%08X#", f.ID)
	} else {
		fmt.Fprintf(&sb, "%03X#", f.ID)
	}
	if f.RTR {
		sb.WriteByte('R')
		if f.Len > 0 {
			sb.WriteString(strconv.Itoa(int(f.Len)))
		}
		return sb.String()
	}
	sb.WriteString(strings.ToUpper(hex.EncodeToString(f.Payload())))
	return sb.String()
}

// ParseFrame parses the compact candump format produced by Frame.String.
// Identifiers written with more than three hex digits are extended.
func ParseFrame(s string) (Frame, error) {
	var f Frame
	idText, body, ok := strings.Cut(strings.TrimSpace(s), "#")
	if !ok || idText == "" {
		return f, errors.Errorf("frame %q: missing '#'", s)
	}

	id, err := strconv.ParseUint(idText, 16, 32)
	if err != nil {
		return f, errors.Wrapf(err, "frame %q: parsing id", s)
	}
	f.ID = uint32(id)
	f.Extended = len(idText) > 3

	if strings.HasPrefix(body, "R") || strings.HasPrefix(body, "r") {
		f.RTR = true
		if n := body[1:]; n != "" {
			l, err := strconv.ParseUint(n, 10, 8)
			if err != nil {
				return f, errors.Wrapf(err, "frame %q: parsing rtr length", s)
			}
			f.Len = uint8(l)
		}
		return f, f.Validate()
	}

	data, err := hex.DecodeString(strings.ReplaceAll(body, ".", ""))
	if err != nil {
		return f, errors.Wrapf(err, "frame %q: parsing data", s)
	}
	if len(data) > MaxDataLength {
		return f, errors.Wrapf(ErrInvalidLength, "frame %q", s)
	}
	f.Len = uint8(len(data))
	copy(f.Data[:], data)
	return f, f.Validate()
}
