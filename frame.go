package kcdbus

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Frame represents a classical CAN (2.0A/2.0B) frame: a standard (11-bit) or
// extended (29-bit) identifier plus 0-8 data bytes. CAN FD, multiplexed
// signals, and error frames are not represented here.
type Frame struct {
	ID       uint32 // 11-bit (standard) or 29-bit (extended)
	Extended bool
	RTR      bool
	Len      uint8 // 0..8
	Data     [8]byte
}

const (
	maxStdID = 0x7FF
	maxExtID = 0x1FFFFFFF

	canEffFlag = 0x80000000
	canRtrFlag = 0x40000000
	canErrFlag = 0x20000000
	canEffMask = 0x1FFFFFFF
	canStdMask = 0x7FF
)

// Validate reports whether the frame's ID and length are within range.
func (f Frame) Validate() error {
	if f.Len > 8 {
		return configErrorf("frame length %d out of range 0..8", f.Len)
	}
	if f.Extended {
		if f.ID > maxExtID {
			return configErrorf("extended frame ID 0x%X exceeds 0x%X", f.ID, maxExtID)
		}
	} else if f.ID > maxStdID {
		return configErrorf("standard frame ID 0x%X exceeds 0x%X", f.ID, maxStdID)
	}
	return nil
}

// MarshalBinary encodes the frame to the Linux SocketCAN "struct can_frame"
// layout (16 bytes): 4-byte can_id (with EFF/RTR flag bits), 1-byte DLC, 3
// pad bytes, 8 data bytes, all little-endian (the kernel's native order on
// every architecture Go targets for CAN).
func (f Frame) MarshalBinary() ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	id := f.ID
	if f.Extended {
		id |= canEffFlag
	}
	if f.RTR {
		id |= canRtrFlag
	}
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], id)
	buf[4] = f.Len
	copy(buf[8:16], f.Data[:])
	return buf, nil
}

// UnmarshalBinary decodes a frame from the 16-byte can_frame layout.
func (f *Frame) UnmarshalBinary(data []byte) error {
	if len(data) < 16 {
		return ioErrorf("unmarshal frame", fmt.Errorf("need 16 bytes, got %d", len(data)))
	}
	id := binary.LittleEndian.Uint32(data[0:4])
	f.Extended = id&canEffFlag != 0
	f.RTR = id&canRtrFlag != 0
	if f.Extended {
		f.ID = id & canEffMask
	} else {
		f.ID = id & canStdMask
	}
	f.Len = data[4]
	copy(f.Data[:], data[8:16])
	return f.Validate()
}

// String renders the frame as "ID [len] byte byte ... [RTR]", matching the
// conventional candump-style one-line representation.
func (f Frame) String() string {
	var sb strings.Builder
	if f.Extended {
		fmt.Fprintf(&sb, "%08X [%d]", f.ID, f.Len)
	} else {
		fmt.Fprintf(&sb, "%X [%d]", f.ID, f.Len)
	}
	if f.RTR {
		sb.WriteString(" RTR")
		return sb.String()
	}
	for i := uint8(0); i < f.Len; i++ {
		fmt.Fprintf(&sb, " %02X", f.Data[i])
	}
	return sb.String()
}
