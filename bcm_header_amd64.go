//go:build linux && amd64

package kcdbus

import (
	"bytes"
	"encoding/binary"
	"time"
)

// bcmTimeval mirrors struct timeval on amd64, where C's "long" is 8 bytes.
type bcmTimeval struct {
	Sec  int64
	Usec int64
}

// bcmMsgHead mirrors struct bcm_msg_head (linux/can/bcm.h) on amd64. Its
// layout (with the padding word before Ival1 to reach the timeval's 8-byte
// alignment) gives sizeof 56, matching
// original_source/can4python/constants.py's FORMAT_BCM_HEADER = "@3I4l2I0q"
// evaluated for a 64-bit "long".
type bcmMsgHead struct {
	Opcode  uint32
	Flags   uint32
	Count   uint32
	_       uint32 // alignment padding, not transmitted meaningfully
	Ival1   bcmTimeval
	Ival2   bcmTimeval
	CanID   uint32
	Nframes uint32
}

const sizeofBcmMsgHead = 56

func newBCMTimeval(d time.Duration) bcmTimeval {
	return bcmTimeval{
		Sec:  int64(d / time.Second),
		Usec: int64((d % time.Second) / time.Microsecond),
	}
}

func newBCMHeader(opcode, flags, count uint32, ival1, ival2 time.Duration, canID, nframes uint32) bcmMsgHead {
	return bcmMsgHead{
		Opcode:  opcode,
		Flags:   flags,
		Count:   count,
		Ival1:   newBCMTimeval(ival1),
		Ival2:   newBCMTimeval(ival2),
		CanID:   canID,
		Nframes: nframes,
	}
}

func (h bcmMsgHead) marshal() []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, h)
	return buf.Bytes()
}

func unmarshalBCMHeader(b []byte) (bcmMsgHead, error) {
	if len(b) < sizeofBcmMsgHead {
		return bcmMsgHead{}, ioErrorf("decode bcm header", configErrorf("short read: got %d bytes, want %d", len(b), sizeofBcmMsgHead))
	}
	var h bcmMsgHead
	if err := binary.Read(bytes.NewReader(b[:sizeofBcmMsgHead]), binary.LittleEndian, &h); err != nil {
		return bcmMsgHead{}, ioErrorf("decode bcm header", err)
	}
	return h, nil
}
