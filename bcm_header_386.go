//go:build linux && 386

package kcdbus

import (
	"bytes"
	"encoding/binary"
	"time"
)

// bcmTimeval mirrors struct timeval on 386, where C's "long" is 4 bytes.
type bcmTimeval struct {
	Sec  int32
	Usec int32
}

// bcmMsgHead mirrors struct bcm_msg_head (linux/can/bcm.h) on 386. With a
// 4-byte "long" there is no alignment gap before Ival1; the fields end at
// offset 36, and a trailing pad word brings sizeof to 40 so the can_frame
// array that follows starts 8-byte aligned -- matching
// original_source/can4python/constants.py's FORMAT_BCM_HEADER =
// "@3I4l2I0q" evaluated for a 32-bit "long" (the "0q" pads to 8).
type bcmMsgHead struct {
	Opcode  uint32
	Flags   uint32
	Count   uint32
	Ival1   bcmTimeval
	Ival2   bcmTimeval
	CanID   uint32
	Nframes uint32
	_       uint32 // trailing padding to 8-byte alignment
}

const sizeofBcmMsgHead = 40

func newBCMTimeval(d time.Duration) bcmTimeval {
	return bcmTimeval{
		Sec:  int32(d / time.Second),
		Usec: int32((d % time.Second) / time.Microsecond),
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
