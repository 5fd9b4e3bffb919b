//go:build linux

package kcdbus

import (
	"net"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// BCM opcodes (linux/can/bcm.h).
const (
	bcmOpTxSetup  = 1
	bcmOpTxDelete = 2
	bcmOpTxSend   = 4
	bcmOpRxSetup  = 5
	bcmOpRxDelete = 6
	bcmOpRxChgd   = 12
)

// BCM flags, grounded on original_source/can4python/constants.py.
const (
	bcmSetTimer        = 0x0001
	bcmStartTimer      = 0x0002
	bcmTxCountEvt      = 0x0004
	bcmTxAnnounce      = 0x0008
	bcmTxCpCanID       = 0x0010
	bcmRxFilterID      = 0x0020
	bcmRxCheckDLC      = 0x0040
	bcmRxNoAutotimer   = 0x0080
	bcmRxAnnounceResum = 0x0100
	bcmTxResetMultiIdx = 0x0200
	bcmRxRTRFrame      = 0x0400
)

func init() {
	h := newBCMHeader(bcmOpTxSetup, 0, 0, 0, 0, 0, 0)
	if len(h.marshal()) != sizeofBcmMsgHead || sizeofBcmMsgHead%8 != 0 {
		panic("kcdbus: bcm_msg_head marshal size mismatch or not 8-byte aligned")
	}
}

// BcmTransport is a Transport backed by a CAN_BCM SocketCAN socket. It
// additionally exposes the broadcast manager's periodic-transmission and
// on-change-reception primitives, grounded on
// original_source/can4python/caninterface_bcm.py.
type BcmTransport struct {
	mu     sync.Mutex
	fd     int
	closed bool
}

// OpenBcmTransport connects a CAN_BCM socket to ifname. Unlike CAN_RAW, BCM
// sockets are connect()ed rather than bound.
func OpenBcmTransport(ifname string) (*BcmTransport, error) {
	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_DGRAM, unix.CAN_BCM)
	if err != nil {
		return nil, ioErrorf("open bcm socket", err)
	}
	iface, err := net.InterfaceByName(ifname)
	if err != nil {
		unix.Close(fd)
		return nil, ioErrorf("resolve interface "+ifname, err)
	}
	addr := &unix.SockaddrCAN{Ifindex: iface.Index}
	if err := unix.Connect(fd, addr); err != nil {
		unix.Close(fd)
		return nil, ioErrorf("connect bcm socket to "+ifname, err)
	}
	return &BcmTransport{fd: fd}, nil
}

func frameCanID(f Frame) uint32 {
	id := f.ID
	if f.Extended {
		id |= canEffFlag
	}
	if f.RTR {
		id |= canRtrFlag
	}
	return id
}

func (t *BcmTransport) write(buf []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	if _, err := unix.Write(t.fd, buf); err != nil {
		return ioErrorf("write bcm message", err)
	}
	return nil
}

// SetupPeriodicTransmit installs (or replaces) a cyclic transmission of
// frame every period, starting immediately. A zero period makes the
// transmission one-shot via SendFrame semantics instead.
func (t *BcmTransport) SetupPeriodicTransmit(frame Frame, period time.Duration) error {
	if period == 0 {
		return t.SendFrame(frame)
	}
	flags := uint32(bcmSetTimer | bcmStartTimer)
	h := newBCMHeader(bcmOpTxSetup, flags, 0, 0, period, frameCanID(frame), 1)
	body, err := frame.MarshalBinary()
	if err != nil {
		return err
	}
	return t.write(append(h.marshal(), body...))
}

// DeletePeriodicTransmit cancels a cyclic transmission previously set up
// for canID.
func (t *BcmTransport) DeletePeriodicTransmit(canID uint32) error {
	h := newBCMHeader(bcmOpTxDelete, 0, 0, 0, 0, canID, 0)
	return t.write(h.marshal())
}

// SendFrame sends frame once, via BCM's TX_SEND opcode.
func (t *BcmTransport) SendFrame(f Frame) error {
	h := newBCMHeader(bcmOpTxSend, 0, 0, 0, 0, frameCanID(f), 1)
	body, err := f.MarshalBinary()
	if err != nil {
		return err
	}
	return t.write(append(h.marshal(), body...))
}

// SetupChangeReception arms notification-on-change for canID: the kernel
// delivers an RX_CHANGED message whenever the masked bits of an incoming
// frame with this ID differ from the last one seen. mask is typically a
// FrameDefinition.SignalMask() result. A zero mask requests notification on
// every reception (equivalent to RX_FILTER_ID-only filtering).
func (t *BcmTransport) SetupChangeReception(canID uint32, mask [8]byte, throttle time.Duration) error {
	flags := uint32(bcmSetTimer)
	nframes := uint32(0)
	var body []byte
	if mask != ([8]byte{}) {
		maskFrame := Frame{ID: canID, Len: 8, Data: mask}
		b, err := maskFrame.MarshalBinary()
		if err != nil {
			return err
		}
		body = b
		nframes = 1
	} else {
		flags |= bcmRxFilterID
	}
	h := newBCMHeader(bcmOpRxSetup, flags, 0, 0, throttle, canID, nframes)
	return t.write(append(h.marshal(), body...))
}

// DeleteChangeReception cancels a previously armed RX_SETUP for canID.
func (t *BcmTransport) DeleteChangeReception(canID uint32) error {
	h := newBCMHeader(bcmOpRxDelete, 0, 0, 0, 0, canID, 0)
	return t.write(h.marshal())
}

// RecvFrame blocks for the next BCM notification (RX_CHANGED carries
// exactly one trailing can_frame) and returns it as a Frame.
func (t *BcmTransport) RecvFrame(timeout time.Duration) (Frame, error) {
	t.mu.Lock()
	fd := t.fd
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return Frame{}, ErrClosed
	}

	tv := unix.Timeval{}
	if timeout > 0 {
		tv.Sec = int64(timeout / time.Second)
		tv.Usec = int64((timeout % time.Second) / time.Microsecond)
	}
	if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		return Frame{}, ioErrorf("set receive timeout", err)
	}

	buf := make([]byte, sizeofBcmMsgHead+16)
	n, err := unix.Read(fd, buf)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return Frame{}, ErrTimeout
		}
		return Frame{}, ioErrorf("read bcm message", err)
	}
	if n < sizeofBcmMsgHead+16 {
		return Frame{}, ioErrorf("read bcm message", configErrorf("short read: got %d bytes, want %d", n, sizeofBcmMsgHead+16))
	}

	var f Frame
	if err := f.UnmarshalBinary(buf[sizeofBcmMsgHead : sizeofBcmMsgHead+16]); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// Close closes the underlying socket.
func (t *BcmTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	t.closed = true
	return unix.Close(t.fd)
}
