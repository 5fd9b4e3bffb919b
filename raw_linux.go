//go:build linux

package kcdbus

import (
	"net"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// RawTransport is a Transport backed by a CAN_RAW SocketCAN socket. Grounded
// on original_source/can4python/caninterface_raw.py and the unix.SockaddrCAN
// pattern shown in other_examples' socketcan helpers.
type RawTransport struct {
	mu     sync.Mutex
	fd     int
	closed bool
}

// OpenRawTransport binds a CAN_RAW socket to ifname (e.g. "can0" or "vcan0").
func OpenRawTransport(ifname string) (*RawTransport, error) {
	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return nil, ioErrorf("open raw socket", err)
	}
	iface, err := net.InterfaceByName(ifname)
	if err != nil {
		unix.Close(fd)
		return nil, ioErrorf("resolve interface "+ifname, err)
	}
	addr := &unix.SockaddrCAN{Ifindex: iface.Index}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return nil, ioErrorf("bind raw socket to "+ifname, err)
	}
	return &RawTransport{fd: fd}, nil
}

// SendFrame marshals f into the 16-byte can_frame wire format and writes it.
func (t *RawTransport) SendFrame(f Frame) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	buf, err := f.MarshalBinary()
	if err != nil {
		return err
	}
	if _, err := unix.Write(t.fd, buf); err != nil {
		return ioErrorf("write raw frame", err)
	}
	return nil
}

// RecvFrame blocks (up to timeout, or forever if zero) for the next frame
// via SO_RCVTIMEO, then reads and unmarshals one can_frame.
func (t *RawTransport) RecvFrame(timeout time.Duration) (Frame, error) {
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

	buf := make([]byte, 16)
	n, err := unix.Read(fd, buf)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return Frame{}, ErrTimeout
		}
		return Frame{}, ioErrorf("read raw frame", err)
	}
	if n != 16 {
		return Frame{}, ioErrorf("read raw frame", configErrorf("short read: got %d bytes, want 16", n))
	}

	var f Frame
	if err := f.UnmarshalBinary(buf); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// SetReceiveFilters installs a CAN_RAW_FILTER socket option restricting
// reception to the given frame IDs (exact match, full mask). IDs above 0x7FF
// are filtered as extended frames. Per SPEC_FULL §4.4, an empty ids installs
// a zero-length filter list, with which the kernel delivers no frames at
// all — a deliberate departure from the Python original's
// set_receive_filters, which treats an empty list as "do not filter" and
// silently leaves the socket unfiltered.
func (t *RawTransport) SetReceiveFilters(ids []uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}

	var filters []unix.CanFilter
	if len(ids) > 0 {
		filters = make([]unix.CanFilter, len(ids))
		for i, id := range ids {
			filters[i] = unix.CanFilter{Id: id, Mask: unix.CAN_SFF_MASK | unix.CAN_EFF_FLAG | unix.CAN_RTR_FLAG}
			if id > maxStdID {
				filters[i].Id = id | unix.CAN_EFF_FLAG
				filters[i].Mask = unix.CAN_EFF_MASK | unix.CAN_EFF_FLAG | unix.CAN_RTR_FLAG
			}
		}
	}
	if err := unix.SetsockoptCanRawFilter(t.fd, unix.SOL_CAN_RAW, unix.CAN_RAW_FILTER, filters); err != nil {
		return ioErrorf("set raw receive filters", err)
	}
	return nil
}

// Close closes the underlying socket.
func (t *RawTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	t.closed = true
	return unix.Close(t.fd)
}
