package kcdbus

import (
	"testing"
	"time"
)

func TestLoopbackTransportSendRecv(t *testing.T) {
	lt := NewLoopbackTransport()
	defer lt.Close()

	want := Frame{ID: 0x123, Len: 2, Data: [8]byte{1, 2}}
	if err := lt.SendFrame(want); err != nil {
		t.Fatal(err)
	}
	got, err := lt.RecvFrame(time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestLoopbackTransportRecvTimeout(t *testing.T) {
	lt := NewLoopbackTransport()
	defer lt.Close()

	_, err := lt.RecvFrame(20 * time.Millisecond)
	if err != ErrTimeout {
		t.Fatalf("got %v, want ErrTimeout", err)
	}
}

func TestLoopbackTransportClosedReturnsErrClosed(t *testing.T) {
	lt := NewLoopbackTransport()
	if err := lt.Close(); err != nil {
		t.Fatal(err)
	}
	if err := lt.SendFrame(Frame{}); err != ErrClosed {
		t.Fatalf("got %v, want ErrClosed", err)
	}
	if _, err := lt.RecvFrame(time.Second); err != ErrClosed {
		t.Fatalf("got %v, want ErrClosed", err)
	}
	if err := lt.Close(); err != ErrClosed {
		t.Fatalf("double close: got %v, want ErrClosed", err)
	}
}
