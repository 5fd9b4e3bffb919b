package kcdbus

import (
	"sync"
	"time"
)

// Mux fans a single Transport's received frames out to any number of
// subscriber channels, optionally filtered. It runs one background
// goroutine pumping RecvFrame in a loop. Adapted from the teacher's mux.go,
// retargeted from Bus to Transport.
type Mux struct {
	transport Transport

	mu   sync.Mutex
	subs map[chan Frame]FrameFilter

	done chan struct{}
	once sync.Once
}

// NewMux starts fanning out frames received from transport. Call Close to
// stop the background goroutine.
func NewMux(transport Transport) *Mux {
	m := &Mux{
		transport: transport,
		subs:      make(map[chan Frame]FrameFilter),
		done:      make(chan struct{}),
	}
	go m.run()
	return m
}

func (m *Mux) run() {
	for {
		select {
		case <-m.done:
			return
		default:
		}
		f, err := m.transport.RecvFrame(200 * time.Millisecond)
		if err != nil {
			continue
		}
		m.dispatch(f)
	}
}

func (m *Mux) dispatch(f Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ch, filter := range m.subs {
		if filter != nil && !filter(f) {
			continue
		}
		select {
		case ch <- f:
		default:
			// Subscriber is behind; drop rather than block the pump.
		}
	}
}

// Subscribe returns a channel that receives every frame matching filter
// (or every frame, if filter is nil). Buffered to avoid dropping bursts.
func (m *Mux) Subscribe(filter FrameFilter) chan Frame {
	ch := make(chan Frame, 64)
	m.mu.Lock()
	m.subs[ch] = filter
	m.mu.Unlock()
	return ch
}

// Unsubscribe stops delivering to ch and closes it.
func (m *Mux) Unsubscribe(ch chan Frame) {
	m.mu.Lock()
	delete(m.subs, ch)
	m.mu.Unlock()
	close(ch)
}

// Close stops the background pump goroutine. It does not close the
// underlying Transport.
func (m *Mux) Close() {
	m.once.Do(func() { close(m.done) })
}
