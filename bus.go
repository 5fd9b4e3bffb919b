package kcdbus

import (
	"io"
	"sort"
	"sync"
	"time"
)

// Bus binds a Configuration to a Transport, letting callers work in terms
// of signal names instead of raw frames and payload bytes. Grounded on
// original_source/can4python/canbus.py.
type Bus struct {
	cfg       *Configuration
	transport Transport

	mu              sync.Mutex
	lastSentPayload map[uint32]*[8]byte
}

// NewBus returns a Bus serving cfg over transport.
func NewBus(cfg *Configuration, transport Transport) *Bus {
	return &Bus{
		cfg:             cfg,
		transport:       transport,
		lastSentPayload: make(map[uint32]*[8]byte),
	}
}

// Configuration returns the bound Configuration.
func (b *Bus) Configuration() *Configuration { return b.cfg }

// currentPayload returns the frame's last-sent payload, seeding it from
// every signal's DefaultValue on first use. Grounded on canbus.py's _output_frame_storage: a partial
// SendSignals call must not clobber bits belonging to signals it did not
// name.
func (b *Bus) currentPayload(fd *FrameDefinition) *[8]byte {
	if p, ok := b.lastSentPayload[fd.FrameID]; ok {
		return p
	}
	var payload [8]byte
	var acc uint64
	for i := range fd.Signals {
		s := &fd.Signals[i]
		bits, err := s.Encode(s.DefaultValue, false)
		if err != nil {
			continue
		}
		acc |= bits
	}
	payload = uint64ToBytes(acc)
	p := &payload
	b.lastSentPayload[fd.FrameID] = p
	return p
}

// SendSignals encodes each named signal's value into its frame's payload
// (merging with any previously-sent bits for that frame) and transmits one
// Frame per distinct frame touched, in ascending frame-ID order. strict controls whether an
// out-of-range value is rejected (true) or clamped (false), per
// SignalDefinition.Encode.
func (b *Bus) SendSignals(values map[string]float64, strict bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	touched := make(map[uint32]struct{})
	for name, value := range values {
		frameID, s, err := b.cfg.FindSignal(name)
		if err != nil {
			return err
		}
		fd := b.cfg.Frames[frameID]
		payload := b.currentPayload(fd)

		bits, err := s.Encode(value, strict)
		if err != nil {
			return err
		}
		acc := bytesToUint64(*payload) &^ s.bitMaskForSpan()
		acc |= bits
		*payload = uint64ToBytes(acc)
		touched[frameID] = struct{}{}
	}

	ids := make([]uint32, 0, len(touched))
	for frameID := range touched {
		ids = append(ids, frameID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, frameID := range ids {
		fd := b.cfg.Frames[frameID]
		payload := b.currentPayload(fd)
		f := Frame{ID: frameID, Extended: fd.Extended, Len: uint8(fd.DLC), Data: *payload}
		if err := b.transport.SendFrame(f); err != nil {
			return err
		}
	}
	return nil
}

// RecvNextSignals blocks (up to timeout) for the next frame and decodes
// every signal defined on it, returning a name -> physical value map. It
// returns ErrTimeout if no frame arrives in time, and UnknownSignalError
// (wrapped) is never returned here since every signal on a received frame
// is, by construction, in the Configuration.
func (b *Bus) RecvNextSignals(timeout time.Duration) (map[string]float64, error) {
	f, err := b.transport.RecvFrame(timeout)
	if err != nil {
		return nil, err
	}
	fd, ok := b.cfg.Frames[f.ID]
	if !ok {
		return map[string]float64{}, nil
	}
	out := make(map[string]float64, len(fd.Signals))
	for i := range fd.Signals {
		s := &fd.Signals[i]
		v, err := s.Decode(f.Data)
		if err != nil {
			return nil, err
		}
		out[s.Name] = v
	}
	return out, nil
}

// InitReception installs receive filters on the transport for exactly the
// frames this Bus's Configuration expects to consume (FramesForOthers).
// Only meaningful for transports that support filtering, such as
// RawTransport.
func (b *Bus) InitReception() error {
	type filterable interface {
		SetReceiveFilters([]uint32) error
	}
	rf, ok := b.transport.(filterable)
	if !ok {
		return nil
	}
	return rf.SetReceiveFilters(b.cfg.FramesForOthers())
}

// WriteConfiguration writes the bound Configuration to w in KCD format.
func (b *Bus) WriteConfiguration(w io.Writer) error {
	return WriteKCD(w, b.cfg)
}

// Close closes the underlying Transport.
func (b *Bus) Close() error {
	return b.transport.Close()
}
