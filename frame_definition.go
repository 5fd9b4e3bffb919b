package kcdbus

import (
	"fmt"
	"sort"
	"strings"
)

// FrameDefinition describes one CAN frame: its identifier, payload length,
// transmission/reception timing, producing nodes, and the signals packed
// into its payload.
type FrameDefinition struct {
	FrameID         uint32
	Extended        bool
	DLC             int // 1..8
	Name            string
	ProducerNodeIDs map[string]struct{}
	CycleTimeMS     *int // periodic TX interval, if this frame is outbound
	ThrottleTimeMS  *int // minimum RX inter-arrival the caller wants to see
	Signals         []SignalDefinition

	ReceiveOnChangeOnly bool
}

// NewFrameDefinition returns a FrameDefinition with an 8-byte DLC and an
// empty producer set, matching the defaults of canframe_definition.py.
func NewFrameDefinition(frameID uint32, name string) *FrameDefinition {
	return &FrameDefinition{
		FrameID:         frameID,
		DLC:             8,
		Name:            name,
		ProducerNodeIDs: make(map[string]struct{}),
	}
}

func (f *FrameDefinition) validate() error {
	maxID := uint32(maxStdID)
	if f.Extended {
		maxID = maxExtID
	}
	if f.FrameID > maxID {
		return configErrorf("frame %q: ID 0x%X exceeds max 0x%X", f.Name, f.FrameID, maxID)
	}
	if f.DLC < 1 || f.DLC > 8 {
		return configErrorf("frame %q: dlc %d out of range 1..8", f.Name, f.DLC)
	}
	seen := make(map[string]struct{}, len(f.Signals))
	for _, s := range f.Signals {
		if _, dup := seen[s.Name]; dup {
			return configErrorf("frame %q: duplicate signal name %q", f.Name, s.Name)
		}
		seen[s.Name] = struct{}{}
		if err := s.validate(); err != nil {
			return err
		}
		if min := s.MinDLC(); min > f.DLC {
			return configErrorf("frame %q: signal %q needs dlc >= %d, frame has dlc %d", f.Name, s.Name, min, f.DLC)
		}
	}
	return nil
}

// MinDLC returns one plus the highest byte index touched by any signal in
// the frame — the smallest DLC that can carry every signal.
func (f *FrameDefinition) MinDLC() int {
	min := 0
	for _, s := range f.Signals {
		if d := s.MinDLC(); d > min {
			min = d
		}
	}
	return min
}

// SignalMask computes an 8-byte change-detection bitmask: a 1 in a bit
// position indicates some signal occupies that bit. Suitable as the mask
// argument of BcmTransport.SetupChangeReception. Grounded on
// canframe_definition.py::get_signal_mask.
func (f *FrameDefinition) SignalMask() [8]byte {
	var mask uint64
	for i := range f.Signals {
		mask |= f.Signals[i].bitMaskForSpan()
	}
	return uint64ToBytes(mask)
}

// IsOutbound reports whether this frame is produced by one of egoNodeIDs.
// Defaults to inbound (false) when either set is empty. Grounded on
// canframe_definition.py::is_outbound, including that empty-set edge case.
func (f *FrameDefinition) IsOutbound(egoNodeIDs map[string]struct{}) bool {
	if len(f.ProducerNodeIDs) == 0 || len(egoNodeIDs) == 0 {
		return false
	}
	for id := range egoNodeIDs {
		if _, ok := f.ProducerNodeIDs[id]; ok {
			return true
		}
	}
	return false
}

// DescriptiveASCIIArt renders a human-readable multi-line summary of the
// frame and each of its signals' bit layout (SPEC_FULL §6).
func (f *FrameDefinition) DescriptiveASCIIArt() string {
	var sb strings.Builder
	format := "0x%03X"
	if f.Extended {
		format = "0x%08X"
	}
	fmt.Fprintf(&sb, "Frame %q id="+format+" dlc=%d, %d signal(s)\n", f.Name, f.FrameID, f.DLC, len(f.Signals))
	for i := range f.Signals {
		sb.WriteString(f.Signals[i].OverviewString())
		sb.WriteString("\n")
	}
	return sb.String()
}

// sortedProducerIDs returns ProducerNodeIDs in sorted order, for stable
// iteration on write/display paths.
func (f *FrameDefinition) sortedProducerIDs() []string {
	out := make([]string, 0, len(f.ProducerNodeIDs))
	for id := range f.ProducerNodeIDs {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
