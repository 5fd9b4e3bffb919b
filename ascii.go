package kcdbus

import (
	"fmt"
	"strings"
)

// overviewMarkers returns, for every normal bit position 0..63, one of:
// ' ' (not part of this signal), 'L' (least-significant bit of the
// signal), 'M' (most-significant bit), or 'X' (any other occupied bit).
// Grounded on cansignal.py::_get_overview_string, which builds the same
// kind of 64-position marker string. Here it drives only the descriptive
// ASCII art; FrameDefinition.SignalMask is built from bitMaskForSpan.
func (s *SignalDefinition) overviewMarkers() [64]byte {
	var markers [64]byte
	span := s.bitMaskForSpan()
	for n := range markers {
		markers[n] = ' '
		if span&(uint64(1)<<uint(backwardBitNumber(n))) != 0 {
			markers[n] = 'X'
		}
	}
	lsbNormal := s.StartBit
	msbNormal := s.StartBit + s.NumBits - 1
	if s.ByteOrder == BigEndian {
		msbNormal = normalBitNumber(backwardBitNumber(s.StartBit) + s.NumBits - 1)
	}
	markers[lsbNormal] = 'L'
	markers[msbNormal] = 'M'
	if lsbNormal == msbNormal {
		markers[lsbNormal] = 'M' // single-bit signal: MSB wins the marker
	}
	return markers
}

// OverviewString renders this signal's three-block ASCII descriptor: a
// normal-numbering bit ruler, the marker row (L/M/X per occupied bit), and
// a backward (MSB0/DBC) numbering ruler. Columns run byte 0 (leftmost) to
// byte 7 (rightmost); within a byte, bit 7 (leftmost) to bit 0 (rightmost).
// The format is part of the public interface (SPEC_FULL §6) and must be
// stable for identical inputs.
func (s *SignalDefinition) OverviewString() string {
	markers := s.overviewMarkers()

	var normalRuler, data, backwardRuler strings.Builder
	for byteIdx := 0; byteIdx < 8; byteIdx++ {
		for bitInByte := 7; bitInByte >= 0; bitInByte-- {
			normalBit := 8*byteIdx + bitInByte
			fmt.Fprintf(&normalRuler, "%3d", normalBit)
			fmt.Fprintf(&backwardRuler, "%3d", backwardBitNumber(normalBit))
			fmt.Fprintf(&data, "%3c", markers[normalBit])
		}
	}

	return fmt.Sprintf("Signal %q (start_bit=%d, num_bits=%d, %s, %s):\n"+
		"  normal:   %s\n"+
		"  data:     %s\n"+
		"  backward: %s",
		s.Name, s.StartBit, s.NumBits, s.ByteOrder, s.ValueType,
		normalRuler.String(), data.String(), backwardRuler.String())
}
