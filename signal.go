package kcdbus

import "math"

// ByteOrder selects how a signal's bits map into the 8-byte CAN payload.
type ByteOrder int

const (
	LittleEndian ByteOrder = iota
	BigEndian
)

func (b ByteOrder) String() string {
	if b == BigEndian {
		return "big"
	}
	return "little"
}

// ValueType selects whether a signal's raw bit pattern is interpreted as an
// unsigned integer or a two's-complement signed integer.
type ValueType int

const (
	Unsigned ValueType = iota
	Signed
)

func (v ValueType) String() string {
	if v == Signed {
		return "signed"
	}
	return "unsigned"
}

// SignalDefinition describes a single named signal within a frame: its bit
// geometry, linear scaling, and optional clamp range.
type SignalDefinition struct {
	Name          string
	StartBit      int // 0..63, normal (sawtooth) bit numbering
	NumBits       int // 1..64
	ByteOrder     ByteOrder
	ValueType     ValueType
	ScalingFactor float64 // nonzero; default 1
	ValueOffset   float64 // default 0
	Unit          string
	MinValue      *float64
	MaxValue      *float64
	DefaultValue  float64
	Description   string
}

// validate checks the bit-geometry invariants from SPEC_FULL §4.1: the bit
// span must fit within the 64-bit payload, num_bits must be in 1..64,
// scaling_factor must be nonzero, and signed signals need at least 2 bits.
func (s *SignalDefinition) validate() error {
	if s.Name == "" {
		return configErrorf("signal name must not be empty")
	}
	if s.NumBits < 1 || s.NumBits > 64 {
		return codecErrorf(s.Name, "num_bits %d outside 1..64", s.NumBits)
	}
	if s.StartBit < 0 || s.StartBit > 63 {
		return codecErrorf(s.Name, "start_bit %d outside 0..63", s.StartBit)
	}
	if s.ByteOrder == BigEndian {
		if stop := backwardBitNumber(s.StartBit) + s.NumBits - 1; stop > 63 {
			return codecErrorf(s.Name, "start_bit %d + num_bits %d overflows 64 under big-endian bit order", s.StartBit, s.NumBits)
		}
	} else if s.StartBit+s.NumBits > 64 {
		return codecErrorf(s.Name, "start_bit %d + num_bits %d overflows 64", s.StartBit, s.NumBits)
	}
	if s.ScalingFactor == 0 {
		return codecErrorf(s.Name, "scaling_factor must not be zero")
	}
	if s.ValueType == Signed && s.NumBits < 2 {
		return codecErrorf(s.Name, "signed signal needs num_bits >= 2, got %d", s.NumBits)
	}
	return nil
}

// scalingFactorOrDefault returns 1 when ScalingFactor is the zero value,
// matching the KCD default (slope defaults to 1, not 0).
func (s *SignalDefinition) scalingFactorOrDefault() float64 {
	if s.ScalingFactor == 0 {
		return 1
	}
	return s.ScalingFactor
}

// MinPossibleValue returns the smallest physical value this signal's bit
// geometry can represent, after scaling and offset.
func (s *SignalDefinition) MinPossibleValue() float64 {
	raw := s.minRaw()
	return float64(raw)*s.scalingFactorOrDefault() + s.ValueOffset
}

// MaxPossibleValue returns the largest physical value this signal's bit
// geometry can represent, after scaling and offset. Unsigned signals route
// through maxRawUnsigned rather than maxRaw: an unsigned num_bits=64 signal's
// maximum raw value (2^64-1) does not fit in an int64.
func (s *SignalDefinition) MaxPossibleValue() float64 {
	if s.ValueType == Unsigned {
		return float64(s.maxRawUnsigned())*s.scalingFactorOrDefault() + s.ValueOffset
	}
	raw := s.maxRaw()
	return float64(raw)*s.scalingFactorOrDefault() + s.ValueOffset
}

func (s *SignalDefinition) minRaw() int64 {
	if s.ValueType == Signed {
		return -(int64(1) << uint(s.NumBits-1))
	}
	return 0
}

// maxRaw returns the largest representable raw value for a signed signal.
// It is not valid for Unsigned signals at num_bits=64: use maxRawUnsigned.
func (s *SignalDefinition) maxRaw() int64 {
	return int64(1)<<uint(s.NumBits-1) - 1
}

// maxRawUnsigned returns the largest representable raw value for an
// unsigned signal. bitMask already special-cases num_bits=64 to avoid a
// shift-by-64 producing 0 instead of all ones.
func (s *SignalDefinition) maxRawUnsigned() uint64 {
	return bitMask(s.NumBits)
}

// MinDLC returns the smallest frame DLC (1..8) whose payload fully contains
// this signal's bits. Big-endian signals are bounded by their start byte
// (the MSB walks toward lower byte indices); little-endian signals are
// bounded by their stop bit. Grounded on cansignal.py::get_minimum_dlc.
func (s *SignalDefinition) MinDLC() int {
	var byteNumber int
	if s.ByteOrder == BigEndian {
		byteNumber = s.StartBit / 8
	} else {
		stopBit := s.StartBit + s.NumBits - 1
		byteNumber = stopBit / 8
	}
	return byteNumber + 1
}

// Encode runs the clamp -> scale -> round -> clamp -> two's-complement ->
// deposit pipeline (SPEC_FULL §4.1) and returns the 64-bit accumulator with
// this signal's bits set at their payload position and all other bits
// zero, ready to be OR-merged into an existing payload.
func (s *SignalDefinition) Encode(physical float64, strict bool) (uint64, error) {
	if err := s.validate(); err != nil {
		return 0, err
	}

	if s.MinValue != nil && physical < *s.MinValue {
		if strict {
			return 0, codecErrorf(s.Name, "physical value %v below min %v", physical, *s.MinValue)
		}
		physical = *s.MinValue
	}
	if s.MaxValue != nil && physical > *s.MaxValue {
		if strict {
			return 0, codecErrorf(s.Name, "physical value %v above max %v", physical, *s.MaxValue)
		}
		physical = *s.MaxValue
	}

	scaled := math.Round((physical - s.ValueOffset) / s.scalingFactorOrDefault())

	var bits uint64
	if s.ValueType == Signed {
		raw := int64(scaled)
		minRaw, maxRaw := s.minRaw(), s.maxRaw()
		if raw < minRaw {
			if strict {
				return 0, codecErrorf(s.Name, "raw value %d below representable minimum %d", raw, minRaw)
			}
			raw = minRaw
		}
		if raw > maxRaw {
			if strict {
				return 0, codecErrorf(s.Name, "raw value %d above representable maximum %d", raw, maxRaw)
			}
			raw = maxRaw
		}
		bits = twosComplement(raw, s.NumBits)
	} else {
		// Unsigned clamping stays in float64/uint64 rather than int64: a
		// num_bits=64 signal's representable maximum is 2^64-1, which an
		// int64 raw value (as used on the Signed path) cannot hold.
		maxRaw := s.maxRawUnsigned()
		switch {
		case scaled < 0:
			if strict {
				return 0, codecErrorf(s.Name, "raw value %v below representable minimum 0", scaled)
			}
			bits = 0
		case scaled > float64(maxRaw):
			if strict {
				return 0, codecErrorf(s.Name, "raw value %v above representable maximum %d", scaled, maxRaw)
			}
			bits = maxRaw
		default:
			bits = uint64(scaled)
		}
	}
	return depositBusValue(bits, s.ByteOrder, s.StartBit, s.NumBits), nil
}

// Decode extracts this signal's bits from payload and converts them to a
// physical value: extract -> sign-extend -> scale -> clamp.
func (s *SignalDefinition) Decode(payload [8]byte) (float64, error) {
	if err := s.validate(); err != nil {
		return 0, err
	}
	bits := extractBusValue(payload, s.ByteOrder, s.StartBit, s.NumBits)

	// Unsigned raw values go straight from uint64 to float64: int64(bits)
	// would turn any unsigned 64-bit value with the top bit set negative.
	var rawValue float64
	if s.ValueType == Signed {
		rawValue = float64(fromTwosComplement(bits, s.NumBits))
	} else {
		rawValue = float64(bits)
	}

	physical := rawValue*s.scalingFactorOrDefault() + s.ValueOffset
	if s.MinValue != nil && physical < *s.MinValue {
		physical = *s.MinValue
	}
	if s.MaxValue != nil && physical > *s.MaxValue {
		physical = *s.MaxValue
	}
	return physical, nil
}

// bitMaskForSpan returns the 64-bit accumulator mask covering this signal's
// occupied bit positions, used to merge an encoded value into an existing
// payload without disturbing other signals' bits.
func (s *SignalDefinition) bitMaskForSpan() uint64 {
	return depositBusValue(bitMask(s.NumBits), s.ByteOrder, s.StartBit, s.NumBits)
}
