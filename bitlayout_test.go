package kcdbus

import "testing"

func TestBackwardBitNumberIsInvolution(t *testing.T) {
	for normal := 0; normal < 64; normal++ {
		backward := backwardBitNumber(normal)
		if backward < 0 || backward > 63 {
			t.Fatalf("backwardBitNumber(%d) = %d out of range", normal, backward)
		}
		if got := normalBitNumber(backward); got != normal {
			t.Fatalf("normalBitNumber(backwardBitNumber(%d)) = %d, want %d", normal, got, normal)
		}
	}
}

func TestTwosComplementRoundTrip(t *testing.T) {
	cases := []struct {
		value   int64
		numBits int
	}{
		{0, 2}, {-1, 2}, {1, 2}, {-2, 4}, {7, 4}, {-8, 4},
		{-1, 64}, {1, 64}, {-9223372036854775808, 64},
	}
	for _, c := range cases {
		raw := twosComplement(c.value, c.numBits)
		got := fromTwosComplement(raw, c.numBits)
		if got != c.value {
			t.Fatalf("twosComplement round trip for value=%d numBits=%d: got %d", c.value, c.numBits, got)
		}
	}
}

func TestBitMask(t *testing.T) {
	if bitMask(1) != 0x1 {
		t.Fatalf("bitMask(1) = %#x", bitMask(1))
	}
	if bitMask(8) != 0xFF {
		t.Fatalf("bitMask(8) = %#x", bitMask(8))
	}
	if bitMask(64) != ^uint64(0) {
		t.Fatalf("bitMask(64) = %#x", bitMask(64))
	}
}

func TestExtractDepositLittleEndianRoundTrip(t *testing.T) {
	cases := []struct{ startBit, numBits int }{
		{0, 1}, {7, 1}, {63, 1}, {0, 64}, {7, 16}, {20, 9}, {48, 16},
	}
	for _, c := range cases {
		raw := bitMask(c.numBits) // all-ones pattern, easy to spot-check
		acc := depositBusValue(raw, LittleEndian, c.startBit, c.numBits)
		payload := uint64ToBytes(acc)
		got := extractBusValue(payload, LittleEndian, c.startBit, c.numBits)
		if got != raw {
			t.Fatalf("little-endian round trip startBit=%d numBits=%d: got %#x, want %#x", c.startBit, c.numBits, got, raw)
		}
	}
}

func TestExtractDepositBigEndianRoundTrip(t *testing.T) {
	cases := []struct{ startBit, numBits int }{
		// startBit=56 is the only big-endian geometry that can hold all 64
		// bits: backwardBitNumber(56)==0, so the span runs exactly 0..63.
		// backwardBitNumber(56+k) for k>0 would overflow past bit 63.
		{0, 1}, {7, 1}, {59, 4}, {56, 64}, {31, 9},
	}
	for _, c := range cases {
		raw := bitMask(c.numBits)
		acc := depositBusValue(raw, BigEndian, c.startBit, c.numBits)
		payload := uint64ToBytes(acc)
		got := extractBusValue(payload, BigEndian, c.startBit, c.numBits)
		if got != raw {
			t.Fatalf("big-endian round trip startBit=%d numBits=%d: got %#x, want %#x", c.startBit, c.numBits, got, raw)
		}
	}
}

func TestExtractLittleEndianAllStartBitsSingleBit(t *testing.T) {
	for startBit := 0; startBit < 64; startBit++ {
		acc := depositBusValue(1, LittleEndian, startBit, 1)
		payload := uint64ToBytes(acc)
		got := extractBusValue(payload, LittleEndian, startBit, 1)
		if got != 1 {
			t.Fatalf("single-bit little-endian round trip at startBit=%d: got %d, want 1", startBit, got)
		}
	}
}
