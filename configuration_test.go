package kcdbus

import "testing"

func newTestSignal(name string, startBit, numBits int) SignalDefinition {
	return SignalDefinition{Name: name, StartBit: startBit, NumBits: numBits, ByteOrder: LittleEndian, ValueType: Unsigned, ScalingFactor: 1}
}

func TestConfigurationAddFrameRejectsDuplicateSignalAcrossFrames(t *testing.T) {
	cfg := NewConfiguration("testbus")

	f1 := NewFrameDefinition(1, "frame1")
	f1.Signals = []SignalDefinition{newTestSignal("speed", 0, 16)}
	if err := cfg.AddFrame(f1); err != nil {
		t.Fatalf("add frame1: %v", err)
	}

	f2 := NewFrameDefinition(2, "frame2")
	f2.Signals = []SignalDefinition{newTestSignal("speed", 0, 16)}
	if err := cfg.AddFrame(f2); err == nil {
		t.Fatal("expected error when adding a frame that reuses a signal name")
	}
}

func TestConfigurationFindSignal(t *testing.T) {
	cfg := NewConfiguration("testbus")
	f := NewFrameDefinition(1, "frame1")
	f.Signals = []SignalDefinition{newTestSignal("speed", 0, 16)}
	if err := cfg.AddFrame(f); err != nil {
		t.Fatal(err)
	}

	frameID, s, err := cfg.FindSignal("speed")
	if err != nil {
		t.Fatal(err)
	}
	if frameID != 1 || s.Name != "speed" {
		t.Fatalf("got frameID=%d signal=%+v", frameID, s)
	}

	if _, _, err := cfg.FindSignal("missing"); err == nil {
		t.Fatal("expected UnknownSignalError for missing signal")
	}
}

func TestConfigurationFramesForEgoAndOthers(t *testing.T) {
	cfg := NewConfiguration("testbus")
	cfg.SetEgoNodeIDs([]string{"ECU1"})

	outbound := NewFrameDefinition(1, "outbound")
	outbound.ProducerNodeIDs["ECU1"] = struct{}{}
	if err := cfg.AddFrame(outbound); err != nil {
		t.Fatal(err)
	}

	inbound := NewFrameDefinition(2, "inbound")
	inbound.ProducerNodeIDs["ECU2"] = struct{}{}
	if err := cfg.AddFrame(inbound); err != nil {
		t.Fatal(err)
	}

	ego := cfg.FramesForEgo()
	if len(ego) != 1 || ego[0] != 1 {
		t.Fatalf("FramesForEgo: got %v, want [1]", ego)
	}
	others := cfg.FramesForOthers()
	if len(others) != 1 || others[0] != 2 {
		t.Fatalf("FramesForOthers: got %v, want [2]", others)
	}
}

func TestConfigurationSetThrottleTimesFromSignalNames(t *testing.T) {
	cfg := NewConfiguration("testbus")
	f := NewFrameDefinition(1, "frame1")
	f.Signals = []SignalDefinition{newTestSignal("speed", 0, 16)}
	if err := cfg.AddFrame(f); err != nil {
		t.Fatal(err)
	}

	ms := 100
	if err := cfg.SetThrottleTimesFromSignalNames(map[string]*int{"speed": &ms}); err != nil {
		t.Fatal(err)
	}
	if cfg.Frames[1].ThrottleTimeMS == nil || *cfg.Frames[1].ThrottleTimeMS != 100 {
		t.Fatalf("got %v, want 100", cfg.Frames[1].ThrottleTimeMS)
	}
}

func TestConfigurationSetReceiveOnChangeOnly(t *testing.T) {
	cfg := NewConfiguration("testbus")
	f := NewFrameDefinition(1, "frame1")
	if err := cfg.AddFrame(f); err != nil {
		t.Fatal(err)
	}
	if err := cfg.SetReceiveOnChangeOnly([]uint32{1}); err != nil {
		t.Fatal(err)
	}
	if !cfg.Frames[1].ReceiveOnChangeOnly {
		t.Fatal("expected ReceiveOnChangeOnly to be set")
	}
}

func TestConfigurationRemoveFrame(t *testing.T) {
	cfg := NewConfiguration("testbus")
	f := NewFrameDefinition(1, "frame1")
	f.Signals = []SignalDefinition{newTestSignal("speed", 0, 16)}
	if err := cfg.AddFrame(f); err != nil {
		t.Fatal(err)
	}
	if err := cfg.RemoveFrame(1); err != nil {
		t.Fatal(err)
	}
	if _, _, err := cfg.FindSignal("speed"); err == nil {
		t.Fatal("expected signal index to be cleared after RemoveFrame")
	}
	if err := cfg.RemoveFrame(1); err == nil {
		t.Fatal("expected error removing an already-removed frame")
	}
}
