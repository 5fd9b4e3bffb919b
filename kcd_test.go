package kcdbus

import (
	"bytes"
	"strings"
	"testing"
)

const sampleKCD = `<?xml version="1.0" encoding="UTF-8"?>
<NetworkDefinition xmlns="http://kayak.2codeornot2code.org/1.0">
  <Document/>
  <Bus name="Main bus">
    <Message id="0x007" name="StatusFrame" length="8" interval="100">
      <Producer>
        <NodeRef id="ECU1"/>
      </Producer>
      <Signal name="testsignal1" offset="56"/>
      <Signal name="testsignal2" offset="0" length="16"/>
      <Signal name="testsignal3" offset="24" length="16">
        <Value slope="0.1" intercept="10" unit="km/h" min="0" max="250"/>
      </Signal>
      <Signal name="testsignal4" offset="59" length="4" endianess="big">
        <Value type="signed"/>
      </Signal>
    </Message>
  </Bus>
</NetworkDefinition>
`

func TestReadKCD(t *testing.T) {
	cfg, err := ReadKCD(strings.NewReader(sampleKCD), "")
	if err != nil {
		t.Fatalf("ReadKCD: %v", err)
	}
	if cfg.BusName != "Main bus" {
		t.Fatalf("got bus name %q", cfg.BusName)
	}
	fd, ok := cfg.Frames[7]
	if !ok {
		t.Fatal("expected frame 0x007")
	}
	if fd.Name != "StatusFrame" || fd.DLC != 8 {
		t.Fatalf("got %+v", fd)
	}
	if fd.CycleTimeMS == nil || *fd.CycleTimeMS != 100 {
		t.Fatalf("got cycle time %v", fd.CycleTimeMS)
	}
	if _, ok := fd.ProducerNodeIDs["ECU1"]; !ok {
		t.Fatal("expected producer ECU1")
	}

	_, s3, err := cfg.FindSignal("testsignal3")
	if err != nil {
		t.Fatal(err)
	}
	if s3.ScalingFactor != 0.1 || s3.ValueOffset != 10 || s3.Unit != "km/h" {
		t.Fatalf("got %+v", s3)
	}
	if s3.MinValue == nil || *s3.MinValue != 0 || s3.MaxValue == nil || *s3.MaxValue != 250 {
		t.Fatalf("got min=%v max=%v", s3.MinValue, s3.MaxValue)
	}

	_, s4, err := cfg.FindSignal("testsignal4")
	if err != nil {
		t.Fatal(err)
	}
	if s4.ByteOrder != BigEndian || s4.ValueType != Signed || s4.NumBits != 4 {
		t.Fatalf("got %+v", s4)
	}
}

func TestWriteKCDRoundTrip(t *testing.T) {
	cfg, err := ReadKCD(strings.NewReader(sampleKCD), "")
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WriteKCD(&buf, cfg); err != nil {
		t.Fatalf("WriteKCD: %v", err)
	}

	cfg2, err := ReadKCD(&buf, "")
	if err != nil {
		t.Fatalf("re-read written KCD: %v", err)
	}

	if cfg2.BusName != cfg.BusName {
		t.Fatalf("bus name changed: got %q, want %q", cfg2.BusName, cfg.BusName)
	}
	if len(cfg2.Frames) != len(cfg.Frames) {
		t.Fatalf("frame count changed: got %d, want %d", len(cfg2.Frames), len(cfg.Frames))
	}

	_, s3a, err := cfg.FindSignal("testsignal3")
	if err != nil {
		t.Fatal(err)
	}
	_, s3b, err := cfg2.FindSignal("testsignal3")
	if err != nil {
		t.Fatal(err)
	}
	if s3a.ScalingFactor != s3b.ScalingFactor || s3a.ValueOffset != s3b.ValueOffset {
		t.Fatalf("testsignal3 scaling changed across round trip: %+v vs %+v", s3a, s3b)
	}

	_, s4a, err := cfg.FindSignal("testsignal4")
	if err != nil {
		t.Fatal(err)
	}
	_, s4b, err := cfg2.FindSignal("testsignal4")
	if err != nil {
		t.Fatal(err)
	}
	if s4a.ByteOrder != s4b.ByteOrder || s4a.ValueType != s4b.ValueType {
		t.Fatalf("testsignal4 type changed across round trip: %+v vs %+v", s4a, s4b)
	}
}

func TestReadKCDMissingBus(t *testing.T) {
	const noBus = `<?xml version="1.0"?><NetworkDefinition xmlns="http://kayak.2codeornot2code.org/1.0"></NetworkDefinition>`
	if _, err := ReadKCD(strings.NewReader(noBus), ""); err == nil {
		t.Fatal("expected error for document with no Bus element")
	}
}
