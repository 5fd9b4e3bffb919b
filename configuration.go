package kcdbus

import (
	"fmt"
	"sort"
	"strings"
)

// Configuration holds the full set of frame/signal definitions for one CAN
// bus, plus which node identifiers this process enacts ("ego"). It is the
// in-memory model a KCD file parses into and a Bus binds to a Transport.
type Configuration struct {
	Frames     map[uint32]*FrameDefinition
	EgoNodeIDs map[string]struct{}
	BusName    string

	signalIndex map[string]uint32 // signal name -> frame ID
}

// NewConfiguration returns an empty Configuration ready for AddFrame calls.
func NewConfiguration(busName string) *Configuration {
	return &Configuration{
		Frames:      make(map[uint32]*FrameDefinition),
		EgoNodeIDs:  make(map[string]struct{}),
		BusName:     busName,
		signalIndex: make(map[string]uint32),
	}
}

// SetEgoNodeIDs replaces the set of node identifiers this process enacts.
func (c *Configuration) SetEgoNodeIDs(ids []string) {
	c.EgoNodeIDs = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		c.EgoNodeIDs[id] = struct{}{}
	}
}

// AddFrame validates frameDef and adds it to the configuration, enforcing
// that every signal name is unique across the *entire* configuration, not
// just within the frame. This is the hard-error resolution of SPEC_FULL
// §9's open question: the Python original silently lets a later frame's
// signal name shadow an earlier one via dictionary overwrite; this
// implementation rejects the configuration at load/build time instead.
func (c *Configuration) AddFrame(frameDef *FrameDefinition) error {
	if err := frameDef.validate(); err != nil {
		return err
	}
	if c.signalIndex == nil {
		c.signalIndex = make(map[string]uint32)
	}
	for _, s := range frameDef.Signals {
		if existingFrameID, ok := c.signalIndex[s.Name]; ok && existingFrameID != frameDef.FrameID {
			return configErrorf("signal %q already defined in frame 0x%X, cannot add it in frame 0x%X",
				s.Name, existingFrameID, frameDef.FrameID)
		}
	}
	if c.Frames == nil {
		c.Frames = make(map[uint32]*FrameDefinition)
	}
	c.Frames[frameDef.FrameID] = frameDef
	for _, s := range frameDef.Signals {
		c.signalIndex[s.Name] = frameDef.FrameID
	}
	return nil
}

// RemoveFrame deletes a frame definition and its signals from the index.
func (c *Configuration) RemoveFrame(frameID uint32) error {
	f, ok := c.Frames[frameID]
	if !ok {
		return configErrorf("no frame with ID 0x%X", frameID)
	}
	delete(c.Frames, frameID)
	for _, s := range f.Signals {
		delete(c.signalIndex, s.Name)
	}
	return nil
}

// FramesForEgo returns the frame IDs this process produces (outbound).
func (c *Configuration) FramesForEgo() []uint32 {
	var out []uint32
	for id, f := range c.Frames {
		if f.IsOutbound(c.EgoNodeIDs) {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// FramesForOthers returns the frame IDs this process consumes (inbound).
func (c *Configuration) FramesForOthers() []uint32 {
	var out []uint32
	for id, f := range c.Frames {
		if !f.IsOutbound(c.EgoNodeIDs) {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// FindSignal locates the frame ID and definition for a signal name in O(1)
// via the derived index.
func (c *Configuration) FindSignal(name string) (uint32, *SignalDefinition, error) {
	frameID, ok := c.signalIndex[name]
	if !ok {
		return 0, nil, &UnknownSignalError{Name: name}
	}
	f := c.Frames[frameID]
	for i := range f.Signals {
		if f.Signals[i].Name == name {
			return frameID, &f.Signals[i], nil
		}
	}
	return 0, nil, &UnknownSignalError{Name: name}
}

// SetThrottleTimes sets ThrottleTimeMS on the frames named by the map's
// keys. Grounded on configuration.py::set_throttle_times.
func (c *Configuration) SetThrottleTimes(throttles map[uint32]*int) error {
	for frameID, ms := range throttles {
		f, ok := c.Frames[frameID]
		if !ok {
			return configErrorf("no frame with ID 0x%X", frameID)
		}
		f.ThrottleTimeMS = ms
	}
	return nil
}

// SetThrottleTimesFromSignalNames sets ThrottleTimeMS on whichever frame
// owns each named signal. Note: throttling applies to the whole frame, so
// naming two signals on the same frame with different throttle times gives
// an undefined result — as in the Python original.
func (c *Configuration) SetThrottleTimesFromSignalNames(throttles map[string]*int) error {
	byFrame := make(map[uint32]*int, len(throttles))
	names := make([]string, 0, len(throttles))
	for name := range throttles {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		frameID, _, err := c.FindSignal(name)
		if err != nil {
			return err
		}
		byFrame[frameID] = throttles[name]
	}
	return c.SetThrottleTimes(byFrame)
}

// SetReceiveOnChangeOnly marks the listed frames to be delivered only when
// their payload has changed (BCM RX_CHANGED semantics).
func (c *Configuration) SetReceiveOnChangeOnly(frameIDs []uint32) error {
	for _, frameID := range frameIDs {
		f, ok := c.Frames[frameID]
		if !ok {
			return configErrorf("no frame with ID 0x%X", frameID)
		}
		f.ReceiveOnChangeOnly = true
	}
	return nil
}

// SetReceiveOnChangeOnlyFromSignalNames is the signal-name-keyed variant of
// SetReceiveOnChangeOnly.
func (c *Configuration) SetReceiveOnChangeOnlyFromSignalNames(signalNames []string) error {
	seen := make(map[uint32]struct{})
	var ids []uint32
	for _, name := range signalNames {
		frameID, _, err := c.FindSignal(name)
		if err != nil {
			return err
		}
		if _, ok := seen[frameID]; !ok {
			seen[frameID] = struct{}{}
			ids = append(ids, frameID)
		}
	}
	return c.SetReceiveOnChangeOnly(ids)
}

// DescriptiveASCIIArt renders a multi-line overview of the whole
// configuration: bus name, ego nodes, and every frame's descriptor.
func (c *Configuration) DescriptiveASCIIArt() string {
	var sb strings.Builder
	egoNames := make([]string, 0, len(c.EgoNodeIDs))
	for id := range c.EgoNodeIDs {
		egoNames = append(egoNames, id)
	}
	sort.Strings(egoNames)
	fmt.Fprintf(&sb, "CAN configuration. Bus %q, %d frame(s) defined. Enacts node IDs: %s\n",
		c.BusName, len(c.Frames), strings.Join(egoNames, " "))
	sb.WriteString("  Frame definitions:\n")

	ids := make([]uint32, 0, len(c.Frames))
	for id := range c.Frames {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		sb.WriteString("\n    ")
		sb.WriteString(strings.ReplaceAll(c.Frames[id].DescriptiveASCIIArt(), "\n", "\n    "))
	}
	return sb.String()
}
