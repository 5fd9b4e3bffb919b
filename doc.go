// Package kcdbus provides a declarative configuration model for CAN frames
// and signals, a bit-exact signal codec, and two Linux SocketCAN transports
// (RAW and BCM) bound together by a Bus facade.
//
// It includes:
//   - A Frame type mirroring the kernel's struct can_frame wire layout
//   - SignalDefinition/FrameDefinition/Configuration, with a KCD XML reader/writer
//   - RawTransport and BcmTransport, both implementing the Transport interface
//   - A Bus that binds a Configuration to a Transport for signal-level send/recv
//   - A LoopbackTransport for tests and simulations without a real CAN interface
package kcdbus
