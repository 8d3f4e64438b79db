// Package msgs provides the event schema reported by the sensor controller
// and its payload codec.
package msgs

// Every frame on the serial link carries exactly one Event encoded in
// protobuf wire format. Events are small (at most a few tens of bytes),
// well within the firmware message buffer.
//
// Producer: L0 firmware
// Consumer: host
