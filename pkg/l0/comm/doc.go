// Package comm drives the L0 serial link.
package comm

// L0 is the link between the sensor controller firmware and the host.
// Every message travels as one byte stuffed frame (see package stuffing)
// over a peer-to-peer byte channel such as a serial port.
//
// The link is lossless and ordered as far as this package is concerned:
// there is no acknowledgement, retransmission or checksum. A broken frame
// is dropped and counted, and the next START picks up the stream again.
//
// Producer: L0 firmware
// Consumer: host
