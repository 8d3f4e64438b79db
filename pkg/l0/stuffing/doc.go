// Package stuffing implements the byte stuffing framing used on the
// serial line between the sensor controller and the host.
package stuffing

// A frame on the wire is
//
//	START, e(p0), e(p1), ..., e(pn-1), END
//
// where e(x) is x itself unless x is one of the control bytes
// (START, END, ESCAPE), in which case it is the two bytes ESCAPE, 0xff^x.
//
// There is no length prefix and no checksum. A receiver can join the
// stream at any point: everything before a START is ignored and a START
// always restarts a frame, so a corrupted or truncated frame costs at
// most that frame.
