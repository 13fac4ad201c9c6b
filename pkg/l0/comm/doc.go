// Package comm provides L0 protocol support.
package comm

// L0 protocol is communicated between the actuator firmware and the host
// over a peer-to-peer byte channel (e.g. serial port).
//
// Each command is a single frame starting with a one-byte Order followed by
// fixed-width little-endian fields. There is no length prefix and no
// checksum, so a frame that is only partially written leaves the firmware
// parser in an unknown position. The engine therefore never leaves a frame
// half-sent: a failed write or read drops the channel and the next command
// starts with a fresh open.
//
// Only READ produces a reply (one int16). An optional HELLO greeting can be
// exchanged right after the channel is opened.
//
// Producer: host
// Consumer: actuator firmware
