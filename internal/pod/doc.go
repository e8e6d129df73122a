// Package pod implements the binary parameter codec for the audio server's
// control protocol.
//
// The server exchanges typed values as "pods": little-endian, 8-byte aligned
// blobs with a {size, type} header. This package covers the subset of the
// format the graph engine consumes and produces:
//
//   - Props objects carrying node volume, per-channel volumes and mute state
//     (decode from parameter events, encode for parameter writes)
//   - Profiler objects carrying the server's periodic performance profile
//     (CPU load, xruns, per-driver timing blocks)
//   - the plain-text value formats used by the "settings" metadata object
//     (unsigned integers and rate lists such as "[ 44100 48000 ]")
//
// The full server wire protocol is out of scope; pods arrive and leave as
// opaque byte slices on the connection boundary.
//
// # Decode contract
//
// A single Props event may carry any subset of mute, scalar volume and
// channel volumes. DecodeProps reports only what was present; applying an
// update never resets previously known fields (see PropUpdate).
//
// The profiler "info" property has two observed binary shapes. DecodeProfile
// tries the flat five-field layout first and falls back to the nested layout;
// both are supported, neither is authoritative.
package pod
