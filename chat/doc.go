// Package chat defines the inbound message model and the frame codec.
//
// Upstream delivers events as JSON frames over a persistent connection,
// optionally gzip-compressed. DecodeFrame sniffs the compression, parses the
// envelope and maps the "type" discriminator onto a closed FrameType enum.
// Unknown types decode successfully as TypeUnknown so callers can ignore them
// without treating them as faults; a malformed frame is the only decode error.
//
// Only danmaku frames carry chat text. Frame.Message converts one into the
// immutable Message value the triage pipeline consumes. Gift, like, enter,
// follow, share and room_info frames carry engagement/room metadata and are
// handled entirely inside the connection layer.
package chat
