package websocket

import (
	"bytes"
	"compress/flate"
	"fmt"
	"io"
	"unicode/utf8"
)

// finalizeDataMessage is the L3 payload finalizer for completed TEXT/BINARY
// messages: optional decompression, UTF-8 validation for text, and
// delivery to the sink.
func (r *FrameReader) finalizeDataMessage(opcode byte, payload []byte, compressed bool) error {
	if compressed {
		decompressed, err := r.decompressPayload(payload)
		if err != nil {
			return err
		}
		payload = decompressed
	}

	switch opcode {
	case TextMessage:
		if !utf8.Valid(payload) {
			return newInvalidTextError("invalid UTF-8 text message")
		}
		r.sink.FeedData(Message{Type: TextMessage, Text: string(payload)})
	case BinaryMessage:
		r.sink.FeedData(Message{Type: BinaryMessage, Data: payload})
	default:
		return newProtocolError("unknown opcode", ErrInvalidOpcode)
	}
	return nil
}

// finalizeControlFrame dispatches a completed control frame. Ping and pong
// are delivered as-is; close carries its own validation.
func (r *FrameReader) finalizeControlFrame(f rawFrame) error {
	switch f.opcode {
	case PingMessage:
		r.sink.FeedData(Message{Type: PingMessage, Data: f.payload})
		return nil
	case PongMessage:
		r.sink.FeedData(Message{Type: PongMessage, Data: f.payload})
		return nil
	case CloseMessage:
		return r.finalizeCloseFrame(f.payload)
	default:
		return newProtocolError("unknown opcode", ErrInvalidOpcode)
	}
}

// finalizeCloseFrame validates and emits a close message per RFC 6455,
// section 5.5.1 and 7.4.1.
func (r *FrameReader) finalizeCloseFrame(payload []byte) error {
	switch {
	case len(payload) == 0:
		r.sink.FeedData(Message{Type: CloseMessage, Code: 0, Reason: ""})
		return nil
	case len(payload) == 1:
		return newProtocolError("invalid close frame payload", ErrInvalidCloseCode)
	default:
		code := int(payload[0])<<8 | int(payload[1])
		if code < 3000 && !allowedCloseCodes[code] {
			return newProtocolError("invalid close code", ErrInvalidCloseCode)
		}
		reason := payload[2:]
		if !utf8.Valid(reason) {
			return newInvalidTextError("invalid UTF-8 close reason")
		}
		r.sink.FeedData(Message{Type: CloseMessage, Code: code, Reason: string(reason)})
		return nil
	}
}

// decompressPayload inflates a permessage-deflate compressed message body
// per RFC 7692, section 7.2.2: the fixed trailer 00 00 FF FF is appended
// before inflation, followed by an empty final stored block so that a body
// ending in a sync flush (a non-final block) still ends the deflate stream.
// The flate reader object is created once and reused for the lifetime of
// the reader, but it is reset with no preset dictionary for every message:
// no dictionary state carries over between messages, so a body that refers
// back to an earlier message's data (peer context takeover) is not supported.
func (r *FrameReader) decompressPayload(payload []byte) ([]byte, error) {
	suffixed := io.MultiReader(bytes.NewReader(payload), suffixReader{}, bytes.NewReader([]byte{0x01, 0x00, 0x00, 0xff, 0xff}))

	if r.decompressor == nil {
		r.decompressor = flate.NewReader(suffixed)
	} else if resetter, ok := r.decompressor.(flate.Resetter); ok {
		if err := resetter.Reset(suffixed, nil); err != nil {
			return nil, newProtocolError("decompression reset failed", err)
		}
	}

	if r.maxMsgSize == 0 {
		out, err := io.ReadAll(r.decompressor)
		if err != nil {
			return nil, newProtocolError("decompression failed", err)
		}
		return out, nil
	}

	limited := &io.LimitedReader{R: r.decompressor, N: int64(r.maxMsgSize)}
	out, err := io.ReadAll(limited)
	if err != nil {
		return nil, newProtocolError("decompression failed", err)
	}
	if uint64(len(out)) >= r.maxMsgSize {
		extra := make([]byte, 1)
		n, _ := r.decompressor.Read(extra)
		left := uint64(0)
		if n > 0 {
			left = 1
		}
		return nil, newMessageTooBigError(fmt.Sprintf("message too big: exceeds %d bytes", r.maxMsgSize+left))
	}

	return out, nil
}
