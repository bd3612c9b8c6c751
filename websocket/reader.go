package websocket

import "io"

// FrameReader is an incremental, push-driven WebSocket frame reader. It
// consumes arbitrary byte chunks via FeedData and delivers completed
// application messages to a Sink. It performs no I/O itself: the caller
// (typically Conn.ReadMessage) is responsible for reading bytes off the wire
// and calling FeedData/FeedEOF.
//
// A FrameReader is driven from a single goroutine at a time; it holds no
// internal locking.
type FrameReader struct {
	sink Sink

	maxMsgSize      uint64
	compressEnabled bool

	// L1 state.
	parseState     parseState
	tail           []byte
	frameFin       bool
	frameOpcode    byte
	hasMask        bool
	payloadLenFlag byte
	payloadLen     uint64
	payloadNeeded  uint64
	frameMask      [4]byte
	framePayload   []byte

	// L2 state.
	partial          []byte
	messageOpcode    byte
	hasMessageOpcode bool
	compressed       bool
	compressedSet    bool

	// L3 state.
	decompressor io.ReadCloser

	fatal error
}

type parseState int

const (
	stateHeader parseState = iota
	stateLength
	stateMask
	statePayload
)

// NewFrameReader constructs a FrameReader that delivers messages to sink.
// maxMsgSize bounds both assembled and decompressed payload sizes; zero
// disables the check. compressEnabled must match whatever permessage-deflate
// negotiation the handshake performed — it is the only thing that makes
// RSV1 legal on an incoming frame.
func NewFrameReader(sink Sink, maxMsgSize uint64, compressEnabled bool) *FrameReader {
	return &FrameReader{
		sink:            sink,
		maxMsgSize:      maxMsgSize,
		compressEnabled: compressEnabled,
	}
}

// FeedData parses as many complete frames as chunk contains and delivers
// any resulting messages to the sink. It returns closed=true once the
// reader has latched a fatal error (from this call or an earlier one); in
// that case leftover is the chunk that produced (or, for later calls,
// would have produced) the error, unconsumed.
func (r *FrameReader) FeedData(chunk []byte) (closed bool, leftover []byte) {
	if r.fatal != nil {
		return true, chunk
	}

	frames, err := r.parseFrame(chunk)
	if err != nil {
		r.fail(err)
		return true, chunk
	}

	for _, f := range frames {
		if err := r.processFrame(f); err != nil {
			r.fail(err)
			return true, chunk
		}
	}

	return false, nil
}

// FeedEOF propagates end-of-stream to the sink.
func (r *FrameReader) FeedEOF() {
	if r.fatal != nil {
		return
	}
	r.sink.FeedEOF()
}

// Close releases resources held by the reader, namely the decompressor
// shared by all of its messages. It is safe to call more than once.
func (r *FrameReader) Close() error {
	if r.decompressor == nil {
		return nil
	}
	d := r.decompressor
	r.decompressor = nil
	return d.Close()
}

func (r *FrameReader) fail(err error) {
	r.fatal = err
	r.sink.SetException(err)
}

// rawFrame is the L1→L2 handoff: one fully parsed, unmasked frame.
type rawFrame struct {
	fin        bool
	opcode     byte
	payload    []byte
	compressed bool
}

// parseFrame is the L1 state machine. It consumes chunk (prefixed by any
// bytes carried over in r.tail from a previous call), returns every frame
// it could fully assemble, and stashes whatever trailing bytes it could
// not yet use back into r.tail.
func (r *FrameReader) parseFrame(chunk []byte) ([]rawFrame, error) {
	data := chunk
	if len(r.tail) > 0 {
		data = append(r.tail, chunk...)
		r.tail = nil
	}

	var frames []rawFrame
	pos := 0

loop:
	for {
		switch r.parseState {
		case stateHeader:
			if len(data)-pos < 2 {
				break loop
			}
			b0, b1 := data[pos], data[pos+1]
			pos += 2

			fin := b0&finalBit != 0
			rsv1 := b0&rsv1Bit != 0
			rsv2 := b0&rsv2Bit != 0
			rsv3 := b0&rsv3Bit != 0
			opcode := b0 & opcodeMask
			hasMask := b1&maskBit != 0
			lengthFlag := b1 & payloadLenMask

			if rsv2 || rsv3 {
				return nil, newProtocolError("non-zero reserved bits", ErrReservedBits)
			}
			if rsv1 && !r.compressEnabled {
				return nil, newProtocolError("reserved bits set without compression negotiated", ErrReservedBits)
			}
			if opcode >= CloseMessage {
				if !fin {
					return nil, newProtocolError("fragmented control frame", ErrFragmentedControlFrame)
				}
				if lengthFlag > maxControlFramePayloadSize {
					return nil, newProtocolError("control frame payload too big", ErrControlFramePayloadTooBig)
				}
			}

			// Compression continuity: RSV1 is only re-latched at the start
			// of a message (the previous frame was final, or none has been
			// seen yet). Mid-assembly, RSV1 must be zero.
			if r.frameFin || !r.compressedSet {
				r.compressed = rsv1
				r.compressedSet = true
			} else if rsv1 {
				return nil, newProtocolError("reserved bits set", ErrReservedBits)
			}

			r.frameFin = fin
			r.frameOpcode = opcode
			r.hasMask = hasMask
			r.payloadLenFlag = lengthFlag

			if lengthFlag < payloadLen16 {
				r.payloadLen = uint64(lengthFlag)
				r.beginPayload()
			} else {
				r.parseState = stateLength
			}

		case stateLength:
			need := 2
			if r.payloadLenFlag == payloadLen64 {
				need = 8
			}
			if len(data)-pos < need {
				break loop
			}
			if need == 2 {
				r.payloadLen = uint64(data[pos])<<8 | uint64(data[pos+1])
			} else {
				r.payloadLen = 0
				for i := 0; i < 8; i++ {
					r.payloadLen = r.payloadLen<<8 | uint64(data[pos+i])
				}
			}
			pos += need
			r.beginPayload()

		case stateMask:
			if len(data)-pos < 4 {
				break loop
			}
			copy(r.frameMask[:], data[pos:pos+4])
			pos += 4
			r.parseState = statePayload

		case statePayload:
			avail := uint64(len(data) - pos)
			take := avail
			if take > r.payloadNeeded {
				take = r.payloadNeeded
			}
			if take > 0 {
				r.framePayload = append(r.framePayload, data[pos:pos+int(take)]...)
				pos += int(take)
				r.payloadNeeded -= take
			}
			if r.payloadNeeded > 0 {
				break loop
			}

			payload := make([]byte, len(r.framePayload))
			copy(payload, r.framePayload)
			if r.hasMask {
				maskBytes(r.frameMask[:], 0, payload)
			}
			frames = append(frames, rawFrame{
				fin:        r.frameFin,
				opcode:     r.frameOpcode,
				payload:    payload,
				compressed: r.compressed,
			})
			r.framePayload = r.framePayload[:0]
			r.parseState = stateHeader
		}
	}

	if pos < len(data) {
		r.tail = append([]byte(nil), data[pos:]...)
	}
	return frames, nil
}

// beginPayload transitions from a known payload length to the mask or
// payload state and resets the per-frame payload accumulator.
func (r *FrameReader) beginPayload() {
	r.payloadNeeded = r.payloadLen
	r.framePayload = r.framePayload[:0]
	if r.hasMask {
		r.parseState = stateMask
	} else {
		r.parseState = statePayload
	}
}
