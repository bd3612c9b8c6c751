package websocket

// processFrame is the L2 message assembler: it classifies a raw frame as
// data or control, reassembles fragments, and enforces the max-message-size
// limit, then hands completed payloads to L3.
func (r *FrameReader) processFrame(f rawFrame) error {
	switch f.opcode {
	case continuationFrame, TextMessage, BinaryMessage:
		return r.processDataFrame(f)
	case CloseMessage, PingMessage, PongMessage:
		return r.finalizeControlFrame(f)
	default:
		return newProtocolError("unknown opcode", ErrInvalidOpcode)
	}
}

func (r *FrameReader) processDataFrame(f rawFrame) error {
	opcode := f.opcode

	if opcode == continuationFrame {
		if !r.hasMessageOpcode {
			return newProtocolError("continuation for non-started message", ErrUnexpectedContinuation)
		}
		opcode = r.messageOpcode
	} else {
		if len(r.partial) > 0 {
			return newProtocolError("expected continuation frame", ErrExpectedContinuation)
		}
		if !f.fin {
			r.messageOpcode = f.opcode
			r.hasMessageOpcode = true
		}
	}

	if !f.fin {
		r.partial = append(r.partial, f.payload...)
		if r.maxMsgSize > 0 && uint64(len(r.partial)) >= r.maxMsgSize {
			return newMessageTooBigError("message too big")
		}
		return nil
	}

	var assembled []byte
	if len(r.partial) > 0 {
		assembled = append(r.partial, f.payload...)
		r.partial = nil
	} else {
		assembled = f.payload
	}
	r.hasMessageOpcode = false

	if r.maxMsgSize > 0 && uint64(len(assembled)) >= r.maxMsgSize {
		return newMessageTooBigError("message too big")
	}

	return r.finalizeDataMessage(opcode, assembled, f.compressed)
}
