package websocket

// Message is a completed application message delivered by a FrameReader to
// a Sink. Type is one of TextMessage, BinaryMessage, PingMessage,
// PongMessage, or CloseMessage.
type Message struct {
	Type   int
	Data   []byte
	Text   string
	Code   int
	Reason string
}

// Payload returns the message's application data regardless of whether it
// was delivered as Text or Data: text messages decode into Text at L3, so
// callers that want raw bytes for any message type (e.g. an echo handler)
// can use this instead of branching on Type.
func (m Message) Payload() []byte {
	if m.Type == TextMessage {
		return []byte(m.Text)
	}
	return m.Data
}

// WebSocketError is the single error type raised by a FrameReader. Code is
// the WebSocket close code that should be sent to the peer. Err, when set,
// wraps one of the package's existing Err* sentinels so callers can still
// use errors.Is/errors.As against them.
type WebSocketError struct {
	Code    int
	Message string
	Err     error
}

func (e *WebSocketError) Error() string {
	return e.Message
}

func (e *WebSocketError) Unwrap() error {
	return e.Err
}

func newProtocolError(message string, cause error) *WebSocketError {
	return &WebSocketError{Code: CloseProtocolError, Message: message, Err: cause}
}

func newMessageTooBigError(message string) *WebSocketError {
	return &WebSocketError{Code: CloseMessageTooBig, Message: message, Err: ErrReadLimit}
}

func newInvalidTextError(message string) *WebSocketError {
	return &WebSocketError{Code: CloseInvalidFramePayloadData, Message: message, Err: ErrInvalidUTF8}
}

// allowedCloseCodes are the IANA-registered close codes below 3000 that a
// peer is permitted to send per RFC 6455, section 7.4.1. Codes at or above
// 3000 are user/extension-assigned and pass through unvalidated.
var allowedCloseCodes = map[int]bool{
	CloseNormalClosure:           true,
	CloseGoingAway:               true,
	CloseProtocolError:           true,
	CloseUnsupportedData:         true,
	CloseInvalidFramePayloadData: true,
	ClosePolicyViolation:         true,
	CloseMessageTooBig:           true,
	CloseMandatoryExtension:      true,
	CloseInternalServerErr:       true,
	CloseServiceRestart:          true,
	CloseTryAgainLater:           true,
	1014: true,
	CloseTLSHandshake:            true,
}
