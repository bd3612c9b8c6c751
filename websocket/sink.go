package websocket

// Sink is the downstream consumer of messages produced by a FrameReader.
// The reader is the Sink's only writer; FeedData is never called after
// FeedEOF or SetException.
type Sink interface {
	// FeedData delivers one completed message. It must not block on
	// anything the reader itself depends on.
	FeedData(msg Message)

	// FeedEOF signals that no further messages will arrive.
	FeedEOF()

	// SetException reports a fatal error. It also terminates the stream;
	// no FeedData or FeedEOF call follows.
	SetException(err error)
}

// Event wraps whichever of Message, EOF, or Err a ChannelSink delivered,
// so a single receive channel can carry all three outcomes in order.
type Event struct {
	Message Message
	Err     error
	EOF     bool
}

// ChannelSink is a Sink backed by a buffered channel of Event. Conn drives
// its own internal Sink synchronously from ReadMessage; ChannelSink is for
// callers that want to run a FrameReader directly against a goroutine
// reading off a net.Conn and consume completed messages from a channel.
type ChannelSink struct {
	events chan Event
}

// NewChannelSink returns a ChannelSink whose channel has the given buffer
// capacity. A capacity of 0 yields an unbuffered channel.
func NewChannelSink(capacity int) *ChannelSink {
	return &ChannelSink{events: make(chan Event, capacity)}
}

// Events returns the channel events are delivered on.
func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

func (s *ChannelSink) FeedData(msg Message) {
	s.events <- Event{Message: msg}
}

func (s *ChannelSink) FeedEOF() {
	s.events <- Event{EOF: true}
	close(s.events)
}

func (s *ChannelSink) SetException(err error) {
	s.events <- Event{Err: err}
	close(s.events)
}
