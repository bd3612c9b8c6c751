package websocket

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collectSink is a Sink that records every event it receives, in order,
// for assertions against a reference run.
type collectSink struct {
	messages []Message
	eof      bool
	err      error
}

func (s *collectSink) FeedData(msg Message) { s.messages = append(s.messages, msg) }
func (s *collectSink) FeedEOF()             { s.eof = true }
func (s *collectSink) SetException(err error) {
	if s.err == nil {
		s.err = err
	}
}

// referenceFrameStream builds a byte stream covering a complete frame, a
// fragmented message split across a data frame and a continuation frame,
// a ping sent with a 16-bit extended length, and a close frame. The reader
// rejects that ping as a fatal protocol error at its header, so every run
// ends there and the close frame is never parsed. Split at arbitrary byte
// offsets, the frames before the ping exercise the mid-header, mid-mask
// and mid-payload suspension points; the extended-length field is never
// parsed.
func referenceFrameStream() []byte {
	var out []byte

	// Frame 1: complete masked text message "hi".
	out = append(out, buildFrame(TextMessage, []byte("hi"), true, false)...)

	// Frame 2+3: fragmented text message "wor"+"ld", unmasked.
	out = append(out, byte(TextMessage), 3, 'w', 'o', 'r')
	out = append(out, byte(continuationFrame)|finalBit, 2, 'l', 'd')

	// Frame 4: ping control frame with a 16-bit length header and a 128-byte
	// payload. A control frame whose length flag exceeds 125 is a fatal
	// protocol error, so each run must report the same error here.
	pingPayload := []byte("pingpingpingpingpingpingpingpingpingpingpingpingpingpingpingpingpingpingpingpingpingpingpingpingpingpingpingpingpingpingpingping")
	out = append(out, byte(PingMessage)|finalBit, payloadLen16, byte(len(pingPayload)>>8), byte(len(pingPayload)))
	out = append(out, pingPayload...)

	// Frame 5: close frame with a status code, masked.
	out = append(out, buildFrame(CloseMessage, FormatCloseMessage(CloseNormalClosure, "bye"), true, false)...)

	return out
}

func runReferenceStream(t *testing.T, chunks [][]byte) *collectSink {
	t.Helper()
	sink := &collectSink{}
	reader := NewFrameReader(sink, 0, false)
	for _, c := range chunks {
		if len(c) == 0 {
			continue
		}
		closed, _ := reader.FeedData(c)
		if closed {
			break
		}
	}
	reader.FeedEOF()
	return sink
}

// splitAt partitions data into chunks at the given (deduplicated, sorted,
// in-range) offsets.
func splitAt(data []byte, offsets []int) [][]byte {
	seen := make(map[int]bool, len(offsets))
	var clean []int
	for _, o := range offsets {
		if o <= 0 || o >= len(data) || seen[o] {
			continue
		}
		seen[o] = true
		clean = append(clean, o)
	}
	sort.Ints(clean)

	var chunks [][]byte
	prev := 0
	for _, o := range clean {
		chunks = append(chunks, data[prev:o])
		prev = o
	}
	chunks = append(chunks, data[prev:])
	return chunks
}

func assertSameMessages(t *testing.T, want, got *collectSink) {
	t.Helper()
	require.Equal(t, len(want.messages), len(got.messages))
	for i := range want.messages {
		assert.Equal(t, want.messages[i].Type, got.messages[i].Type)
		assert.Equal(t, want.messages[i].Text, got.messages[i].Text)
		assert.Equal(t, want.messages[i].Data, got.messages[i].Data)
		assert.Equal(t, want.messages[i].Code, got.messages[i].Code)
		assert.Equal(t, want.messages[i].Reason, got.messages[i].Reason)
	}
	assert.Equal(t, want.eof, got.eof)
	assert.Equal(t, want.err, got.err)
}

// TestChunkBoundaryInvariance is the non-fuzz anchor for the property
// FuzzChunkBoundaryInvariance generalizes: a fixed set of splits chosen to
// land inside the header byte, the 16-bit extended-length field, and the
// mask key, each producing the same assembled messages as a single
// unsplit FeedData call.
func TestChunkBoundaryInvariance(t *testing.T) {
	full := referenceFrameStream()
	reference := runReferenceStream(t, [][]byte{full})
	require.NotEmpty(t, reference.messages)

	splits := [][]int{
		{1},                      // mid-header, before the length byte
		{5},                      // inside the first frame's mask key
		{14, 15},                 // across frame boundary into the fragment
		{20},                     // mid extended-length field
		{25, 40, 60},             // scattered through the ping payload
		{1, 2, 3, 4, 5, 6, 7, 8}, // one byte at a time near the start
	}

	for _, offsets := range splits {
		chunks := splitAt(full, offsets)
		got := runReferenceStream(t, chunks)
		assertSameMessages(t, reference, got)
	}
}

// FuzzChunkBoundaryInvariance drives the same reference stream through
// FeedData split at fuzzer-chosen offsets (spec.md section 8, testable
// property 1) and asserts the assembled message sequence never depends on
// where the stream happened to be chunked.
func FuzzChunkBoundaryInvariance(f *testing.F) {
	f.Add([]byte{1})
	f.Add([]byte{1, 2, 3})
	f.Add([]byte{5, 14, 20, 40})
	f.Add([]byte{0, 0, 0})

	full := referenceFrameStream()

	f.Fuzz(func(t *testing.T, raw []byte) {
		if len(raw) == 0 {
			return
		}

		offsets := make([]int, len(raw))
		for i, b := range raw {
			offsets[i] = int(b) % len(full)
		}

		reference := runReferenceStream(t, [][]byte{full})
		got := runReferenceStream(t, splitAt(full, offsets))
		assertSameMessages(t, reference, got)
	})
}
