package websocket

import (
	"bytes"
	"compress/flate"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inflate reverses compressData for test assertions, independent of the
// sticky per-connection decompressor FrameReader uses in production.
func inflate(t *testing.T, data []byte) []byte {
	t.Helper()
	suffixed := io.MultiReader(bytes.NewReader(data), suffixReader{})
	fr := flate.NewReader(suffixed)
	defer fr.Close()
	out, err := io.ReadAll(fr)
	require.NoError(t, err)
	return out
}

func TestCompressDecompress(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{
			name:  "Simple text",
			input: []byte("Hello, WebSocket!"),
		},
		{
			name:  "Repeated text",
			input: bytes.Repeat([]byte("hello"), 100),
		},
		{
			name:  "Binary data",
			input: []byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05},
		},
		{
			name:  "Empty",
			input: []byte{},
		},
		{
			name:  "Large text",
			input: bytes.Repeat([]byte("The quick brown fox jumps over the lazy dog. "), 1000),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compressed, err := compressData(tt.input, defaultCompressionLevel)
			require.NoError(t, err)

			decompressed := inflate(t, compressed)
			assert.Equal(t, tt.input, decompressed)
		})
	}
}

func TestCompressDataReducesSize(t *testing.T) {
	input := bytes.Repeat([]byte("compressible data "), 100)

	compressed, err := compressData(input, defaultCompressionLevel)
	require.NoError(t, err)

	assert.Less(t, len(compressed), len(input))
}

func TestCompressionLevels(t *testing.T) {
	input := bytes.Repeat([]byte("test data for compression "), 50)

	for level := minCompressionLevel; level <= maxCompressionLevel; level++ {
		t.Run("level_"+string(rune('0'+level)), func(t *testing.T) {
			compressed, err := compressData(input, level)
			require.NoError(t, err)

			decompressed := inflate(t, compressed)
			assert.Equal(t, input, decompressed)
		})
	}
}

func TestCompressedWriter(t *testing.T) {
	t.Run("Write and get bytes", func(t *testing.T) {
		cw := newCompressedWriter(nil, defaultCompressionLevel)

		input := []byte("Hello, compressed world!")
		_, err := cw.Write(input)
		require.NoError(t, err)

		err = cw.Close()
		require.NoError(t, err)

		result := cw.Bytes()
		assert.NotEmpty(t, result)

		decompressed := inflate(t, result)
		assert.Equal(t, input, decompressed)
	})

	t.Run("Reset clears buffer", func(t *testing.T) {
		cw := newCompressedWriter(nil, defaultCompressionLevel)

		_, _ = cw.Write([]byte("data"))
		_ = cw.Close()

		cw.Reset()
		assert.Empty(t, cw.Bytes())
	})

	t.Run("Multiple writes", func(t *testing.T) {
		cw := newCompressedWriter(nil, defaultCompressionLevel)

		_, err := cw.Write([]byte("Hello, "))
		require.NoError(t, err)
		_, err = cw.Write([]byte("World!"))
		require.NoError(t, err)

		err = cw.Close()
		require.NoError(t, err)

		decompressed := inflate(t, cw.Bytes())
		assert.Equal(t, []byte("Hello, World!"), decompressed)
	})
}

func TestFlateWriterPool(t *testing.T) {
	t.Run("Reuse writer from pool", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			buf := new(bytes.Buffer)
			fw := getFlateWriter(buf, defaultCompressionLevel)
			require.NotNil(t, fw)

			_, err := fw.Write([]byte("test"))
			require.NoError(t, err)
			err = fw.Close()
			require.NoError(t, err)

			putFlateWriter(fw)
		}
	})
}

func TestSuffixReader(t *testing.T) {
	sr := suffixReader{}

	t.Run("Read suffix bytes", func(t *testing.T) {
		buf := make([]byte, 10)
		n, err := sr.Read(buf)
		assert.Equal(t, 4, n)
		assert.Equal(t, io.EOF, err)
		assert.Equal(t, []byte{0x00, 0x00, 0xff, 0xff}, buf[:4])
	})

	t.Run("Buffer too small", func(t *testing.T) {
		buf := make([]byte, 2)
		_, err := sr.Read(buf)
		assert.Equal(t, io.ErrShortBuffer, err)
	})
}

func TestCompressedWriterClose(t *testing.T) {
	t.Run("Close without write", func(t *testing.T) {
		cw := newCompressedWriter(nil, defaultCompressionLevel)
		err := cw.Close()
		require.NoError(t, err)
	})

	t.Run("Close twice", func(t *testing.T) {
		cw := newCompressedWriter(nil, defaultCompressionLevel)
		_, _ = cw.Write([]byte("test"))
		err := cw.Close()
		require.NoError(t, err)

		err = cw.Close()
		require.NoError(t, err)
	})
}

func BenchmarkCompression(b *testing.B) {
	sizes := []struct {
		name string
		data []byte
	}{
		{"Compressible", bytes.Repeat([]byte("compressible data pattern "), 100)},
		{"Random", func() []byte {
			d := make([]byte, 2500)
			for i := range d {
				d[i] = byte((i * 17) % 256)
			}
			return d
		}()},
	}

	for _, size := range sizes {
		b.Run("Compress_"+size.name, func(b *testing.B) {
			b.SetBytes(int64(len(size.data)))

			for b.Loop() {
				_, _ = compressData(size.data, defaultCompressionLevel)
			}
		})

		compressed, _ := compressData(size.data, defaultCompressionLevel)

		b.Run("Decompress_"+size.name, func(b *testing.B) {
			b.SetBytes(int64(len(compressed)))

			for b.Loop() {
				suffixed := io.MultiReader(bytes.NewReader(compressed), suffixReader{})
				fr := flate.NewReader(suffixed)
				_, _ = io.ReadAll(fr)
				fr.Close()
			}
		})
	}
}

func FuzzCompressDecompress(f *testing.F) {
	f.Add([]byte("hello world"))
	f.Add([]byte(""))
	f.Add(bytes.Repeat([]byte("a"), 1000))
	f.Add([]byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05})

	f.Fuzz(func(t *testing.T, data []byte) {
		if len(data) > 100000 {
			data = data[:100000]
		}

		compressed, err := compressData(data, defaultCompressionLevel)
		if err != nil {
			return
		}

		decompressed := inflate(t, compressed)

		if !bytes.Equal(data, decompressed) {
			t.Errorf("data mismatch after compress/decompress cycle")
		}
	})
}
