package pascal

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPlainToText(t *testing.T) {
	data, err := PlainToText([]byte("PROGRAM HELLO;\nBEGIN\n    WRITELN('HI')\nEND.\n"))
	require.NoError(t, err)
	require.Len(t, data, TEXT_HEADER_SIZE+TEXT_PAGE_SIZE)
	require.True(t, IsTextImage(data))
	require.Equal(t, make([]byte, TEXT_HEADER_SIZE), data[:TEXT_HEADER_SIZE])

	page := data[TEXT_HEADER_SIZE:]
	want := []byte("PROGRAM HELLO;\rBEGIN\r\x10\x24WRITELN('HI')\rEND.\r")
	require.Equal(t, want, page[:len(want)])
	require.Equal(t, make([]byte, TEXT_PAGE_SIZE-len(want)), page[len(want):])
}

func TestTextRoundTrip(t *testing.T) {
	src := "  indented\n\nplain\r\nlast\n"
	data, err := PlainToText([]byte(src))
	require.NoError(t, err)
	require.Equal(t, "  indented\n\nplain\nlast\n", string(TextToPlain(data)))
}

func TestPlainToTextPages(t *testing.T) {
	// 100 lines of 20 bytes plus CR do not fit one page
	line := strings.Repeat("X", 20)
	var b bytes.Buffer
	for i := 0; i < 100; i++ {
		b.WriteString(line + "\n")
	}

	data, err := PlainToText(b.Bytes())
	require.NoError(t, err)
	require.Len(t, data, TEXT_HEADER_SIZE+3*TEXT_PAGE_SIZE)

	// 48 lines per page, then padding
	first := data[TEXT_HEADER_SIZE : TEXT_HEADER_SIZE+TEXT_PAGE_SIZE]
	require.Equal(t, 48, bytes.Count(first, []byte{asciiCR}))
	require.Equal(t, byte(0), first[TEXT_PAGE_SIZE-1])

	require.Equal(t, b.String(), string(TextToPlain(data)))
}

func TestPlainToTextEmpty(t *testing.T) {
	data, err := PlainToText(nil)
	require.NoError(t, err)
	require.Len(t, data, TEXT_HEADER_SIZE+TEXT_PAGE_SIZE)
	require.Empty(t, TextToPlain(data))
}

func TestPlainToTextLongLine(t *testing.T) {
	_, err := PlainToText([]byte(strings.Repeat("A", TEXT_PAGE_SIZE)))
	require.Error(t, err)
}

func TestIsTextImage(t *testing.T) {
	require.False(t, IsTextImage(make([]byte, TEXT_PAGE_SIZE)))
	require.False(t, IsTextImage(make([]byte, 3000)))
	require.True(t, IsTextImage(make([]byte, 3*TEXT_PAGE_SIZE)))
}
