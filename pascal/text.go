package pascal

import (
	"bytes"
	"fmt"
)

// TEXT files are a 1024 byte editor header followed by 1024 byte pages.
// Lines end in CR and never cross a page; the rest of a page is NUL.
// Leading blanks are stored as DLE followed by 32+count.
const (
	TEXT_PAGE_SIZE   = 1024
	TEXT_HEADER_SIZE = TEXT_PAGE_SIZE

	asciiDLE = 0x10
	asciiCR  = 0x0d
)

// maxIndent is the largest blank count a DLE pair can hold.
const maxIndent = 0xff - 32

// IsTextImage reports whether data has the page structure of a TEXT file.
func IsTextImage(data []byte) bool {
	return len(data) >= TEXT_HEADER_SIZE+TEXT_PAGE_SIZE && len(data)%TEXT_PAGE_SIZE == 0
}

// TextToPlain converts the contents of a TEXT file to newline separated
// text.
func TextToPlain(data []byte) []byte {

	if len(data) < TEXT_HEADER_SIZE {
		return nil
	}

	var out bytes.Buffer
	body := data[TEXT_HEADER_SIZE:]
	for i := 0; i < len(body); i++ {
		switch ch := body[i]; ch {
		case 0:
		case asciiDLE:
			if i+1 < len(body) {
				i++
				if n := int(body[i]) - 32; n > 0 {
					out.Write(bytes.Repeat([]byte{' '}, n))
				}
			}
		case asciiCR:
			out.WriteByte('\n')
		default:
			out.WriteByte(ch)
		}
	}

	return out.Bytes()
}

// PlainToText builds a TEXT file from newline separated text. CRLF line
// endings are accepted.
func PlainToText(text []byte) ([]byte, error) {

	out := make([]byte, TEXT_HEADER_SIZE, TEXT_HEADER_SIZE+TEXT_PAGE_SIZE)
	var page []byte

	flush := func() {
		page = append(page, make([]byte, TEXT_PAGE_SIZE-len(page))...)
		out = append(out, page...)
		page = page[:0]
	}

	text = bytes.TrimSuffix(text, []byte{'\n'})
	lines := bytes.Split(text, []byte{'\n'})
	if len(text) == 0 {
		lines = nil
	}

	for n, line := range lines {
		line = bytes.TrimSuffix(line, []byte{'\r'})

		var enc []byte
		indent := len(line) - len(bytes.TrimLeft(line, " "))
		if indent > maxIndent {
			indent = maxIndent
		}
		if indent > 0 {
			enc = append(enc, asciiDLE, byte(32+indent))
		}
		enc = append(enc, line[indent:]...)
		enc = append(enc, asciiCR)

		if len(enc) > TEXT_PAGE_SIZE {
			return nil, fmt.Errorf("line %d is longer than a text page", n+1)
		}
		if len(page)+len(enc) > TEXT_PAGE_SIZE {
			flush()
		}
		page = append(page, enc...)
	}

	if len(page) > 0 || len(out) == TEXT_HEADER_SIZE {
		flush()
	}

	return out, nil
}
