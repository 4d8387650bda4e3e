// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
package format

import (
	"bytes"
	"fmt"
)

var textFileHeader = FileHeader{
	Ext:         "txt",
	Description: "Unicode text",
	Signatures: [][]byte{
		utf8BOM,
		utf16LEBOM,
		utf16BEBOM,
	},
	ScanFile: ScanText,
}

var (
	utf8BOM    = []byte{0xEF, 0xBB, 0xBF}
	utf16LEBOM = []byte{0xFF, 0xFE}
	utf16BEBOM = []byte{0xFE, 0xFF}

	textChunkSize  = 4096
	textMaxFileSize = 8 * 1024 * 1024 // 8MB
)

// ScanText recognizes a Unicode text stream by its byte-order mark. Text
// carries no signature-based footer at all, so the carve runs chunk by
// chunk, stopping at the first chunk that looksLikeText rejects (treated as
// the point the text content ends) or at textMaxFileSize, whichever comes
// first.
func ScanText(r *Reader) (*ScanResult, error) {
	var bom [3]byte
	n, err := r.Read(bom[:2])
	if err != nil {
		return nil, err
	}

	switch {
	case bytes.Equal(bom[:2], utf16LEBOM), bytes.Equal(bom[:2], utf16BEBOM):
		// two-byte BOM already consumed
	default:
		if _, err := r.Read(bom[n:3]); err != nil {
			return nil, err
		}
		if !bytes.Equal(bom[:3], utf8BOM) {
			return nil, fmt.Errorf("missing unicode byte-order mark")
		}
	}

	chunk := make([]byte, textChunkSize)
	for r.BytesRead() < uint64(textMaxFileSize) {
		peeked, peekErr := r.Peek(len(chunk))
		if len(peeked) == 0 {
			break
		}

		if !looksLikeText(peeked) {
			break
		}

		if _, err := r.Discard(len(peeked)); err != nil {
			return nil, err
		}

		if peekErr != nil {
			break
		}
	}

	return &ScanResult{Size: r.BytesRead()}, nil
}

// looksLikeText reports whether buf is mostly printable ASCII or common
// whitespace/control bytes, tolerant of UTF-16 content where every other
// byte is 0x00. Chunk boundaries can split a multi-byte UTF-8 rune, so a
// strict decode check would produce false negatives; a byte-class ratio
// avoids that without needing to re-synchronize on rune boundaries.
func looksLikeText(buf []byte) bool {
	printable := 0
	for _, b := range buf {
		switch {
		case b == 0x00, b == '\t', b == '\n', b == '\r':
			printable++
		case b >= 0x20 && b < 0x7F:
			printable++
		case b >= 0xC0:
			printable++
		}
	}
	return printable*10 >= len(buf)*9
}
