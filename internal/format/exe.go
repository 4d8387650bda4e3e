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
	"io"
)

var exeFileHeader = FileHeader{
	Ext:         "exe",
	Description: "DOS/PE executable",
	Signatures:  [][]byte{exeHeader},
	ScanFile:    ScanEXE,
}

var (
	exeHeader = []byte{'M', 'Z'}

	exeMaxFileSize = 32 * 1024 * 1024 // 32MB
)

// ScanEXE identifies a DOS MZ executable (the header common to both plain
// DOS binaries and PE images) from its 2-byte magic. Like ScanDOC, there
// is no reliable in-stream end marker, so the carve is bounded by
// exeMaxFileSize or truncated early if the underlying stream runs dry.
func ScanEXE(r *Reader) (*ScanResult, error) {
	var headerBuf [2]byte
	_, err := r.Read(headerBuf[:])
	if err != nil {
		return nil, err
	}

	if !bytes.Equal(headerBuf[:], exeHeader) {
		return nil, fmt.Errorf("invalid mz executable")
	}

	_, err = r.Discard(exeMaxFileSize - len(exeHeader))
	if err != nil && err != io.EOF {
		return nil, err
	}

	return &ScanResult{Size: r.BytesRead()}, nil
}
