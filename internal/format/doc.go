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

var docFileHeader = FileHeader{
	Ext:         "doc",
	Description: "OLE2 compound document (Word/Excel/PowerPoint)",
	Signatures:  [][]byte{docHeader},
	ScanFile:    ScanDOC,
}

var (
	docHeader = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

	docMaxFileSize = 32 * 1024 * 1024 // 32MB
)

// ScanDOC identifies an OLE2 compound file (the container format used by
// legacy .doc/.xls/.ppt) from its 8-byte magic and carves up to
// docMaxFileSize bytes. The CFB format carries no reliable in-stream
// end-of-file marker, so unlike ScanPDF or ScanZIP this cannot locate an
// exact boundary: the carved size is either the full cap or, when the
// underlying stream runs dry first, whatever was actually read.
func ScanDOC(r *Reader) (*ScanResult, error) {
	var headerBuf [8]byte
	_, err := r.Read(headerBuf[:])
	if err != nil {
		return nil, err
	}

	if !bytes.Equal(headerBuf[:], docHeader) {
		return nil, fmt.Errorf("invalid ole2 compound file")
	}

	_, err = r.Discard(docMaxFileSize - len(docHeader))
	if err != nil && err != io.EOF {
		return nil, err
	}

	return &ScanResult{Size: r.BytesRead()}, nil
}
