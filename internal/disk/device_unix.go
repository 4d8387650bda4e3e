//go:build !windows
// +build !windows

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
package disk

import (
	"fmt"
	"io"

	"github.com/kantai/fatrescue/internal/mmap"
)

// mmapDevice serves a regular image file through a read-only memory
// mapping. Writes are rejected; callers needing the write path open the
// device through Stat instead.
type mmapDevice struct {
	m          *mmap.MmapFile
	sectorSize int64
}

func openMmapDevice(path string, sectorSize int64) (BlockDevice, bool) {
	m, err := mmap.NewMmapFile(path)
	if err != nil {
		return nil, false
	}
	if sectorSize <= 0 {
		sectorSize = DefaultSectorSize
	}
	return &mmapDevice{m: m, sectorSize: sectorSize}, true
}

func (d *mmapDevice) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(d.m.Data)) {
		return 0, io.EOF
	}
	n := copy(p, d.m.Data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (d *mmapDevice) ReadSectors(lba int64, count int) ([]byte, error) {
	buf := make([]byte, int64(count)*d.sectorSize)
	n, err := d.ReadAt(buf, lba*d.sectorSize)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return buf[:n], nil
}

func (d *mmapDevice) WriteSector(lba int64, data []byte) error {
	return fmt.Errorf("write sector %d: image is mapped read-only", lba)
}

func (d *mmapDevice) Size() int64       { return int64(d.m.FileSize) }
func (d *mmapDevice) SectorSize() int64 { return d.sectorSize }
func (d *mmapDevice) Close() error      { return d.m.Close() }
