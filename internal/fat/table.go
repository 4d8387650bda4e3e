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
package fat

import "encoding/binary"

// ReadEntry returns the Nth cluster-entry from a raw FAT buffer, decoded
// according to variant. Callers past the end of the buffer get 0 (treated
// as "free" further up the stack) rather than an error.
func ReadEntry(fatBuf []byte, n uint32, variant Variant) uint32 {
	switch variant {
	case FAT12:
		off := n + n/2
		if int(off)+2 > len(fatBuf) {
			return 0
		}
		word := binary.LittleEndian.Uint16(fatBuf[off : off+2])
		if n%2 == 0 {
			return uint32(word & 0x0FFF)
		}
		return uint32(word >> 4)
	case FAT16:
		off := 2 * n
		if int(off)+2 > len(fatBuf) {
			return 0
		}
		return uint32(binary.LittleEndian.Uint16(fatBuf[off : off+2]))
	default: // FAT32
		off := 4 * n
		if int(off)+4 > len(fatBuf) {
			return 0
		}
		return binary.LittleEndian.Uint32(fatBuf[off:off+4]) & 0x0FFFFFFF
	}
}

// WriteEntry packs a cluster-entry value into a raw FAT buffer at index n.
// It is the round-trip counterpart to ReadEntry, used only by tests to
// synthesize chains. The tool never writes FAT entries in production use.
func WriteEntry(fatBuf []byte, n uint32, value uint32, variant Variant) {
	switch variant {
	case FAT12:
		off := n + n/2
		if int(off)+2 > len(fatBuf) {
			return
		}
		word := binary.LittleEndian.Uint16(fatBuf[off : off+2])
		v := uint16(value & 0x0FFF)
		if n%2 == 0 {
			word = (word & 0xF000) | v
		} else {
			word = (word & 0x000F) | (v << 4)
		}
		binary.LittleEndian.PutUint16(fatBuf[off:off+2], word)
	case FAT16:
		off := 2 * n
		if int(off)+2 > len(fatBuf) {
			return
		}
		binary.LittleEndian.PutUint16(fatBuf[off:off+2], uint16(value))
	default:
		off := 4 * n
		if int(off)+4 > len(fatBuf) {
			return
		}
		existing := binary.LittleEndian.Uint32(fatBuf[off : off+4])
		merged := (existing & 0xF0000000) | (value & 0x0FFFFFFF)
		binary.LittleEndian.PutUint32(fatBuf[off:off+4], merged)
	}
}

// CopyDiff summarizes a byte-level disagreement between two FAT copies.
type CopyDiff struct {
	DiffCount    int
	FirstOffsets []int
	FirstValuesA []byte
	FirstValuesB []byte
}

const maxDiffSamples = 16

// CompareCopies performs a pairwise byte comparison between two FAT
// copies and, on inequality, returns a diff report naming the count and
// the first K differing byte positions with both values.
func CompareCopies(a, b []byte) (*CopyDiff, bool) {
	n := min(len(a), len(b))
	diff := &CopyDiff{}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			diff.DiffCount++
			if len(diff.FirstOffsets) < maxDiffSamples {
				diff.FirstOffsets = append(diff.FirstOffsets, i)
				diff.FirstValuesA = append(diff.FirstValuesA, a[i])
				diff.FirstValuesB = append(diff.FirstValuesB, b[i])
			}
		}
	}
	if len(a) != len(b) {
		diff.DiffCount += abs(len(a) - len(b))
	}
	return diff, diff.DiffCount == 0
}

// PreferredCopy picks which of two disagreeing FAT copies to trust,
// breaking the tie by preferring the copy whose FAT[0] matches the media
// descriptor.
func PreferredCopy(copies [][]byte, mediaDescriptor uint8) int {
	for i, c := range copies {
		if len(c) > 0 && c[0] == mediaDescriptor {
			return i
		}
	}
	return 0
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
