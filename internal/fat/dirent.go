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

import (
	"encoding/binary"
	"strings"
	"unicode/utf16"

	"github.com/go-restruct/restruct"
)

const direntSize = 32

// rawDirEntry mirrors the 32-byte on-disk short-form directory record.
type rawDirEntry struct {
	Name             [8]byte
	Ext              [3]byte
	Attr             uint8
	NTRes            uint8
	CreateTimeTenth  uint8
	CreateTime       uint16
	CreateDate       uint16
	LastAccessDate   uint16
	FirstClusterHigh uint16
	WriteTime        uint16
	WriteDate        uint16
	FirstClusterLow  uint16
	FileSize         uint32
}

// rawLFNSlot mirrors the 32-byte on-disk long-filename slot.
type rawLFNSlot struct {
	Ordinal         uint8
	Name1           [10]byte // 5 UCS-2 chars
	Attr            uint8    // always AttrLongName
	Type            uint8
	Checksum        uint8
	Name2           [12]byte // 6 UCS-2 chars
	FirstClusterLow uint16   // always 0
	Name3           [4]byte  // 2 UCS-2 chars
}

// DirectoryEntry is a decoded, transient view of one filesystem object —
// one per parse, never a persistent record.
type DirectoryEntry struct {
	Name         string // long name if an intact, checksum-matching LFN run preceded it, else the cleaned 8.3 form
	ShortName    string
	IsDirectory  bool
	StartCluster uint32
	Size         uint32
	Attr         uint8
}

// DeletedEntry is one 0xE5-marked record surfaced by a deleted-entry
// scan.
type DeletedEntry struct {
	ShortNameWithUnderscore string
	PossiblyLFN             string // best-effort LFN reconstructed from intact preceding slots; empty if unavailable
	StartCluster            uint32
	Size                    uint32
}

type lfnAccumulator struct {
	parts    map[int]string // ordinal -> 13-char run
	checksum uint8
	active   bool
}

func (a *lfnAccumulator) reset() {
	a.parts = nil
	a.checksum = 0
	a.active = false
}

func (a *lfnAccumulator) add(ordinal int, checksum uint8, text string) {
	if a.parts == nil {
		a.parts = make(map[int]string)
	}
	a.parts[ordinal] = text
	a.checksum = checksum
	a.active = true
}

func (a *lfnAccumulator) assemble(maxOrdinal int) string {
	var b strings.Builder
	for i := 1; i <= maxOrdinal; i++ {
		part, ok := a.parts[i]
		if !ok {
			return ""
		}
		b.WriteString(part)
	}
	return b.String()
}

// DecodeDirectory iterates a contiguous directory region (root dir for
// FAT12/16, or concatenated cluster data otherwise) in 32-byte records.
// When includeDeleted is true, deleted slots are also surfaced as
// DeletedEntry values.
func DecodeDirectory(buf []byte, includeDeleted bool) ([]DirectoryEntry, []DeletedEntry, error) {
	var entries []DirectoryEntry
	var deleted []DeletedEntry
	var lfn lfnAccumulator
	var deletedLFN lfnAccumulator

	for off := 0; off+direntSize <= len(buf); off += direntSize {
		rec := buf[off : off+direntSize]

		if rec[0] == EntryFree {
			break
		}

		if rec[0] == EntryDeleted {
			if rec[11] == AttrLongName {
				// A deleted LFN continuation slot. Its cluster/size byte
				// offsets hold name characters, not a file record, and the
				// marker overwrote the ordinal, so the slot can neither be
				// surfaced as a candidate nor placed in a name run.
				continue
			}
			if includeDeleted {
				de := decodeDeletedEntry(rec, &deletedLFN)
				deleted = append(deleted, de)
			}
			lfn.reset()
			deletedLFN.reset()
			continue
		}

		attr := rec[11]

		if attr == AttrLongName {
			ordinal := int(rec[0] & 0x1F)
			isLast := rec[0]&0x40 != 0
			text := decodeLFNChars(rec)

			lfn.add(ordinal, rec[13], text)
			if isLast {
				lfn.active = true
			}
			// A preceding deleted-LFN accumulator mirrors the live one so
			// that a later 0xE5 short entry can still attempt best-effort
			// reconstruction.
			deletedLFN.add(ordinal, rec[13], text)
			continue
		}

		var raw rawDirEntry
		if err := restruct.Unpack(rec, binary.LittleEndian, &raw); err != nil {
			return entries, deleted, err
		}

		if attr&AttrVolumeID != 0 {
			lfn.reset()
			continue
		}

		shortName, shortExt := cleanShortName(raw.Name[:], raw.Ext[:])
		shortFull := joinShortName(shortName, shortExt)

		name := shortFull
		if lfn.active {
			maxOrdinal := maxKey(lfn.parts)
			if assembled := lfn.assemble(maxOrdinal); assembled != "" && shortNameChecksum(raw.Name, raw.Ext) == lfn.checksum {
				name = stripNonPrintable(assembled)
			}
		}

		if shortName == "." || shortName == ".." {
			name = shortName
		}

		entries = append(entries, DirectoryEntry{
			Name:         name,
			ShortName:    shortFull,
			IsDirectory:  attr&AttrDirectory != 0,
			StartCluster: (uint32(raw.FirstClusterHigh) << 16) | uint32(raw.FirstClusterLow),
			Size:         raw.FileSize,
			Attr:         attr,
		})

		lfn.reset()
		deletedLFN.reset()
	}

	return entries, deleted, nil
}

func decodeDeletedEntry(rec []byte, deletedLFN *lfnAccumulator) DeletedEntry {
	nameBytes := append([]byte(nil), rec[0:8]...)
	extBytes := rec[8:11]

	shortName, shortExt := cleanShortName(nameBytes, extBytes)
	// cleanShortName already drops the on-disk marker byte (0xE5) from
	// consideration, so shortName holds exactly the surviving characters.
	// The conventional recovery display restores the lost lead byte as '_'.
	shortName = "_" + shortName
	full := joinShortName(shortName, shortExt)

	possiblyLFN := ""
	if deletedLFN.active {
		maxOrdinal := maxKey(deletedLFN.parts)
		possiblyLFN = deletedLFN.assemble(maxOrdinal)
	}

	startHigh := binary.LittleEndian.Uint16(rec[20:22])
	startLow := binary.LittleEndian.Uint16(rec[26:28])
	size := binary.LittleEndian.Uint32(rec[28:32])

	return DeletedEntry{
		ShortNameWithUnderscore: full,
		PossiblyLFN:             possiblyLFN,
		StartCluster:            (uint32(startHigh) << 16) | uint32(startLow),
		Size:                    size,
	}
}

func decodeLFNChars(rec []byte) string {
	var units []uint16
	for _, r := range [][2]int{{1, 11}, {14, 26}, {28, 32}} {
		for i := r[0]; i < r[1]; i += 2 {
			u := binary.LittleEndian.Uint16(rec[i : i+2])
			if u == 0x0000 {
				return string(utf16.Decode(units))
			}
			if u == 0xFFFF {
				continue
			}
			units = append(units, u)
		}
	}
	return string(utf16.Decode(units))
}

// cleanShortName keeps bytes in 0x20..0x7E, strips 0xFF, restores a
// literal 0xE5 when byte 0 was the 0x05 escape, and trims trailing
// spaces.
func cleanShortName(nameBytes, extBytes []byte) (string, string) {
	name := make([]byte, len(nameBytes))
	copy(name, nameBytes)
	escapedE5 := len(name) > 0 && name[0] == EntryEscapedE5
	if escapedE5 {
		name[0] = EntryDeleted
	}

	var nb strings.Builder
	for i, b := range name {
		if i == 0 && escapedE5 {
			// The restored literal 0xE5 is outside the printable range
			// but is a legal first byte by the escape rule.
			nb.WriteByte(b)
			continue
		}
		if b != 0xFF && b >= 0x20 && b < 0x7F {
			nb.WriteByte(b)
		}
	}

	var eb strings.Builder
	for _, b := range extBytes {
		if b != 0xFF && b >= 0x20 && b < 0x7F {
			eb.WriteByte(b)
		}
	}

	return strings.TrimRight(nb.String(), " "), strings.TrimRight(eb.String(), " ")
}

func joinShortName(name, ext string) string {
	if ext == "" {
		return name
	}
	return name + "." + ext
}

func stripNonPrintable(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == 0xFFFF {
			continue
		}
		if r >= 0x20 || r == 0x09 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// shortNameChecksum computes the standard VFAT checksum of the 11-byte
// short name.
func shortNameChecksum(name [8]byte, ext [3]byte) uint8 {
	var sum uint8
	for _, b := range append(name[:], ext[:]...) {
		sum = ((sum & 1) << 7) + (sum >> 1) + b
	}
	return sum
}

func maxKey(m map[int]string) int {
	max := 0
	for k := range m {
		if k > max {
			max = k
		}
	}
	return max
}
