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

// Package fat implements the boot-sector codec, FAT table accessor,
// cluster-chain walker, directory decoder, tree walker, file extractor,
// and boot-sector recovery logic for FAT12/FAT16/FAT32 volumes.
package fat

// Variant identifies which of the three FAT flavors a Layout describes.
type Variant int

const (
	FAT12 Variant = iota
	FAT16
	FAT32
)

func (v Variant) String() string {
	switch v {
	case FAT12:
		return "FAT12"
	case FAT16:
		return "FAT16"
	case FAT32:
		return "FAT32"
	default:
		return "unknown"
	}
}

// Directory entry attribute bits (BPB byte 11 of a 32-byte record).
const (
	AttrReadOnly  = 0x01
	AttrHidden    = 0x02
	AttrSystem    = 0x04
	AttrVolumeID  = 0x08
	AttrDirectory = 0x10
	AttrArchive   = 0x20
	AttrLongName  = AttrReadOnly | AttrHidden | AttrSystem | AttrVolumeID
)

// First-byte markers for a 32-byte directory record.
const (
	EntryFree           = 0x00
	EntryDeleted        = 0xE5
	EntryEscapedE5      = 0x05 // literal 0xE5 as the name's first byte
	EntryDotOrDotDotMax = 2    // "." and ".." occupy at most these two slots
)

// End-of-chain and bad-cluster thresholds, one pair per variant.
const (
	fat12Bad = 0x0FF7
	fat12EOC = 0x0FF8
	fat16Bad = 0xFFF7
	fat16EOC = 0xFFF8
	fat32Bad = 0x0FFFFFF7
	fat32EOC = 0x0FFFFFF8
)

// EOCThreshold returns the value at and above which a FAT entry denotes
// end-of-chain for the given variant.
func (v Variant) EOCThreshold() uint32 {
	switch v {
	case FAT12:
		return fat12EOC
	case FAT16:
		return fat16EOC
	default:
		return fat32EOC
	}
}

// BadCluster returns the value denoting a bad cluster for the given variant.
func (v Variant) BadCluster() uint32 {
	switch v {
	case FAT12:
		return fat12Bad
	case FAT16:
		return fat16Bad
	default:
		return fat32Bad
	}
}

// EntrySize returns the size in bytes of one FAT entry for the given
// variant. FAT12 entries are packed 12 bits (1.5 bytes); this value is
// only used for capacity estimates, not indexing.
func (v Variant) EntrySize() float64 {
	switch v {
	case FAT12:
		return 1.5
	case FAT16:
		return 2
	default:
		return 4
	}
}

// Valid sets for boot-sector validation.
var (
	ValidBytesPerSector      = []uint16{512, 1024, 2048, 4096}
	ValidSectorsPerCluster   = []uint8{1, 2, 4, 8, 16, 32, 64, 128}
	ValidNumFATs             = []uint8{1, 2}
	ValidMediaDescriptors    = []uint8{0xF0, 0xF8, 0xF9, 0xFA, 0xFB, 0xFC, 0xFD, 0xFE, 0xFF}
	FAT32MinReservedSectors  = uint16(32)
)

// Layout is the immutable, derived description of a FAT volume produced by
// parsing or hypothesizing a BPB. All downstream components (C4-C9)
// consume only a Layout; they never re-read the boot sector.
type Layout struct {
	BytesPerSector    uint16
	SectorsPerCluster uint8
	ReservedSectors   uint16
	NumFATs           uint8
	RootEntries       uint16 // 0 for FAT32
	TotalSectors      uint32
	MediaDescriptor   uint8
	SectorsPerFAT     uint32 // resolved regardless of which BPB field held it
	RootCluster       uint32 // FAT32 only; 0 otherwise
	VolumeLabel       string
	OEMName           string
	FileSystemType    string

	// SignatureValid records whether the 0x55AA marker was present. A
	// false value is a BadSignatureWarning, not a parse failure: the
	// rest of the fields are still populated.
	SignatureValid bool

	// Partition-relative offset in bytes of sector 0. Zero when the
	// Layout describes a bare image rather than a partition within one.
	PartitionOffset int64
}

// BytesPerCluster returns sectors_per_cluster * bytes_per_sector.
func (l *Layout) BytesPerCluster() uint32 {
	return uint32(l.SectorsPerCluster) * uint32(l.BytesPerSector)
}

// FATRegionStart returns the sector offset of the first FAT copy.
func (l *Layout) FATRegionStart() uint32 {
	return uint32(l.ReservedSectors)
}

// RootDirSectors returns the number of sectors occupied by the fixed-size
// root directory (0 for FAT32, where the root directory lives in the data
// region starting at RootCluster).
func (l *Layout) RootDirSectors() uint32 {
	return roundUpDiv(uint32(l.RootEntries)*32, uint32(l.BytesPerSector))
}

// RootDirStart returns the sector offset of the fixed-size root directory.
func (l *Layout) RootDirStart() uint32 {
	return l.FATRegionStart() + uint32(l.NumFATs)*l.SectorsPerFAT
}

// DataRegionStart returns the sector offset of cluster 2.
func (l *Layout) DataRegionStart() uint32 {
	return l.RootDirStart() + l.RootDirSectors()
}

// DataSectors returns the number of sectors available for cluster storage.
func (l *Layout) DataSectors() uint32 {
	start := l.DataRegionStart()
	if l.TotalSectors <= start {
		return 0
	}
	return l.TotalSectors - start
}

// TotalClusters returns the number of data-region clusters, the single
// value the FAT variant is a pure function of.
func (l *Layout) TotalClusters() uint32 {
	if l.SectorsPerCluster == 0 {
		return 0
	}
	return l.DataSectors() / uint32(l.SectorsPerCluster)
}

// FATVariant derives FAT12/16/32 purely from TotalClusters. This is the
// one true definition; callers must never branch on total_sectors.
func (l *Layout) FATVariant() Variant {
	tc := l.TotalClusters()
	switch {
	case tc < 4085:
		return FAT12
	case tc < 65525:
		return FAT16
	default:
		return FAT32
	}
}

// ClusterOffsetSectors returns the sector offset of the given cluster
// number (cluster numbering starts at 2).
func (l *Layout) ClusterOffsetSectors(cluster uint32) int64 {
	return int64(l.DataRegionStart()) + int64(cluster-2)*int64(l.SectorsPerCluster)
}

func roundUpDiv(n, d uint32) uint32 {
	if d == 0 {
		return 0
	}
	return (n + d - 1) / d
}
