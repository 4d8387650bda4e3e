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
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/go-restruct/restruct"
)

const bootSectorSize = 512

// commonBPB covers the BIOS Parameter Block fields shared by every FAT
// variant, offsets 0x00-0x23 inclusive.
type commonBPB struct {
	JumpBoot        [3]byte
	OEMName         [8]byte
	BytesPerSector  uint16
	SecPerCluster   uint8
	ReservedSectors uint16
	NumFATs         uint8
	RootEntries     uint16
	TotalSectors16  uint16
	MediaDescriptor uint8
	SectorsPerFAT16 uint16
	SectorsPerTrack uint16
	NumHeads        uint16
	HiddenSectors   uint32
	TotalSectors32  uint32
}

// fat16Ext covers the legacy extended BPB, offsets 0x24-0x3D.
type fat16Ext struct {
	DriveNumber   uint8
	Reserved1     uint8
	BootSignature uint8
	VolumeID      uint32
	VolumeLabel   [11]byte
	FileSysType   [8]byte
}

// fat32Ext covers the FAT32 extended BPB, offsets 0x24-0x59.
type fat32Ext struct {
	SectorsPerFAT32  uint32
	ExtFlags         uint16
	FSVersion        uint16
	RootCluster      uint32
	FSInfoSector     uint16
	BackupBootSector uint16
	Reserved         [12]byte
	DriveNumber      uint8
	Reserved1        uint8
	BootSignature    uint8
	VolumeID         uint32
	VolumeLabel      [11]byte
	FileSysType      [8]byte
}

const (
	commonBPBSize = 36
	fat16ExtSize  = 26
	fat32ExtSize  = 54
)

// ParseBootSector decodes a >=512-byte sector-0 buffer into a Layout.
//
// The 0x55AA signature check is advisory, not fatal: Layout.SignatureValid
// records whether it was present, but extraction proceeds regardless,
// because recovery flows (C3) must be able to consume partially-corrupt
// sectors.
func ParseBootSector(data []byte) (*Layout, error) {
	if len(data) < bootSectorSize {
		return nil, fmt.Errorf("%w: got %d bytes, need %d", ErrShortBuffer, len(data), bootSectorSize)
	}

	var common commonBPB
	if err := restruct.Unpack(data[:commonBPBSize], binary.LittleEndian, &common); err != nil {
		return nil, fmt.Errorf("decoding common BPB: %w", err)
	}

	if common.BytesPerSector == 0 {
		return nil, &ZeroFieldError{Field: "bytes_per_sector"}
	}
	if common.SecPerCluster == 0 {
		return nil, &ZeroFieldError{Field: "sectors_per_cluster"}
	}

	totalSectors := uint32(common.TotalSectors16)
	if totalSectors == 0 {
		totalSectors = common.TotalSectors32
	}
	if totalSectors == 0 {
		return nil, &ZeroFieldError{Field: "total_sectors"}
	}

	layout := &Layout{
		BytesPerSector:    common.BytesPerSector,
		SectorsPerCluster: common.SecPerCluster,
		ReservedSectors:   common.ReservedSectors,
		NumFATs:           common.NumFATs,
		RootEntries:       common.RootEntries,
		TotalSectors:      totalSectors,
		MediaDescriptor:   common.MediaDescriptor,
		OEMName:           cleanASCII(common.OEMName[:]),
		SignatureValid:    data[510] == 0x55 && data[511] == 0xAA,
	}

	if common.SectorsPerFAT16 == 0 {
		var ext fat32Ext
		if err := restruct.Unpack(data[commonBPBSize:commonBPBSize+fat32ExtSize], binary.LittleEndian, &ext); err != nil {
			return nil, fmt.Errorf("decoding FAT32 extended BPB: %w", err)
		}
		layout.SectorsPerFAT = ext.SectorsPerFAT32
		layout.RootCluster = ext.RootCluster
		layout.VolumeLabel = cleanASCII(ext.VolumeLabel[:])
		layout.FileSystemType = cleanASCII(ext.FileSysType[:])
	} else {
		var ext fat16Ext
		if err := restruct.Unpack(data[commonBPBSize:commonBPBSize+fat16ExtSize], binary.LittleEndian, &ext); err != nil {
			return nil, fmt.Errorf("decoding FAT16 extended BPB: %w", err)
		}
		layout.SectorsPerFAT = uint32(common.SectorsPerFAT16)
		layout.VolumeLabel = cleanASCII(ext.VolumeLabel[:])
		layout.FileSystemType = cleanASCII(ext.FileSysType[:])
	}

	return layout, nil
}

// EncodeBootSector writes a Layout's fields back into a 512-byte sector,
// preserving boot code and any unrelated bytes from template (or zeroing
// them if template is nil). It never fails: callers validate the Layout
// before calling this, then issue the buffered sector as a single write.
func EncodeBootSector(l *Layout, template []byte) []byte {
	out := make([]byte, bootSectorSize)
	if len(template) >= bootSectorSize {
		copy(out, template[:bootSectorSize])
	} else {
		out[0], out[1], out[2] = 0xEB, 0x3C, 0x90 // generic short jump + NOP
	}

	common := commonBPB{
		BytesPerSector:  l.BytesPerSector,
		SecPerCluster:   l.SectorsPerCluster,
		ReservedSectors: l.ReservedSectors,
		NumFATs:         l.NumFATs,
		RootEntries:     l.RootEntries,
		MediaDescriptor: l.MediaDescriptor,
	}
	// Carry the jump instruction through the pack, or the repacked BPB
	// would zero the boot code bytes it promises to leave alone.
	copy(common.JumpBoot[:], out[0:3])
	copy(common.OEMName[:], padASCII(l.OEMName, 8))

	if l.TotalSectors < 65536 {
		common.TotalSectors16 = uint16(l.TotalSectors)
		common.TotalSectors32 = 0
	} else {
		common.TotalSectors16 = 0
		common.TotalSectors32 = l.TotalSectors
	}

	variant := l.FATVariant()
	if variant == FAT32 {
		common.SectorsPerFAT16 = 0
	} else {
		common.SectorsPerFAT16 = uint16(l.SectorsPerFAT)
	}

	commonBytes, _ := restruct.Pack(binary.LittleEndian, &common)
	copy(out[0:commonBPBSize], commonBytes)

	if variant == FAT32 {
		ext := fat32Ext{
			SectorsPerFAT32: l.SectorsPerFAT,
			RootCluster:     l.RootCluster,
			BootSignature:   0x29,
		}
		copy(ext.VolumeLabel[:], padASCII(l.VolumeLabel, 11))
		copy(ext.FileSysType[:], padASCII("FAT32", 8))
		extBytes, _ := restruct.Pack(binary.LittleEndian, &ext)
		copy(out[commonBPBSize:commonBPBSize+fat32ExtSize], extBytes)
	} else {
		ext := fat16Ext{
			BootSignature: 0x29,
		}
		copy(ext.VolumeLabel[:], padASCII(l.VolumeLabel, 11))
		fsType := "FAT16"
		if variant == FAT12 {
			fsType = "FAT12"
		}
		copy(ext.FileSysType[:], padASCII(fsType, 8))
		extBytes, _ := restruct.Pack(binary.LittleEndian, &ext)
		copy(out[commonBPBSize:commonBPBSize+fat16ExtSize], extBytes)
	}

	out[510] = 0x55
	out[511] = 0xAA
	return out
}

func cleanASCII(b []byte) string {
	return strings.TrimRight(string(bytes.TrimRight(b, "\x00")), " ")
}

func padASCII(s string, n int) []byte {
	out := bytes.Repeat([]byte{' '}, n)
	copy(out, s)
	if len(s) > n {
		out = out[:n]
	}
	return out
}
