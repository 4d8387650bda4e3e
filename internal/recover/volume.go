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

// Package recover orchestrates the fat package's primitives into the
// end-user operations: opening a volume, building its directory tree,
// extracting live or deleted files, carving by signature, and driving
// boot-sector recovery. It is the layer cmd/ talks to.
package recover

import (
	"fmt"
	"io"

	"github.com/kantai/fatrescue/internal/disk"
	"github.com/kantai/fatrescue/internal/fat"
)

// Volume is an opened FAT filesystem: a device (or partition view within
// one), its parsed Layout, and the FAT copy chosen as authoritative.
type Volume struct {
	Dev           disk.BlockDevice
	Layout        *fat.Layout
	FATCopies     [][]byte
	FAT           []byte // the copy selected by fat.PreferredCopy
	PreferredCopy int    // index into FATCopies that FAT was chosen from

	Findings []fat.ValidationFinding
}

// OpenVolume parses the boot sector at the start of dev, reads every FAT
// copy it names, and picks the authoritative one.
// Validation findings are returned alongside a usable Volume even when
// some are fatal — callers decide whether to proceed or recommend
// recover-boot.
func OpenVolume(dev disk.BlockDevice) (*Volume, error) {
	var sector0 [512]byte
	if _, err := dev.ReadAt(sector0[:], 0); err != nil && err != io.EOF {
		return nil, fmt.Errorf("reading boot sector: %w", err)
	}

	layout, err := fat.ParseBootSector(sector0[:])
	if err != nil {
		return nil, fmt.Errorf("parsing boot sector: %w", err)
	}

	findings := fat.Validate(layout, dev.Size())

	copies, err := readFATCopies(dev, layout)
	if err != nil {
		return nil, fmt.Errorf("reading FAT table: %w", err)
	}

	preferred := 0
	if len(copies) > 1 {
		preferred = fat.PreferredCopy(copies, layout.MediaDescriptor)
	}

	return &Volume{
		Dev:           dev,
		Layout:        layout,
		FATCopies:     copies,
		FAT:           copies[preferred],
		PreferredCopy: preferred,
		Findings:      findings,
	}, nil
}

func readFATCopies(dev disk.BlockDevice, layout *fat.Layout) ([][]byte, error) {
	fatSize := int64(layout.SectorsPerFAT) * int64(layout.BytesPerSector)
	if fatSize <= 0 {
		return nil, fmt.Errorf("sectors_per_fat is zero")
	}

	copies := make([][]byte, 0, layout.NumFATs)
	for i := uint8(0); i < layout.NumFATs; i++ {
		off := int64(layout.FATRegionStart())*int64(layout.BytesPerSector) + int64(i)*fatSize
		buf := make([]byte, fatSize)
		if _, err := io.ReadFull(io.NewSectionReader(dev, off, fatSize), buf); err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return nil, err
		}
		copies = append(copies, buf)
	}
	if len(copies) == 0 {
		return nil, fmt.Errorf("num_fats is zero")
	}
	return copies, nil
}

// CompareFATCopies reports on disagreement between the volume's FAT
// copies. A single-FAT volume trivially agrees.
func (v *Volume) CompareFATCopies() (*fat.CopyDiff, bool) {
	if len(v.FATCopies) < 2 {
		return &fat.CopyDiff{}, true
	}
	return fat.CompareCopies(v.FATCopies[0], v.FATCopies[1])
}

// NewTreeWalker returns a fat.TreeWalker bound to this volume's device,
// layout, and preferred FAT copy.
func (v *Volume) NewTreeWalker() *fat.TreeWalker {
	return fat.NewTreeWalker(v.Dev, v.Layout, v.FAT)
}

// BuildTree walks the whole volume from its root directory.
func (v *Volume) BuildTree() (*fat.DirNode, error) {
	return v.NewTreeWalker().BuildTree()
}

// ScanDeleted walks the whole volume collecting deleted directory
// entries.
func (v *Volume) ScanDeleted() ([]fat.RecoverableCandidate, error) {
	return v.NewTreeWalker().ScanDeleted()
}

// ExtractPath extracts a live file addressed by slash-separated path
// within a tree already built by BuildTree. The string
// return is a non-fatal warning (ambiguous zero-size entry, truncated
// read); empty when the extraction was clean.
func (v *Volume) ExtractPath(root *fat.DirNode, path string) ([]byte, string, error) {
	node, err := fat.FindPath(root, path)
	if err != nil {
		return nil, "", err
	}
	if node.IsDirectory {
		return nil, "", fmt.Errorf("%s is a directory", path)
	}
	return fat.ExtractLive(v.Dev, v.Layout, v.FAT, node)
}

// ExtractDeleted performs best-effort contiguous recovery of a deleted
// file named by a RecoverableCandidate.
func (v *Volume) ExtractDeleted(c fat.RecoverableCandidate) ([]byte, error) {
	return fat.ExtractDeleted(v.Dev, v.Layout, c.StartCluster, c.Size)
}
