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

// Package disk adapts raw devices and disk images to the block-oriented
// io.ReaderAt/io.WriterAt surface the fat package consumes, and discovers
// the partitions within them.
package disk

import (
	"context"
	"fmt"
	"io"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/kantai/fatrescue/internal/fs"
)

// BlockDevice is the one seam between the fat package and physical I/O.
// Every operation the core performs against a disk goes through this
// interface, so tests can substitute an in-memory fake.
type BlockDevice interface {
	io.ReaderAt
	ReadSectors(lba int64, count int) ([]byte, error)
	WriteSector(lba int64, data []byte) error
	Size() int64
	SectorSize() int64
	Close() error
}

// diskInfoDevice adapts *DiskInfo to BlockDevice.
type diskInfoDevice struct {
	info *DiskInfo
}

// mmapThreshold is the image size above which read-only access to a
// regular file switches to a memory-mapped backend.
const mmapThreshold = 64 << 20

// OpenDevice opens path (a raw device or an image file) read-only unless
// writable is set, and returns a BlockDevice backed by it. Grounded on
// Stat's own R/W-then-R/O fallback logic; writable here only requests
// the attempt, it does not guarantee it succeeds.
//
// Large read-only image files are served through a memory-mapped backend
// where the platform supports it; real devices always take the ioctl
// path. When Stat cannot classify the path at all, a read-only open
// falls back to the platform raw-volume opener in internal/fs.
func OpenDevice(path string, writable bool) (BlockDevice, error) {
	mode := 0
	if writable {
		mode = TESTDISK_O_RDWR
	}
	info, err := Stat(path, 0, mode)
	if err != nil {
		if !writable {
			if dev, ferr := openFSDevice(path); ferr == nil {
				return dev, nil
			}
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	if !writable && !info.IsDevice && info.RealSize >= mmapThreshold {
		if dev, ok := openMmapDevice(path, info.SectorSize); ok {
			info.Close()
			return dev, nil
		}
	}

	return &diskInfoDevice{info: info}, nil
}

// fsDevice is a read-only BlockDevice over the platform raw opener in
// internal/fs (plain os.Open off Windows, CreateFile on a volume handle
// on Windows).
type fsDevice struct {
	f    fs.File
	size int64
}

func openFSDevice(path string) (BlockDevice, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &fsDevice{f: f, size: st.Size()}, nil
}

func (d *fsDevice) ReadAt(p []byte, off int64) (int, error) {
	return d.f.ReadAt(p, off)
}

func (d *fsDevice) ReadSectors(lba int64, count int) ([]byte, error) {
	buf := make([]byte, int64(count)*d.SectorSize())
	n, err := d.ReadAt(buf, lba*d.SectorSize())
	if err != nil && err != io.EOF {
		return nil, err
	}
	return buf[:n], nil
}

func (d *fsDevice) WriteSector(lba int64, data []byte) error {
	return fmt.Errorf("write sector %d: device opened read-only", lba)
}

func (d *fsDevice) Size() int64       { return d.size }
func (d *fsDevice) SectorSize() int64 { return DefaultSectorSize }
func (d *fsDevice) Close() error      { return d.f.Close() }

func (d *diskInfoDevice) ReadAt(p []byte, off int64) (int, error) {
	return d.info.ReadAt(p, off)
}

func (d *diskInfoDevice) ReadSectors(lba int64, count int) ([]byte, error) {
	buf := make([]byte, int64(count)*d.SectorSize())
	n, err := d.info.ReadAt(buf, lba*d.SectorSize())
	if err != nil && err != io.EOF {
		return nil, err
	}
	return buf[:n], nil
}

func (d *diskInfoDevice) WriteSector(lba int64, data []byte) error {
	if int64(len(data)) != d.SectorSize() {
		return fmt.Errorf("write sector %d: got %d bytes, want exactly %d (no partial-sector writes)", lba, len(data), d.SectorSize())
	}
	_, err := d.info.WriteAt(data, lba*d.SectorSize())
	return err
}

func (d *diskInfoDevice) Size() int64       { return d.info.RealSize }
func (d *diskInfoDevice) SectorSize() int64 { return d.info.SectorSize }
func (d *diskInfoDevice) Close() error      { return d.info.Close() }

// PartitionView is a BlockDevice restricted to one partition's byte
// range, so the fat package never needs to know it is reading a
// partition rather than a bare volume.
type PartitionView struct {
	dev    BlockDevice
	offset int64 // bytes, from the start of dev
	size   int64 // bytes
}

// NewPartitionView wraps dev to expose only [offset, offset+size).
func NewPartitionView(dev BlockDevice, offset, size int64) *PartitionView {
	return &PartitionView{dev: dev, offset: offset, size: size}
}

func (p *PartitionView) ReadAt(buf []byte, off int64) (int, error) {
	if off < 0 || off >= p.size {
		return 0, io.EOF
	}
	want := int64(len(buf))
	if off+want > p.size {
		want = p.size - off
	}
	return p.dev.ReadAt(buf[:want], p.offset+off)
}

func (p *PartitionView) ReadSectors(lba int64, count int) ([]byte, error) {
	buf := make([]byte, int64(count)*p.SectorSize())
	n, err := p.ReadAt(buf, lba*p.SectorSize())
	if err != nil && err != io.EOF {
		return nil, err
	}
	return buf[:n], nil
}

func (p *PartitionView) WriteSector(lba int64, data []byte) error {
	return p.dev.WriteSector((p.offset/p.SectorSize())+lba, data)
}

func (p *PartitionView) Size() int64       { return p.size }
func (p *PartitionView) SectorSize() int64 { return p.dev.SectorSize() }
func (p *PartitionView) Close() error      { return nil } // the parent device owns the handle

// DiscoveredPartition is one FAT-looking partition found during an MBR
// scan, with its byte offset/size already resolved from the partition
// table so a caller can hand it straight to fat.ParseBootSector via a
// PartitionView.
type DiscoveredPartition struct {
	Index      int
	Type       MBRPartition
	Offset     int64
	Size       int64
	BootSector []byte // first 512 bytes of the partition, read during discovery
}

// ScanPartitions reads the MBR at sector 0 and, for every FAT-typed slot,
// concurrently reads that partition's boot sector — the reads land on
// disjoint sectors, so their order is immaterial. Results are returned in
// partition-table order regardless of which fetch finished first.
func ScanPartitions(ctx context.Context, dev BlockDevice) ([]DiscoveredPartition, error) {
	mbrBuf, err := dev.ReadSectors(0, 1)
	if err != nil {
		return nil, fmt.Errorf("reading MBR: %w", err)
	}
	if len(mbrBuf) < 512 {
		return nil, fmt.Errorf("short MBR read: got %d bytes", len(mbrBuf))
	}

	mbr, err := ParseMBR(mbrBuf[:512])
	if err != nil {
		return nil, err
	}

	var candidates []DiscoveredPartition
	for i, entry := range mbr.PartitionEntries {
		if entry.PartitionType == PartitionTypeEmpty {
			continue
		}
		if !isFATPartitionType(entry.PartitionType) {
			continue
		}
		candidates = append(candidates, DiscoveredPartition{
			Index:  i,
			Type:   entry.PartitionType,
			Offset: int64(entry.ReadStartLBA()) * dev.SectorSize(),
			Size:   int64(entry.ReadTotalSectors()) * dev.SectorSize(),
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range candidates {
		i := i
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			buf, err := dev.ReadSectors(candidates[i].Offset/dev.SectorSize(), 1)
			if err != nil {
				return fmt.Errorf("reading boot sector of partition %d: %w", candidates[i].Index, err)
			}
			candidates[i].BootSector = buf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Index < candidates[j].Index })
	return candidates, nil
}

func isFATPartitionType(t MBRPartition) bool {
	switch t {
	case PartitionTypeFAT12, PartitionTypeFAT16LessThan32MB, PartitionTypeFAT16GreaterThan32MB,
		PartitionTypeFAT32CHS, PartitionTypeFAT32LBA, PartitionTypeFAT16LBA:
		return true
	default:
		return false
	}
}
