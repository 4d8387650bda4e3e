package disk_test

import (
	"context"
	"encoding/binary"
	"io"
	"testing"

	"github.com/kantai/fatrescue/internal/disk"
	"github.com/stretchr/testify/require"
)

// memDevice is a minimal in-memory disk.BlockDevice for tests.
type memDevice struct {
	buf        []byte
	sectorSize int64
}

func newMemDevice(buf []byte, sectorSize int64) *memDevice {
	return &memDevice{buf: buf, sectorSize: sectorSize}
}

func (m *memDevice) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.buf)) {
		return 0, io.EOF
	}
	n := copy(p, m.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *memDevice) ReadSectors(lba int64, count int) ([]byte, error) {
	buf := make([]byte, int64(count)*m.sectorSize)
	n, err := m.ReadAt(buf, lba*m.sectorSize)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return buf[:n], nil
}

func (m *memDevice) WriteSector(lba int64, data []byte) error {
	copy(m.buf[lba*m.sectorSize:], data)
	return nil
}

func (m *memDevice) Size() int64       { return int64(len(m.buf)) }
func (m *memDevice) SectorSize() int64 { return m.sectorSize }
func (m *memDevice) Close() error      { return nil }

func TestPartitionView_ReadsWithinBoundsOffsetFromParent(t *testing.T) {
	raw := make([]byte, 4096)
	copy(raw[1024:], []byte("partition-content"))

	dev := newMemDevice(raw, 512)
	view := disk.NewPartitionView(dev, 1024, 512)

	out := make([]byte, 17)
	n, err := view.ReadAt(out, 0)
	require.NoError(t, err)
	require.Equal(t, 17, n)
	require.Equal(t, "partition-content", string(out))
}

func TestPartitionView_ReadPastEndReturnsEOF(t *testing.T) {
	dev := newMemDevice(make([]byte, 4096), 512)
	view := disk.NewPartitionView(dev, 1024, 512)

	_, err := view.ReadAt(make([]byte, 8), 512)
	require.ErrorIs(t, err, io.EOF)
}

func TestPartitionView_WriteSectorTranslatesLBA(t *testing.T) {
	raw := make([]byte, 4096)
	dev := newMemDevice(raw, 512)
	view := disk.NewPartitionView(dev, 1024, 2048)

	sector := make([]byte, 512)
	for i := range sector {
		sector[i] = 0x7A
	}
	require.NoError(t, view.WriteSector(1, sector))
	require.Equal(t, sector, raw[1536:2048])
}

func TestScanPartitions_FindsFATTypedEntries(t *testing.T) {
	raw := make([]byte, 8192)
	buf := raw[:512]
	off := 0x1BE
	buf[off] = 0x80
	buf[off+0x04] = byte(disk.PartitionTypeFAT32LBA)
	binary.LittleEndian.PutUint32(buf[off+0x08:off+0x0C], 2)
	binary.LittleEndian.PutUint32(buf[off+0x0C:off+0x10], 10)
	buf[0x1FE] = 0x55
	buf[0x1FF] = 0xAA

	// Boot sector of the discovered partition, at LBA 2 (offset 1024).
	copy(raw[1024:], []byte("bootsector"))

	dev := newMemDevice(raw, 512)
	parts, err := disk.ScanPartitions(context.Background(), dev)
	require.NoError(t, err)
	require.Len(t, parts, 1)
	require.Equal(t, disk.PartitionTypeFAT32LBA, parts[0].Type)
	require.Equal(t, int64(1024), parts[0].Offset)
	require.Equal(t, int64(5120), parts[0].Size)
	require.Contains(t, string(parts[0].BootSector), "bootsector")
}

func TestScanPartitions_SkipsEmptyAndNonFATEntries(t *testing.T) {
	raw := make([]byte, 8192)
	buf := raw[:512]
	off := 0x1BE + 16 // second entry
	buf[off] = 0x00
	buf[off+0x04] = byte(disk.PartitionTypeLinuxFilesystem)
	binary.LittleEndian.PutUint32(buf[off+0x08:off+0x0C], 2)
	binary.LittleEndian.PutUint32(buf[off+0x0C:off+0x10], 10)
	buf[0x1FE] = 0x55
	buf[0x1FF] = 0xAA

	dev := newMemDevice(raw, 512)
	parts, err := disk.ScanPartitions(context.Background(), dev)
	require.NoError(t, err)
	require.Empty(t, parts)
}
