package recover_test

import (
	"encoding/binary"
	"io"
	"testing"

	"github.com/kantai/fatrescue/internal/fat"
	"github.com/kantai/fatrescue/internal/recover"
	"github.com/stretchr/testify/require"
)

// fakeBlockDevice is a minimal in-memory disk.BlockDevice for exercising
// the Volume orchestration layer without a real file or device.
type fakeBlockDevice struct {
	buf []byte
}

func (d *fakeBlockDevice) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(d.buf)) {
		return 0, io.EOF
	}
	n := copy(p, d.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (d *fakeBlockDevice) ReadSectors(lba int64, count int) ([]byte, error) {
	buf := make([]byte, int64(count)*512)
	n, err := d.ReadAt(buf, lba*512)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return buf[:n], nil
}

func (d *fakeBlockDevice) WriteSector(lba int64, data []byte) error {
	copy(d.buf[lba*512:], data)
	return nil
}

func (d *fakeBlockDevice) Size() int64       { return int64(len(d.buf)) }
func (d *fakeBlockDevice) SectorSize() int64 { return 512 }
func (d *fakeBlockDevice) Close() error      { return nil }

// buildCleanFAT12Image constructs a minimal clean FAT12 disk: one root
// entry (HELLO.TXT, 13 bytes at cluster 2) over a single-FAT-copy volume.
func buildCleanFAT12Image(t *testing.T) *fakeBlockDevice {
	t.Helper()

	layout := &fat.Layout{
		BytesPerSector:    512,
		SectorsPerCluster: 1,
		ReservedSectors:   1,
		NumFATs:           1,
		SectorsPerFAT:     1,
		RootEntries:       16,
		TotalSectors:      50,
		MediaDescriptor:   0xF8,
	}
	require.Equal(t, fat.FAT12, layout.FATVariant())

	dev := &fakeBlockDevice{buf: make([]byte, int(layout.TotalSectors)*512)}

	sector0 := fat.EncodeBootSector(layout, nil)
	copy(dev.buf, sector0)

	fatOff := int64(layout.FATRegionStart()) * 512
	fatBuf := dev.buf[fatOff : fatOff+512]
	fat.WriteEntry(fatBuf, 2, fat.FAT12.EOCThreshold(), fat.FAT12)

	rootOff := int64(layout.RootDirStart()) * 512
	rec := dev.buf[rootOff : rootOff+32]
	copy(rec[0:8], []byte("HELLO   "))
	copy(rec[8:11], []byte("TXT"))
	binary.LittleEndian.PutUint16(rec[26:28], 2) // FirstClusterLow
	binary.LittleEndian.PutUint32(rec[28:32], 13) // FileSize

	dataOff := layout.ClusterOffsetSectors(2) * 512
	copy(dev.buf[dataOff:], []byte("Hello, world!"))

	return dev
}

func TestOpenVolume_ParsesLayoutAndPreferredFATCopy(t *testing.T) {
	dev := buildCleanFAT12Image(t)

	vol, err := recover.OpenVolume(dev)
	require.NoError(t, err)
	require.Equal(t, fat.FAT12, vol.Layout.FATVariant())
	require.Empty(t, vol.Findings)
}

func TestVolume_BuildTreeAndExtractPath(t *testing.T) {
	dev := buildCleanFAT12Image(t)

	vol, err := recover.OpenVolume(dev)
	require.NoError(t, err)

	tree, err := vol.BuildTree()
	require.NoError(t, err)
	require.Len(t, tree.Children, 1)
	require.Equal(t, "HELLO.TXT", tree.Children[0].Name)

	content, warn, err := vol.ExtractPath(tree, "HELLO.TXT")
	require.NoError(t, err)
	require.Empty(t, warn)
	require.Equal(t, "Hello, world!", string(content))
}

func TestVolume_CompareFATCopies_SingleFATAgreesTrivially(t *testing.T) {
	dev := buildCleanFAT12Image(t)
	vol, err := recover.OpenVolume(dev)
	require.NoError(t, err)

	diff, ok := vol.CompareFATCopies()
	require.True(t, ok)
	require.Equal(t, 0, diff.DiffCount)
}
