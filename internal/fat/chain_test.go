package fat_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/kantai/fatrescue/internal/fat"
	"github.com/stretchr/testify/require"
)

func TestWalkChain_FAT16_Simple(t *testing.T) {
	buf := make([]byte, 4096)
	fat.WriteEntry(buf, 2, 3, fat.FAT16)
	fat.WriteEntry(buf, 3, 4, fat.FAT16)
	fat.WriteEntry(buf, 4, 0xFFF8, fat.FAT16)

	chain, err := fat.WalkChain(buf, 2, fat.FAT16, 1000, fat.DefaultMaxChainBytes, 512)
	require.NoError(t, err)
	require.Equal(t, []uint32{2, 3, 4}, chain)
}

func TestWalkChain_StartClusterZero_ReturnsEmptyChain(t *testing.T) {
	buf := make([]byte, 64)
	chain, err := fat.WalkChain(buf, 0, fat.FAT16, 1000, fat.DefaultMaxChainBytes, 512)
	require.NoError(t, err)
	require.Nil(t, chain)
}

func TestWalkChain_StartClusterOne_IsCorrupt(t *testing.T) {
	buf := make([]byte, 64)
	_, err := fat.WalkChain(buf, 1, fat.FAT16, 1000, fat.DefaultMaxChainBytes, 512)
	require.Error(t, err)
	require.True(t, errors.Is(err, fat.ErrCorruptChain))
}

func TestWalkChain_CycleDetected(t *testing.T) {
	buf := make([]byte, 4096)
	fat.WriteEntry(buf, 2, 3, fat.FAT16)
	fat.WriteEntry(buf, 3, 2, fat.FAT16) // back-edge

	_, err := fat.WalkChain(buf, 2, fat.FAT16, 1000, fat.DefaultMaxChainBytes, 512)
	require.Error(t, err)
	require.True(t, errors.Is(err, fat.ErrCorruptChain))
}

func TestWalkChain_ZeroMidChainIsCorrupt(t *testing.T) {
	buf := make([]byte, 4096)
	fat.WriteEntry(buf, 2, 0, fat.FAT16)

	_, err := fat.WalkChain(buf, 2, fat.FAT16, 1000, fat.DefaultMaxChainBytes, 512)
	require.Error(t, err)
	require.True(t, errors.Is(err, fat.ErrCorruptChain))
}

func TestWalkChain_BadClusterMarkerIsCorrupt(t *testing.T) {
	buf := make([]byte, 4096)
	fat.WriteEntry(buf, 2, 0xFFF7, fat.FAT16)

	_, err := fat.WalkChain(buf, 2, fat.FAT16, 1000, fat.DefaultMaxChainBytes, 512)
	require.Error(t, err)
	require.True(t, errors.Is(err, fat.ErrCorruptChain))
}

func TestWalkChain_OutOfRangeClusterIsCorrupt(t *testing.T) {
	buf := make([]byte, 4096)
	fat.WriteEntry(buf, 2, 5000, fat.FAT16)

	_, err := fat.WalkChain(buf, 2, fat.FAT16, 100, fat.DefaultMaxChainBytes, 512)
	require.Error(t, err)
	require.True(t, errors.Is(err, fat.ErrCorruptChain))
}

func TestWalkChain_RespectsMaxBytesLimit(t *testing.T) {
	buf := make([]byte, 4096)
	// chain 2 -> 3 -> 4 -> EOC, but cap to 1 cluster worth of bytes.
	fat.WriteEntry(buf, 2, 3, fat.FAT16)
	fat.WriteEntry(buf, 3, 4, fat.FAT16)
	fat.WriteEntry(buf, 4, 0xFFF8, fat.FAT16)

	_, err := fat.WalkChain(buf, 2, fat.FAT16, 1000, 512, 512)
	require.Error(t, err)
	require.True(t, errors.Is(err, fat.ErrCorruptChain))
}

func TestClusterChainReader_ReadsContiguousClustersInOrder(t *testing.T) {
	layout := &fat.Layout{
		BytesPerSector:    512,
		SectorsPerCluster: 1,
		ReservedSectors:   1,
		NumFATs:           1,
		SectorsPerFAT:     1,
		TotalSectors:      100,
	}
	// DataRegionStart = 1 + 1*1 + 0 = 2. Cluster 2 -> sector 2, cluster 5 -> sector 5.
	dev := make([]byte, 100*512)
	copy(dev[2*512:], bytes.Repeat([]byte{0xAA}, 512))
	copy(dev[5*512:], bytes.Repeat([]byte{0xBB}, 512))

	r := fat.NewClusterChainReader(bytes.NewReader(dev), layout, []uint32{2, 5}, -1)
	require.Equal(t, int64(1024), r.Size())

	out := make([]byte, 1024)
	n, err := r.ReadAt(out, 0)
	require.NoError(t, err)
	require.Equal(t, 1024, n)
	require.Equal(t, bytes.Repeat([]byte{0xAA}, 512), out[:512])
	require.Equal(t, bytes.Repeat([]byte{0xBB}, 512), out[512:])
}

func TestClusterChainReader_TruncatesToExplicitSize(t *testing.T) {
	layout := &fat.Layout{
		BytesPerSector:    512,
		SectorsPerCluster: 1,
		ReservedSectors:   1,
		NumFATs:           1,
		SectorsPerFAT:     1,
		TotalSectors:      100,
	}
	dev := make([]byte, 100*512)
	r := fat.NewClusterChainReader(bytes.NewReader(dev), layout, []uint32{2, 5}, 13)
	require.Equal(t, int64(13), r.Size())
}
