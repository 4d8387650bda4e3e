package fat_test

import (
	"bytes"
	"testing"

	"github.com/kantai/fatrescue/internal/fat"
	"github.com/stretchr/testify/require"
)

func simpleLayout() *fat.Layout {
	return &fat.Layout{
		BytesPerSector:    512,
		SectorsPerCluster: 1,
		ReservedSectors:   1,
		NumFATs:           1,
		SectorsPerFAT:     1,
		TotalSectors:      100,
	}
	// DataRegionStart = 1 + 1*1 + 0 = 2, so cluster N lives at sector N.
}

func TestExtractLive_EmptyFile(t *testing.T) {
	layout := simpleLayout()
	node := &fat.DirNode{Name: "EMPTY.TXT", StartCluster: 0, Size: 0}
	out, warn, err := fat.ExtractLive(bytes.NewReader(make([]byte, 51200)), layout, nil, node)
	require.NoError(t, err)
	require.Empty(t, warn)
	require.Empty(t, out)
}

func TestExtractLive_AmbiguousZeroSizeNonzeroCluster(t *testing.T) {
	layout := simpleLayout()
	node := &fat.DirNode{Name: "WEIRD.TXT", StartCluster: 5, Size: 0}
	out, warn, err := fat.ExtractLive(bytes.NewReader(make([]byte, 51200)), layout, nil, node)
	require.NoError(t, err)
	require.NotEmpty(t, warn)
	require.Empty(t, out)
}

func TestExtractLive_SingleClusterFile(t *testing.T) {
	// HELLO.TXT, 13 bytes, start_cluster=2.
	layout := simpleLayout()
	dev := make([]byte, 100*512)
	content := []byte("Hello, world!") // 13 bytes
	copy(dev[2*512:], content)

	fatBuf := make([]byte, 4096)
	fat.WriteEntry(fatBuf, 2, 0xFFF8, fat.FAT12)

	node := &fat.DirNode{Name: "HELLO.TXT", StartCluster: 2, Size: 13}
	out, warn, err := fat.ExtractLive(bytes.NewReader(dev), layout, fatBuf, node)
	require.NoError(t, err)
	require.Empty(t, warn)
	require.Equal(t, content, out)
}

func TestExtractLive_MultiClusterFileTruncatesToSize(t *testing.T) {
	layout := simpleLayout()
	dev := make([]byte, 100*512)
	copy(dev[2*512:], bytes.Repeat([]byte{0x41}, 512))
	copy(dev[3*512:], bytes.Repeat([]byte{0x42}, 512))

	fatBuf := make([]byte, 4096)
	fat.WriteEntry(fatBuf, 2, 3, fat.FAT12)
	fat.WriteEntry(fatBuf, 3, 0xFFF8, fat.FAT12)

	node := &fat.DirNode{Name: "BIG.BIN", StartCluster: 2, Size: 600}
	out, _, err := fat.ExtractLive(bytes.NewReader(dev), layout, fatBuf, node)
	require.NoError(t, err)
	require.Len(t, out, 600)
	require.Equal(t, byte(0x41), out[0])
	require.Equal(t, byte(0x42), out[599])
}

func TestExtractDeleted_FragmentedBestEffort(t *testing.T) {
	// The file actually occupied clusters {17, 42, 43} but is read
	// contiguously from cluster 17 for ceil(42/bpc) clusters since the
	// FAT chain is gone.
	layout := simpleLayout()
	dev := make([]byte, 100*512)
	known := bytes.Repeat([]byte{0xCC}, 512)
	copy(dev[17*512:], known)

	out, err := fat.ExtractDeleted(bytes.NewReader(dev), layout, 17, 42)
	require.NoError(t, err)
	require.Len(t, out, 42)
	require.Equal(t, known[:42], out)
}

func TestExtractDeleted_ZeroSizeYieldsNil(t *testing.T) {
	layout := simpleLayout()
	out, err := fat.ExtractDeleted(bytes.NewReader(make([]byte, 512)), layout, 2, 0)
	require.NoError(t, err)
	require.Nil(t, out)
}
