package fat_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/kantai/fatrescue/internal/fat"
	"github.com/stretchr/testify/require"
)

// rootOnlyLayout places the FAT12 root directory at sector 2, one sector,
// with the data region (cluster 2 onward) starting right after it.
func rootOnlyLayout(totalSectors uint32, rootEntries uint16) *fat.Layout {
	return &fat.Layout{
		BytesPerSector:    512,
		SectorsPerCluster: 1,
		ReservedSectors:   1,
		NumFATs:           1,
		SectorsPerFAT:     1,
		RootEntries:       rootEntries,
		TotalSectors:      totalSectors,
		MediaDescriptor:   0xF8,
	}
}

func writeShortRec(buf []byte, off int, name, ext string, attr uint8, startCluster uint32, size uint32) {
	rec := buf[off : off+32]
	copy(rec[0:8], []byte(pad(name, 8)))
	copy(rec[8:11], []byte(pad(ext, 3)))
	rec[11] = attr
	binary.LittleEndian.PutUint16(rec[20:22], uint16(startCluster>>16))
	binary.LittleEndian.PutUint16(rec[26:28], uint16(startCluster&0xFFFF))
	binary.LittleEndian.PutUint32(rec[28:32], size)
}

func TestTreeWalker_BuildTree_FlatRootDirectory(t *testing.T) {
	layout := rootOnlyLayout(50, 16)
	dev := make([]byte, 50*512)

	rootOff := int(layout.RootDirStart()) * 512
	writeShortRec(dev, rootOff, "KEEP", "TXT", 0, 2, 4)
	copy(dev[int(layout.ClusterOffsetSectors(2))*512:], []byte("live"))

	fatBuf := make([]byte, 512)
	fat.WriteEntry(fatBuf, 2, fat.FAT12.EOCThreshold(), fat.FAT12)

	w := fat.NewTreeWalker(bytes.NewReader(dev), layout, fatBuf)
	tree, err := w.BuildTree()
	require.NoError(t, err)
	require.Len(t, tree.Children, 1)
	require.Equal(t, "KEEP.TXT", tree.Children[0].Name)
	require.Equal(t, uint32(4), tree.Children[0].Size)
}

func TestTreeWalker_ScanDeleted_Scenario(t *testing.T) {
	// Root contains a live KEEP.TXT and a deleted
	// entry with marked_filename "_ILEB.TXT", start_cluster=17, size=42.
	layout := rootOnlyLayout(100, 16)
	dev := make([]byte, 100*512)

	rootOff := int(layout.RootDirStart()) * 512
	writeShortRec(dev, rootOff, "KEEP", "TXT", 0, 2, 4)
	// Surviving name bytes (after the overwritten marker byte) read "ILEB".
	writeShortRec(dev, rootOff+32, "XILEB", "TXT", 0, 17, 42)
	dev[rootOff+32] = fat.EntryDeleted

	copy(dev[int(layout.ClusterOffsetSectors(2))*512:], []byte("live"))

	fatBuf := make([]byte, 512)
	fat.WriteEntry(fatBuf, 2, fat.FAT12.EOCThreshold(), fat.FAT12)

	w := fat.NewTreeWalker(bytes.NewReader(dev), layout, fatBuf)
	candidates, err := w.ScanDeleted()
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Equal(t, "_ILEB.TXT", candidates[0].ShortNameWithUnderscore)
	require.Equal(t, uint32(17), candidates[0].StartCluster)
	require.Equal(t, uint32(42), candidates[0].Size)
}

func TestTreeWalker_BuildTree_DetectsCycleInSubdirectories(t *testing.T) {
	layout := rootOnlyLayout(100, 16)
	dev := make([]byte, 100*512)

	rootOff := int(layout.RootDirStart()) * 512
	writeShortRec(dev, rootOff, "SUBDIR", "", fat.AttrDirectory, 2, 0)

	// Subdirectory at cluster 2 contains an entry pointing back at
	// cluster 2 itself (a corrupt self-referencing link).
	subOff := int(layout.ClusterOffsetSectors(2)) * 512
	writeShortRec(dev, subOff, "LOOP", "", fat.AttrDirectory, 2, 0)

	fatBuf := make([]byte, 512)
	fat.WriteEntry(fatBuf, 2, fat.FAT12.EOCThreshold(), fat.FAT12)

	w := fat.NewTreeWalker(bytes.NewReader(dev), layout, fatBuf)
	_, err := w.BuildTree()
	require.Error(t, err)
}
