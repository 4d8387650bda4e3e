package fat_test

import (
	"encoding/binary"
	"testing"

	"github.com/kantai/fatrescue/internal/fat"
	"github.com/stretchr/testify/require"
)

func shortEntry(name, ext string, attr uint8, startCluster, size uint32) []byte {
	rec := make([]byte, 32)
	copy(rec[0:8], []byte(pad(name, 8)))
	copy(rec[8:11], []byte(pad(ext, 3)))
	rec[11] = attr
	binary.LittleEndian.PutUint16(rec[20:22], uint16(startCluster>>16))
	binary.LittleEndian.PutUint16(rec[26:28], uint16(startCluster&0xFFFF))
	binary.LittleEndian.PutUint32(rec[28:32], size)
	return rec
}

func pad(s string, n int) string {
	for len(s) < n {
		s += " "
	}
	return s[:n]
}

func TestDecodeDirectory_EndOfDirectoryStopsAtFirstFreeByte(t *testing.T) {
	buf := append(shortEntry("HELLO", "TXT", 0, 2, 13), make([]byte, 32)...)
	entries, deleted, err := fat.DecodeDirectory(buf, false)
	require.NoError(t, err)
	require.Empty(t, deleted)
	require.Len(t, entries, 1)
	require.Equal(t, "HELLO.TXT", entries[0].Name)
	require.Equal(t, uint32(2), entries[0].StartCluster)
	require.Equal(t, uint32(13), entries[0].Size)
	require.False(t, entries[0].IsDirectory)
}

func TestDecodeDirectory_DirectoryAttribute(t *testing.T) {
	buf := shortEntry("SUBDIR", "", fat.AttrDirectory, 5, 0)
	entries, _, err := fat.DecodeDirectory(buf, false)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.True(t, entries[0].IsDirectory)
	require.Equal(t, "SUBDIR", entries[0].Name)
}

func TestDecodeDirectory_VolumeLabelSkipped(t *testing.T) {
	buf := append(shortEntry("MYVOL", "", fat.AttrVolumeID, 0, 0), make([]byte, 32)...)
	entries, _, err := fat.DecodeDirectory(buf, false)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestDecodeDirectory_DeletedEntryScenario(t *testing.T) {
	// A deleted entry whose surviving name bytes (after
	// the overwritten marker byte) read "ILEB    ", ext "TXT",
	// start_cluster=17, size=42.
	rec := shortEntry("XILEB", "TXT", 0, 17, 42)
	rec[0] = fat.EntryDeleted
	buf := append(rec, make([]byte, 32)...)

	entries, deleted, err := fat.DecodeDirectory(buf, true)
	require.NoError(t, err)
	require.Empty(t, entries)
	require.Len(t, deleted, 1)
	require.Equal(t, "_ILEB.TXT", deleted[0].ShortNameWithUnderscore)
	require.Equal(t, uint32(17), deleted[0].StartCluster)
	require.Equal(t, uint32(42), deleted[0].Size)
}

func TestDecodeDirectory_DeletedLFNSlotIsNotACandidate(t *testing.T) {
	// Deleting a long-named file marks its LFN slots 0xE5 too. Those
	// slots must not be misread as deleted file records: their
	// cluster/size offsets hold UCS-2 name characters.
	slot := lfnSlot(1, true, 0xA7, "deleted name.txt")
	slot[0] = fat.EntryDeleted
	rec := shortEntry("XILEB", "TXT", 0, 17, 42)
	rec[0] = fat.EntryDeleted
	buf := append(append(slot, rec...), make([]byte, 32)...)

	entries, deleted, err := fat.DecodeDirectory(buf, true)
	require.NoError(t, err)
	require.Empty(t, entries)
	require.Len(t, deleted, 1)
	require.Equal(t, "_ILEB.TXT", deleted[0].ShortNameWithUnderscore)
	require.Equal(t, uint32(17), deleted[0].StartCluster)
}

func TestDecodeDirectory_DeletedEntryNotSurfacedUnlessRequested(t *testing.T) {
	rec := shortEntry("XILEB", "TXT", 0, 17, 42)
	rec[0] = fat.EntryDeleted
	buf := append(rec, make([]byte, 32)...)

	entries, deleted, err := fat.DecodeDirectory(buf, false)
	require.NoError(t, err)
	require.Empty(t, entries)
	require.Empty(t, deleted)
}

func TestDecodeDirectory_LiteralE5FirstByteEscaped(t *testing.T) {
	rec := shortEntry("XMAS", "TXT", 0, 2, 0)
	rec[0] = fat.EntryEscapedE5 // 0x05, means the literal first char is 0xE5
	buf := append(rec, make([]byte, 32)...)

	entries, _, err := fat.DecodeDirectory(buf, false)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, byte(0xE5), entries[0].Name[0])
}

func lfnSlot(ordinal uint8, last bool, checksum uint8, chars string) []byte {
	rec := make([]byte, 32)
	units := []uint16{}
	for _, r := range chars {
		units = append(units, uint16(r))
	}
	for len(units) < 13 {
		if len(units) == len(chars) {
			units = append(units, 0x0000)
		} else {
			units = append(units, 0xFFFF)
		}
	}
	o := ordinal
	if last {
		o |= 0x40
	}
	rec[0] = o
	for i := 0; i < 5; i++ {
		binary.LittleEndian.PutUint16(rec[1+i*2:3+i*2], units[i])
	}
	rec[11] = fat.AttrLongName
	rec[13] = checksum
	for i := 0; i < 6; i++ {
		binary.LittleEndian.PutUint16(rec[14+i*2:16+i*2], units[5+i])
	}
	for i := 0; i < 2; i++ {
		binary.LittleEndian.PutUint16(rec[28+i*2:30+i*2], units[11+i])
	}
	return rec
}

func TestDecodeDirectory_LFNAssembledWhenChecksumMatches(t *testing.T) {
	short := shortEntry("README~1", "TXT", 0, 2, 100)
	sum := computeChecksum(t, short)

	slot := lfnSlot(1, true, sum, "readme.txt")
	buf := append(append(slot, short...), make([]byte, 32)...)

	entries, _, err := fat.DecodeDirectory(buf, false)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "readme.txt", entries[0].Name)
	require.Equal(t, "README~1.TXT", entries[0].ShortName)
}

func TestDecodeDirectory_LFNIgnoredWhenChecksumMismatches(t *testing.T) {
	short := shortEntry("README~1", "TXT", 0, 2, 100)
	slot := lfnSlot(1, true, 0xFF, "readme.txt") // wrong checksum
	buf := append(append(slot, short...), make([]byte, 32)...)

	entries, _, err := fat.DecodeDirectory(buf, false)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "README~1.TXT", entries[0].Name)
}

func computeChecksum(t *testing.T, short []byte) uint8 {
	t.Helper()
	var sum uint8
	for _, b := range short[0:11] {
		sum = ((sum & 1) << 7) + (sum >> 1) + b
	}
	return sum
}
