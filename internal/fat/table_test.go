package fat_test

import (
	"testing"

	"github.com/kantai/fatrescue/internal/fat"
	"github.com/stretchr/testify/require"
)

func TestReadWriteEntry_RoundTrip_FAT12(t *testing.T) {
	buf := make([]byte, 32)
	fat.WriteEntry(buf, 2, 0x0ABC, fat.FAT12)
	fat.WriteEntry(buf, 3, 0x0123, fat.FAT12)

	require.Equal(t, uint32(0x0ABC), fat.ReadEntry(buf, 2, fat.FAT12))
	require.Equal(t, uint32(0x0123), fat.ReadEntry(buf, 3, fat.FAT12))
}

func TestReadWriteEntry_RoundTrip_FAT16(t *testing.T) {
	buf := make([]byte, 32)
	fat.WriteEntry(buf, 5, 0xBEEF, fat.FAT16)

	require.Equal(t, uint32(0xBEEF), fat.ReadEntry(buf, 5, fat.FAT16))
}

func TestReadWriteEntry_RoundTrip_FAT32(t *testing.T) {
	buf := make([]byte, 32)
	fat.WriteEntry(buf, 5, 0x0FFFFFF8, fat.FAT32)

	require.Equal(t, uint32(0x0FFFFFF8), fat.ReadEntry(buf, 5, fat.FAT32))
}

func TestReadEntry_PastBufferEndReturnsZero(t *testing.T) {
	buf := make([]byte, 4)
	require.Equal(t, uint32(0), fat.ReadEntry(buf, 1000, fat.FAT32))
}

func TestCompareCopies_Identical(t *testing.T) {
	a := []byte{1, 2, 3, 4}
	b := []byte{1, 2, 3, 4}

	diff, ok := fat.CompareCopies(a, b)
	require.True(t, ok)
	require.Equal(t, 0, diff.DiffCount)
}

func TestCompareCopies_Disagreeing(t *testing.T) {
	a := []byte{1, 2, 3, 4}
	b := []byte{1, 9, 3, 9}

	diff, ok := fat.CompareCopies(a, b)
	require.False(t, ok)
	require.Equal(t, 2, diff.DiffCount)
	require.Equal(t, []int{1, 3}, diff.FirstOffsets)
}

func TestPreferredCopy_PrefersMediaDescriptorMatch(t *testing.T) {
	copies := [][]byte{
		{0xF0, 0, 0},
		{0xF8, 0, 0},
	}
	require.Equal(t, 1, fat.PreferredCopy(copies, 0xF8))
}

func TestPreferredCopy_FallsBackToFirst(t *testing.T) {
	copies := [][]byte{
		{0xF0, 0, 0},
		{0xF0, 0, 0},
	}
	require.Equal(t, 0, fat.PreferredCopy(copies, 0xF8))
}
