package disk_test

import (
	"testing"

	"github.com/kantai/fatrescue/internal/disk"
	"github.com/stretchr/testify/require"
)

func TestGuessBlockSize_EmptyOffsetsReturnsDefault(t *testing.T) {
	size, offset := disk.GuessBlockSize(nil)
	require.Equal(t, uint64(disk.DefaultBlocksize), size)
	require.Equal(t, uint64(0), offset)
}

func TestGuessBlockSize_ConvergesOnConsistentAlignment(t *testing.T) {
	offsets := []uint64{512, 1536, 2560}
	size, offset := disk.GuessBlockSize(offsets)
	for _, off := range offsets {
		require.Equal(t, offset, off%size)
	}
}

func TestEnforceAlignment_HalvesBlockSizeOnMismatch(t *testing.T) {
	size, _, valid := disk.EnforceAlignment([]uint64{0, 100}, 1024, 0)
	require.False(t, valid)
	require.Equal(t, uint64(512), size)
}

func TestEnforceAlignment_AcceptsConsistentOffsets(t *testing.T) {
	size, offset, valid := disk.EnforceAlignment([]uint64{512, 1024, 1536}, 512, 0)
	require.True(t, valid)
	require.Equal(t, uint64(512), size)
	require.Equal(t, uint64(0), offset)
}
