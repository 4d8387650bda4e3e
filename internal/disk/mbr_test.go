package disk_test

import (
	"encoding/binary"
	"testing"

	"github.com/kantai/fatrescue/internal/disk"
	"github.com/stretchr/testify/require"
)

func buildMBR(entries ...func([]byte)) []byte {
	buf := make([]byte, 512)
	for i, set := range entries {
		off := 0x1BE + i*16
		set(buf[off : off+16])
	}
	buf[0x1FE] = 0x55
	buf[0x1FF] = 0xAA
	return buf
}

func fatPartitionEntry(partType disk.MBRPartition, startLBA, totalSectors uint32) func([]byte) {
	return func(b []byte) {
		b[0x00] = 0x80
		b[0x04] = byte(partType)
		binary.LittleEndian.PutUint32(b[0x08:0x0C], startLBA)
		binary.LittleEndian.PutUint32(b[0x0C:0x10], totalSectors)
	}
}

func TestParseMBR_ValidSignature(t *testing.T) {
	buf := buildMBR(fatPartitionEntry(disk.PartitionTypeFAT32LBA, 2048, 204800))
	mbr, err := disk.ParseMBR(buf)
	require.NoError(t, err)
	require.Equal(t, uint16(0xAA55), mbr.ReadSignature())
	require.Equal(t, disk.PartitionTypeFAT32LBA, mbr.PartitionEntries[0].PartitionType)
	require.Equal(t, uint32(2048), mbr.PartitionEntries[0].ReadStartLBA())
	require.Equal(t, uint32(204800), mbr.PartitionEntries[0].ReadTotalSectors())
}

func TestParseMBR_InvalidSignatureRejected(t *testing.T) {
	buf := make([]byte, 512) // zeroed, no 0x55AA
	_, err := disk.ParseMBR(buf)
	require.Error(t, err)
}

func TestParseMBR_WrongSizeRejected(t *testing.T) {
	_, err := disk.ParseMBR(make([]byte, 256))
	require.Error(t, err)
}
