package fat_test

import (
	"testing"

	"github.com/kantai/fatrescue/internal/fat"
	"github.com/stretchr/testify/require"
)

func fat16Layout() *fat.Layout {
	return &fat.Layout{
		BytesPerSector:    512,
		SectorsPerCluster: 4,
		ReservedSectors:   1,
		NumFATs:           2,
		RootEntries:       512,
		TotalSectors:      65536,
		MediaDescriptor:   0xF8,
		SectorsPerFAT:     256,
		OEMName:           "MSDOS5.0",
		VolumeLabel:       "TESTVOL",
		FileSystemType:    "FAT16",
		SignatureValid:    true,
	}
}

func fat32Layout() *fat.Layout {
	return &fat.Layout{
		BytesPerSector:    512,
		SectorsPerCluster: 8,
		ReservedSectors:   32,
		NumFATs:           2,
		TotalSectors:      2097152,
		MediaDescriptor:   0xF8,
		SectorsPerFAT:     2040,
		RootCluster:       2,
		OEMName:           "MSDOS5.0",
		VolumeLabel:       "BIGVOL",
		FileSystemType:    "FAT32",
		SignatureValid:    true,
	}
}

func TestParseBootSector_ShortBuffer(t *testing.T) {
	_, err := fat.ParseBootSector(make([]byte, 100))
	require.ErrorIs(t, err, fat.ErrShortBuffer)
}

func TestParseBootSector_ZeroBytesPerSectorIsFatal(t *testing.T) {
	data := fat.EncodeBootSector(fat16Layout(), nil)
	data[11], data[12] = 0, 0 // bytes_per_sector offset

	_, err := fat.ParseBootSector(data)
	require.ErrorIs(t, err, fat.ErrZeroField)
}

func TestEncodeDecodeBootSector_RoundTrip_FAT16(t *testing.T) {
	original := fat16Layout()
	encoded := fat.EncodeBootSector(original, nil)
	require.Len(t, encoded, 512)
	require.Equal(t, byte(0x55), encoded[510])
	require.Equal(t, byte(0xAA), encoded[511])

	decoded, err := fat.ParseBootSector(encoded)
	require.NoError(t, err)

	require.Equal(t, original.BytesPerSector, decoded.BytesPerSector)
	require.Equal(t, original.SectorsPerCluster, decoded.SectorsPerCluster)
	require.Equal(t, original.ReservedSectors, decoded.ReservedSectors)
	require.Equal(t, original.NumFATs, decoded.NumFATs)
	require.Equal(t, original.RootEntries, decoded.RootEntries)
	require.Equal(t, original.TotalSectors, decoded.TotalSectors)
	require.Equal(t, original.MediaDescriptor, decoded.MediaDescriptor)
	require.Equal(t, original.SectorsPerFAT, decoded.SectorsPerFAT)
	require.Equal(t, original.OEMName, decoded.OEMName)
	require.Equal(t, original.VolumeLabel, decoded.VolumeLabel)
	require.True(t, decoded.SignatureValid)
	require.Equal(t, fat.FAT16, decoded.FATVariant())
}

func TestEncodeDecodeBootSector_RoundTrip_FAT32(t *testing.T) {
	original := fat32Layout()
	encoded := fat.EncodeBootSector(original, nil)

	decoded, err := fat.ParseBootSector(encoded)
	require.NoError(t, err)

	require.Equal(t, original.SectorsPerFAT, decoded.SectorsPerFAT)
	require.Equal(t, original.RootCluster, decoded.RootCluster)
	require.Equal(t, fat.FAT32, decoded.FATVariant())
}

func TestParseBootSector_BadSignatureIsNotFatal(t *testing.T) {
	data := fat.EncodeBootSector(fat16Layout(), nil)
	data[510], data[511] = 0, 0

	decoded, err := fat.ParseBootSector(data)
	require.NoError(t, err)
	require.False(t, decoded.SignatureValid)
}

func TestEncodeBootSector_PreservesTemplateBootCode(t *testing.T) {
	template := make([]byte, 512)
	copy(template, []byte{0xEB, 0x58, 0x90})
	template[100] = 0xAB

	encoded := fat.EncodeBootSector(fat16Layout(), template)
	require.Equal(t, byte(0xEB), encoded[0])
	require.Equal(t, byte(0x58), encoded[1])
	require.Equal(t, byte(0xAB), encoded[100])
}
