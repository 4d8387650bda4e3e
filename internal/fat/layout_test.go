package fat_test

import (
	"testing"

	"github.com/kantai/fatrescue/internal/fat"
	"github.com/stretchr/testify/require"
)

func TestLayout_FATVariant_BoundaryTable(t *testing.T) {
	tests := []struct {
		name     string
		clusters uint32
		want     fat.Variant
	}{
		{"just below FAT12/16 boundary", 4084, fat.FAT12},
		{"at FAT12/16 boundary", 4085, fat.FAT16},
		{"just below FAT16/32 boundary", 65524, fat.FAT16},
		{"at FAT16/32 boundary", 65525, fat.FAT32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &fat.Layout{
				SectorsPerCluster: 1,
				BytesPerSector:    512,
				ReservedSectors:   1,
				NumFATs:           1,
				SectorsPerFAT:     roundUpDiv(tt.clusters+2, 256),
			}
			// TotalSectors = DataRegionStart + clusters*SectorsPerCluster
			dataStart := uint32(l.ReservedSectors) + uint32(l.NumFATs)*l.SectorsPerFAT
			l.TotalSectors = dataStart + tt.clusters

			require.Equal(t, tt.want, l.FATVariant())
		})
	}
}

func roundUpDiv(n, d uint32) uint32 {
	return (n + d - 1) / d
}

func TestLayout_BytesPerCluster(t *testing.T) {
	l := &fat.Layout{BytesPerSector: 512, SectorsPerCluster: 8}
	require.Equal(t, uint32(4096), l.BytesPerCluster())
}

func TestLayout_ClusterOffsetSectors(t *testing.T) {
	l := &fat.Layout{
		BytesPerSector:    512,
		SectorsPerCluster: 4,
		ReservedSectors:   1,
		NumFATs:           2,
		SectorsPerFAT:     10,
		RootEntries:       0, // FAT32-style: no fixed root dir sectors
	}
	// data region starts right after reserved + both FATs
	require.Equal(t, uint32(21), l.DataRegionStart())
	// cluster 2 is the first data cluster, at the very start of the data region
	require.Equal(t, int64(21), l.ClusterOffsetSectors(2))
	// cluster 3 is one cluster (4 sectors) further in
	require.Equal(t, int64(25), l.ClusterOffsetSectors(3))
}
