package fat_test

import (
	"testing"

	"github.com/kantai/fatrescue/internal/fat"
	"github.com/stretchr/testify/require"
)

func clean20MiBLayout() *fat.Layout {
	// A clean 20 MiB image with two FAT copies: 40609 data clusters, so FAT16.
	return &fat.Layout{
		BytesPerSector:    512,
		SectorsPerCluster: 1,
		ReservedSectors:   1,
		NumFATs:           2,
		SectorsPerFAT:     159,
		RootEntries:       512,
		TotalSectors:      40960,
		MediaDescriptor:   0xF8,
		SignatureValid:    true,
	}
}

func TestValidate_CleanLayoutProducesNoFindings(t *testing.T) {
	l := clean20MiBLayout()
	findings := fat.Validate(l, int64(l.TotalSectors)*int64(l.BytesPerSector))
	require.Empty(t, findings)
}

func TestValidate_InvalidBytesPerSector(t *testing.T) {
	l := clean20MiBLayout()
	l.BytesPerSector = 333
	findings := fat.Validate(l, 0)
	require.True(t, hasKind(findings, "InvalidBytesPerSector"))
}

func TestValidate_ZeroRootEntriesOnFAT16(t *testing.T) {
	l := clean20MiBLayout()
	l.RootEntries = 0
	l.TotalSectors = 50000 // total_clusters lands in the FAT16 range (4085..65524)
	l.SectorsPerFAT = 100
	findings := fat.Validate(l, 0)
	require.True(t, hasKind(findings, "ZeroRootEntries"))
}

func TestValidate_FAT32RequiresMinReservedSectors(t *testing.T) {
	l := clean20MiBLayout()
	l.RootEntries = 0
	l.SectorsPerCluster = 8
	l.TotalSectors = 20000000 // push into FAT32 range
	l.SectorsPerFAT = 20000
	l.ReservedSectors = 1
	findings := fat.Validate(l, 0)
	require.True(t, hasKind(findings, "ReservedSectorsTooSmall"))
}

func TestValidate_DeviceSizeMismatchBeyondTolerance(t *testing.T) {
	l := clean20MiBLayout()
	findings := fat.Validate(l, int64(l.TotalSectors)*int64(l.BytesPerSector)*2)
	require.True(t, hasKind(findings, "DeviceSizeMismatch"))
}

func TestValidate_BadSignatureIsNotFatal(t *testing.T) {
	l := clean20MiBLayout()
	l.SignatureValid = false
	findings := fat.Validate(l, int64(l.TotalSectors)*int64(l.BytesPerSector))
	require.True(t, hasKind(findings, "BadSignatureWarning"))
	require.False(t, fat.HasFatalFindings(findings))
}

func TestValidate_InvalidMediaDescriptorIsFatal(t *testing.T) {
	l := clean20MiBLayout()
	l.MediaDescriptor = 0x00
	findings := fat.Validate(l, int64(l.TotalSectors)*int64(l.BytesPerSector))
	require.True(t, fat.HasFatalFindings(findings))
}

func hasKind(findings []fat.ValidationFinding, kind string) bool {
	for _, f := range findings {
		if f.Kind == kind {
			return true
		}
	}
	return false
}
