package fat_test

import (
	"bytes"
	"testing"

	"github.com/kantai/fatrescue/internal/fat"
	"github.com/stretchr/testify/require"
)

func TestRecoverySession_HappyPath(t *testing.T) {
	layout := clean20MiBLayout()
	session := fat.NewRecoverySession([]fat.Candidate{{Layout: layout, Source: "backup-sector:6"}})
	require.Equal(t, fat.StateCandidateSelection, session.State)

	require.NoError(t, session.Select(0))
	require.Equal(t, fat.StateUserConfirm, session.State)

	oldSector := make([]byte, 512)
	require.NoError(t, session.Confirm("Y", oldSector))
	require.Equal(t, fat.StateWrite, session.State)

	newSector := session.PrepareWrite(nil)
	require.Len(t, newSector, 512)

	session.MarkWritten()
	require.Equal(t, fat.StateVerify, session.State)

	rollback, ok := session.Verify(newSector)
	require.True(t, ok)
	require.Nil(t, rollback)
	require.Equal(t, fat.StateDone, session.State)
}

func TestRecoverySession_NoCandidatesStartsAborted(t *testing.T) {
	session := fat.NewRecoverySession(nil)
	require.Equal(t, fat.StateAborted, session.State)
}

func TestRecoverySession_ConfirmRejectsWrongToken(t *testing.T) {
	layout := clean20MiBLayout()
	session := fat.NewRecoverySession([]fat.Candidate{{Layout: layout}})
	require.NoError(t, session.Select(0))

	err := session.Confirm("nah", make([]byte, 512))
	require.ErrorIs(t, err, fat.ErrUserCancelled)
	require.Equal(t, fat.StateCandidateSelection, session.State)
}

func TestRecoverySession_VerifyFailureOffersRollback(t *testing.T) {
	layout := clean20MiBLayout()
	other := clean20MiBLayout()
	session := fat.NewRecoverySession([]fat.Candidate{{Layout: layout}, {Layout: other}})
	require.NoError(t, session.Select(0))

	backup := bytes.Repeat([]byte{0xAB}, 512)
	require.NoError(t, session.Confirm("yes", backup))

	garbage := make([]byte, 512) // all-zero, fails ParseBootSector's ZeroField check
	rollback, ok := session.Verify(garbage)
	require.False(t, ok)
	require.Equal(t, backup, rollback)
	require.Equal(t, fat.StateCandidateSelection, session.State)
}

func TestDiscoverBackupBootSectors_FindsIntactSignatureAtConventionalOffset(t *testing.T) {
	// The backup's geometry must agree with the fake device's size, or
	// validation rejects it as a DeviceSizeMismatch.
	layout := &fat.Layout{
		BytesPerSector:    512,
		SectorsPerCluster: 1,
		ReservedSectors:   1,
		NumFATs:           1,
		SectorsPerFAT:     1,
		RootEntries:       16,
		TotalSectors:      100,
		MediaDescriptor:   0xF8,
	}
	sector := fat.EncodeBootSector(layout, nil)

	dev := make([]byte, 100*512)
	copy(dev[6*512:], sector)

	candidates, err := fat.DiscoverBackupBootSectors(bytes.NewReader(dev), 512, int64(len(dev)))
	require.NoError(t, err)
	require.NotEmpty(t, candidates)
	require.Equal(t, "backup-sector:6", candidates[0].Source)
}

func TestDiscoverBackupBootSectors_SkipsMissingSignature(t *testing.T) {
	dev := make([]byte, 100*512)
	candidates, err := fat.DiscoverBackupBootSectors(bytes.NewReader(dev), 512, int64(len(dev)))
	require.NoError(t, err)
	require.Empty(t, candidates)
}

func TestSearchParameters_FindsPlausibleCandidateOverKnownContent(t *testing.T) {
	// A synthetic disk with a plausible FAT[0] byte pattern and a known
	// directory name string scattered across the likely root-dir region.
	deviceSize := int64(64 * 1024 * 1024)
	dev := make([]byte, deviceSize)
	for _, off := range []int{512, 1024, 2048, 4096} {
		dev[off] = 0xF8
		dev[off+1] = 0xFF
	}
	for _, off := range []int{20000, 40000, 80000, 160000} {
		copy(dev[off:], []byte("WINDOWS"))
	}

	candidates, err := fat.SearchParameters(bytes.NewReader(dev), deviceSize, fat.FAT16)
	require.NoError(t, err)
	require.NotEmpty(t, candidates)
	// Scores must never increase down the ranked list.
	for i := 1; i < len(candidates); i++ {
		require.LessOrEqual(t, candidates[i].Score, candidates[i-1].Score)
	}
}

func TestSearchParameters_NoDeviceSizeYieldsNoCandidate(t *testing.T) {
	_, err := fat.SearchParameters(bytes.NewReader(nil), 0, fat.FAT16)
	require.ErrorIs(t, err, fat.ErrNoCandidate)
}
