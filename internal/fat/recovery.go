// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
package fat

import (
	"bytes"
	"io"
	"math"
	"sort"

	"github.com/hashicorp/go-multierror"
)

// backupSectors are the conventional backup-BPB locations for FAT32 and
// legacy floppies.
var backupSectors = []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 12}

// Candidate is one hypothesized Layout produced by boot-sector recovery,
// along with the score it was assigned during parameter search (zero for
// backup-discovery candidates, which are accepted outright rather than
// scored).
type Candidate struct {
	Layout *Layout
	Source string // "backup-sector:<n>" or "parameter-search"
	Score  int
}

// DiscoverBackupBootSectors reads sectors 1-9 plus 12, accepts any whose
// signature is intact and whose bps/spc/num_fats fall in the valid sets,
// and returns those consistent with the observed device size, in
// ascending sector order.
func DiscoverBackupBootSectors(dev io.ReaderAt, bytesPerSector int, deviceSize int64) ([]Candidate, error) {
	var out []Candidate
	var errs *multierror.Error

	for _, sector := range backupSectors {
		buf := make([]byte, bootSectorSize)
		off := sector * int64(bytesPerSector)
		if _, err := dev.ReadAt(buf, off); err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		if buf[510] != 0x55 || buf[511] != 0xAA {
			continue
		}

		layout, err := ParseBootSector(buf)
		if err != nil {
			continue
		}
		if !isInValidSet(layout.BytesPerSector, ValidBytesPerSector) ||
			!isInValidSet(layout.SectorsPerCluster, ValidSectorsPerCluster) ||
			!isInValidSet(layout.NumFATs, ValidNumFATs) {
			continue
		}

		findings := Validate(layout, deviceSize)
		if HasFatalFindings(findings) {
			continue
		}

		out = append(out, Candidate{Layout: layout, Source: sectorLabel(sector)})
	}

	return out, errs.ErrorOrNil()
}

func sectorLabel(n int64) string {
	return "backup-sector:" + itoa(uint32(n))
}

func isInValidSet[T comparable](v T, set []T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

var knownDirectoryNames = []string{"SYSTEM", "WINDOWS", "PROGRAM", "CONFIG", "DOS"}

// SearchParameters brute-forces the Cartesian product of plausible BPB
// fields, rejects any combination whose derived FATVariant disagrees with
// the variant it was built for, scores the rest against the disk's actual
// content, and returns every surviving candidate sorted best-first. Ties
// are broken deterministically, first in favour of preferredVariant, then
// lexicographically on (bps, spc, num_fats, reserved, fat_variant), so two
// runs over the same disk always propose the same candidate.
func SearchParameters(dev io.ReaderAt, deviceSize int64, preferredVariant Variant) ([]Candidate, error) {
	var candidates []Candidate

	bpsSet := ValidBytesPerSector
	spcSet := ValidSectorsPerCluster
	variants := []Variant{FAT12, FAT16, FAT32}

	for _, bps := range bpsSet {
		totalSectors := deviceSize / int64(bps)
		if totalSectors <= 0 {
			continue
		}
		for _, spc := range spcSet {
			for reserved := uint16(1); reserved <= 2; reserved++ {
				for numFATs := uint8(1); numFATs <= 2; numFATs++ {
					for _, variant := range variants {
						layout := buildSearchLayout(bps, spc, reserved, numFATs, uint32(totalSectors), variant)
						if layout.FATVariant() != variant {
							continue // self-inconsistent hypothesis, reject
						}
						if layout.DataRegionStart() >= layout.TotalSectors {
							continue
						}

						score, err := scoreCandidate(dev, layout)
						if err != nil {
							continue
						}

						candidates = append(candidates, Candidate{
							Layout: layout,
							Source: "parameter-search",
							Score:  score,
						})
					}
				}
			}
		}
	}

	if len(candidates) == 0 {
		return nil, ErrNoCandidate
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Layout.FATVariant() == preferredVariant && b.Layout.FATVariant() != preferredVariant {
			return true
		}
		if a.Layout.FATVariant() != preferredVariant && b.Layout.FATVariant() == preferredVariant {
			return false
		}
		return lessLexicographic(a.Layout, b.Layout)
	})

	return candidates, nil
}

func lessLexicographic(a, b *Layout) bool {
	if a.BytesPerSector != b.BytesPerSector {
		return a.BytesPerSector < b.BytesPerSector
	}
	if a.SectorsPerCluster != b.SectorsPerCluster {
		return a.SectorsPerCluster < b.SectorsPerCluster
	}
	if a.NumFATs != b.NumFATs {
		return a.NumFATs < b.NumFATs
	}
	if a.ReservedSectors != b.ReservedSectors {
		return a.ReservedSectors < b.ReservedSectors
	}
	return a.FATVariant() < b.FATVariant()
}

func buildSearchLayout(bps uint16, spc uint8, reserved uint16, numFATs uint8, totalSectors uint32, variant Variant) *Layout {
	rootEntries := uint16(512)
	if variant == FAT32 {
		rootEntries = 0
	}

	clustersGuess := totalSectors / uint32(spc)
	entrySize := variant.EntrySize()
	sectorsPerFat := uint32(math.Ceil(float64(clustersGuess) * entrySize / float64(bps) * 1.1))
	if sectorsPerFat < 1 {
		sectorsPerFat = 1
	}

	return &Layout{
		BytesPerSector:    bps,
		SectorsPerCluster: spc,
		ReservedSectors:   reserved,
		NumFATs:           numFATs,
		RootEntries:       rootEntries,
		TotalSectors:      totalSectors,
		MediaDescriptor:   0xF8,
		SectorsPerFAT:     sectorsPerFat,
		SignatureValid:    false,
	}
}

// scoreCandidate weighs a hypothesis against the disk's actual content:
// FAT[0] media-descriptor match, FAT-region entropy, fraction of
// structurally valid root-directory entries, and well-known directory
// name strings.
func scoreCandidate(dev io.ReaderAt, layout *Layout) (int, error) {
	score := 0

	fatOff := int64(layout.FATRegionStart()) * int64(layout.BytesPerSector)
	fatLen := int(layout.SectorsPerFAT) * int(layout.BytesPerSector)
	if fatLen > 1<<20 {
		fatLen = 1 << 20 // cap the read; entropy/pattern signals don't need the whole table
	}
	fatBuf := make([]byte, fatLen)
	n, err := dev.ReadAt(fatBuf, fatOff)
	if err != nil && err != io.EOF {
		return 0, err
	}
	fatBuf = fatBuf[:n]
	if len(fatBuf) < 4 {
		return 0, nil
	}

	if fatBuf[0] == layout.MediaDescriptor && fatBuf[1] == 0xFF {
		score += 10
	}

	zeros, ffs := 0, 0
	for _, b := range fatBuf {
		if b == 0x00 {
			zeros++
		}
		if b == 0xFF {
			ffs++
		}
	}
	if len(fatBuf) > 0 {
		zeroFrac := float64(zeros) / float64(len(fatBuf))
		ffFrac := float64(ffs) / float64(len(fatBuf))
		if zeroFrac < 0.9 && ffFrac < 0.9 {
			score += 5
		}
	}

	rootOff := int64(layout.RootDirStart()) * int64(layout.BytesPerSector)
	rootLen := int(layout.RootDirSectors()) * int(layout.BytesPerSector)
	if rootLen == 0 {
		rootLen = int(layout.BytesPerCluster())
		rootOff = layout.ClusterOffsetSectors(2) * int64(layout.BytesPerSector)
	}
	rootBuf := make([]byte, rootLen)
	n, err = dev.ReadAt(rootBuf, rootOff)
	if err != nil && err != io.EOF {
		return score, nil
	}
	rootBuf = rootBuf[:n]

	validFrac := fracValidRootEntries(rootBuf)
	score += int(validFrac * 20)

	for _, name := range knownDirectoryNames {
		if bytes.Contains(rootBuf, []byte(name)) {
			score += 5
		}
	}

	return score, nil
}

func fracValidRootEntries(buf []byte) float64 {
	total, valid := 0, 0
	for off := 0; off+direntSize <= len(buf); off += direntSize {
		rec := buf[off : off+direntSize]
		total++
		b0 := rec[0]
		attr := rec[11]
		printable := b0 >= 0x20 && b0 < 0x7F
		if b0 == 0x00 || b0 == 0xE5 || printable {
			if attr == AttrLongName || attr&0xC0 == 0 {
				valid++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(valid) / float64(total)
}

// Recovery state machine: Scan -> CandidateSelection ->
// UserConfirm -> Write -> Verify. Failure at any point returns to
// CandidateSelection (if more candidates remain) or terminates with no
// write performed.
type RecoveryState int

const (
	StateScan RecoveryState = iota
	StateCandidateSelection
	StateUserConfirm
	StateWrite
	StateVerify
	StateDone
	StateAborted
)

// RecoverySession drives the state machine. Write is atomic at sector
// granularity: EncodeBootSector buffers the entire new sector and only
// the single final write touches the device.
type RecoverySession struct {
	State      RecoveryState
	Candidates []Candidate
	Selected   *Candidate
	Backup     []byte // old sector 0, captured before Write
}

// NewRecoverySession starts a session already holding candidates found by
// backup discovery and/or parameter search.
func NewRecoverySession(candidates []Candidate) *RecoverySession {
	state := StateCandidateSelection
	if len(candidates) == 0 {
		state = StateAborted
	}
	return &RecoverySession{State: state, Candidates: candidates}
}

// Select moves CandidateSelection -> UserConfirm.
func (s *RecoverySession) Select(idx int) error {
	if s.State != StateCandidateSelection {
		return ErrUserCancelled
	}
	if idx < 0 || idx >= len(s.Candidates) {
		return ErrNoCandidate
	}
	s.Selected = &s.Candidates[idx]
	s.State = StateUserConfirm
	return nil
}

// Confirm requires an exact confirmation token ("yes"/"y",
// case-insensitive) and moves UserConfirm -> Write. oldSector0 is
// captured as the rollback backup before any write happens.
func (s *RecoverySession) Confirm(token string, oldSector0 []byte) error {
	if s.State != StateUserConfirm {
		return ErrUserCancelled
	}
	t := normalizeToken(token)
	if t != "yes" && t != "y" {
		s.State = StateCandidateSelection
		return ErrUserCancelled
	}
	s.Backup = append([]byte(nil), oldSector0...)
	s.State = StateWrite
	return nil
}

// PrepareWrite buffers the full new sector 0 without touching the
// device; the caller issues the one write, never a partial stream.
func (s *RecoverySession) PrepareWrite(template []byte) []byte {
	return EncodeBootSector(s.Selected.Layout, template)
}

// MarkWritten moves Write -> Verify after the caller has issued the
// single device write.
func (s *RecoverySession) MarkWritten() {
	s.State = StateVerify
}

// Verify re-parses the written sector; on failure it offers the captured
// backup for rollback by returning it, and resets to CandidateSelection
// if candidates remain.
func (s *RecoverySession) Verify(writtenSector []byte) (rollback []byte, ok bool) {
	layout, err := ParseBootSector(writtenSector)
	if err != nil || HasFatalFindings(Validate(layout, 0)) {
		if len(s.Candidates) > 1 {
			s.State = StateCandidateSelection
		} else {
			s.State = StateAborted
		}
		return s.Backup, false
	}
	s.State = StateDone
	return nil, true
}

func normalizeToken(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}
