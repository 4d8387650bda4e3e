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
	"fmt"
	"slices"
)

// ValidationFinding describes one reason a Layout may be unsound. Validate
// never short-circuits: it returns every finding it can produce so the
// presenter can show the user the whole picture.
type ValidationFinding struct {
	Kind    string
	Message string
}

func (f ValidationFinding) String() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Validate checks a Layout's fields against the valid sets and, when
// deviceSize is nonzero, against the observed device size (5% tolerance).
// It never returns an error; a Layout that fails every check
// still yields a (long) finding list rather than failing outright.
func Validate(l *Layout, deviceSize int64) []ValidationFinding {
	var findings []ValidationFinding

	if !slices.Contains(ValidBytesPerSector, l.BytesPerSector) {
		findings = append(findings, ValidationFinding{
			Kind:    "InvalidBytesPerSector",
			Message: fmt.Sprintf("%d is not one of %v", l.BytesPerSector, ValidBytesPerSector),
		})
	}

	if !slices.Contains(ValidSectorsPerCluster, l.SectorsPerCluster) {
		findings = append(findings, ValidationFinding{
			Kind:    "InvalidSectorsPerCluster",
			Message: fmt.Sprintf("%d is not one of %v", l.SectorsPerCluster, ValidSectorsPerCluster),
		})
	}

	if !slices.Contains(ValidNumFATs, l.NumFATs) {
		findings = append(findings, ValidationFinding{
			Kind:    "InvalidNumFATs",
			Message: fmt.Sprintf("%d is not 1 or 2", l.NumFATs),
		})
	}

	variant := l.FATVariant()
	if variant == FAT32 {
		if l.ReservedSectors < FAT32MinReservedSectors {
			findings = append(findings, ValidationFinding{
				Kind:    "ReservedSectorsTooSmall",
				Message: fmt.Sprintf("%d reserved sectors, want >= %d for FAT32", l.ReservedSectors, FAT32MinReservedSectors),
			})
		}
	} else if l.ReservedSectors < 1 {
		findings = append(findings, ValidationFinding{
			Kind:    "ReservedSectorsTooSmall",
			Message: "reserved sectors must be >= 1",
		})
	}

	if variant != FAT32 && l.RootEntries == 0 {
		findings = append(findings, ValidationFinding{
			Kind:    "ZeroRootEntries",
			Message: "root_entries == 0 is invalid for FAT12/FAT16",
		})
	}

	if !slices.Contains(ValidMediaDescriptors, l.MediaDescriptor) {
		findings = append(findings, ValidationFinding{
			Kind:    "InvalidMediaDescriptor",
			Message: fmt.Sprintf("0x%02X is not a recognized media descriptor", l.MediaDescriptor),
		})
	}

	if l.TotalSectors > 0 && l.DataRegionStart()+uint32(l.SectorsPerCluster) > l.TotalSectors {
		findings = append(findings, ValidationFinding{
			Kind:    "LayoutOverflow",
			Message: fmt.Sprintf("data region starts at sector %d of %d; no room for a single cluster", l.DataRegionStart(), l.TotalSectors),
		})
	}

	if deviceSize > 0 && l.BytesPerSector > 0 {
		expectedSectors := deviceSize / int64(l.BytesPerSector)
		if expectedSectors > 0 {
			diff := int64(l.TotalSectors) - expectedSectors
			if diff < 0 {
				diff = -diff
			}
			diffPercent := float64(diff) / float64(expectedSectors) * 100
			if diffPercent > 5 {
				findings = append(findings, ValidationFinding{
					Kind:    "DeviceSizeMismatch",
					Message: fmt.Sprintf("total_sectors=%d but device implies %d (%.1f%% off)", l.TotalSectors, expectedSectors, diffPercent),
				})
			}
		}
	}

	if !l.SignatureValid {
		findings = append(findings, ValidationFinding{
			Kind:    "BadSignatureWarning",
			Message: "0x55AA boot sector signature missing or corrupt",
		})
	}

	return findings
}

// HasFatalFindings reports whether findings contains anything beyond the
// non-fatal BadSignatureWarning kind — i.e. whether recovery (C3) should
// be offered.
func HasFatalFindings(findings []ValidationFinding) bool {
	for _, f := range findings {
		if f.Kind != "BadSignatureWarning" {
			return true
		}
	}
	return false
}
