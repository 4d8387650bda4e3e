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
package recover

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/kantai/fatrescue/internal/disk"
	"github.com/kantai/fatrescue/internal/fat"
)

// BootRecoveryDriver drives a fat.RecoverySession against a live
// disk.BlockDevice, performing the actual reads/writes the state machine
// itself stays agnostic of.
type BootRecoveryDriver struct {
	Dev     disk.BlockDevice
	Session *fat.RecoverySession
}

// StartBootRecovery runs C3's discovery phase: backup-BPB search plus a
// parameter-search fallback, merges the two candidate lists, and returns a
// driver positioned at StateCandidateSelection (or StateAborted if
// nothing plausible was found).
func StartBootRecovery(ctx context.Context, dev disk.BlockDevice, preferredVariant fat.Variant) (*BootRecoveryDriver, error) {
	backups, err := fat.DiscoverBackupBootSectors(dev, int(dev.SectorSize()), dev.Size())
	if err != nil {
		return nil, fmt.Errorf("searching backup boot sectors: %w", err)
	}

	searched, err := fat.SearchParameters(dev, dev.Size(), preferredVariant)
	if err != nil && !errors.Is(err, fat.ErrNoCandidate) {
		return nil, fmt.Errorf("searching boot sector parameters: %w", err)
	}

	candidates := append(backups, searched...)
	session := fat.NewRecoverySession(candidates)

	return &BootRecoveryDriver{Dev: dev, Session: session}, nil
}

// Select picks candidate idx, moving the session to StateUserConfirm.
func (d *BootRecoveryDriver) Select(idx int) error {
	return d.Session.Select(idx)
}

// Confirm reads the current sector 0, asks the session to validate the
// user's confirmation token against it, and advances to StateWrite.
func (d *BootRecoveryDriver) Confirm(token string) error {
	var oldSector0 [512]byte
	if _, err := d.Dev.ReadAt(oldSector0[:], 0); err != nil && err != io.EOF {
		return fmt.Errorf("reading current boot sector: %w", err)
	}
	return d.Session.Confirm(token, oldSector0[:])
}

// Write encodes the selected candidate's Layout over the backed-up sector
// 0 and writes it to the device.
func (d *BootRecoveryDriver) Write() error {
	newSector := d.Session.PrepareWrite(d.Session.Backup)
	if err := d.Dev.WriteSector(0, newSector); err != nil {
		return fmt.Errorf("writing recovered boot sector: %w", err)
	}
	d.Session.MarkWritten()
	return nil
}

// Verify re-reads sector 0 after the write and checks it matches what was
// written. On mismatch it returns the pre-write backup so the caller can
// offer to roll back.
func (d *BootRecoveryDriver) Verify() (rollback []byte, ok bool, err error) {
	var written [512]byte
	if _, err := d.Dev.ReadAt(written[:], 0); err != nil && err != io.EOF {
		return nil, false, fmt.Errorf("reading written boot sector: %w", err)
	}
	rollback, ok = d.Session.Verify(written[:])
	return rollback, ok, nil
}

// Rollback restores the pre-recovery sector 0.
func (d *BootRecoveryDriver) Rollback(backup []byte) error {
	return d.Dev.WriteSector(0, backup)
}
