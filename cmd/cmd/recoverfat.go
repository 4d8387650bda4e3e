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
package cmd

import (
	"fmt"

	"github.com/kantai/fatrescue/internal/disk"
	"github.com/kantai/fatrescue/internal/recover"
	"github.com/spf13/cobra"
)

func DefineRecoverFATCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recover-fat <device>",
		Short: "Compare a volume's FAT copies and repair the damaged one",
		Long: `The 'recover-fat' command byte-compares every FAT copy a volume
declares, reports disagreements, and (with --write) overwrites the
non-preferred copies with the one picked by the media-descriptor
heuristic.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         RunRecoverFAT,
	}
	cmd.Flags().Bool("write", false, "overwrite disagreeing FAT copies with the preferred one")
	return cmd
}

func RunRecoverFAT(cmd *cobra.Command, args []string) error {
	path := disk.NormalizeVolumePath(args[0])
	write, _ := cmd.Flags().GetBool("write")

	dev, err := disk.OpenDevice(path, write)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer dev.Close()

	vol, err := recover.OpenVolume(dev)
	if err != nil {
		return err
	}

	diff, ok := vol.CompareFATCopies()
	if ok {
		fmt.Println("FAT copies agree")
		return nil
	}
	fmt.Printf("FAT copies disagree in %d bytes\n", diff.DiffCount)
	for i, off := range diff.FirstOffsets {
		fmt.Printf("  offset %d: %#x vs %#x\n", off, diff.FirstValuesA[i], diff.FirstValuesB[i])
	}

	if !write {
		fmt.Println("re-run with --write to repair the damaged copies")
		return nil
	}

	l := vol.Layout
	fatSize := int64(l.SectorsPerFAT) * int64(l.BytesPerSector)
	fatStartSector := int64(l.FATRegionStart())
	sectorsPerFAT := int64(l.SectorsPerFAT)

	for i := range vol.FATCopies {
		if i == vol.PreferredCopy {
			continue
		}
		copyStart := fatStartSector + int64(i)*sectorsPerFAT
		for s := int64(0); s < sectorsPerFAT; s++ {
			off := s * int64(l.BytesPerSector)
			end := off + int64(l.BytesPerSector)
			if end > fatSize {
				end = fatSize
			}
			if err := dev.WriteSector(copyStart+s, vol.FAT[off:end]); err != nil {
				return fmt.Errorf("writing FAT copy %d sector %d: %w", i, s, err)
			}
		}
	}
	fmt.Println("repaired disagreeing FAT copies")
	return nil
}
