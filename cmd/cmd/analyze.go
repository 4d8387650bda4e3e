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
	"os"
	"text/tabwriter"

	"github.com/kantai/fatrescue/internal/disk"
	"github.com/kantai/fatrescue/internal/recover"
	"github.com/kantai/fatrescue/pkg/util/format"
	"github.com/spf13/cobra"
)

func DefineAnalyzeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <device>",
		Short: "Parse and validate a FAT volume's boot sector",
		Long: `The 'analyze' command parses the boot sector of a FAT12/16/32 volume,
derives its layout, and reports every validation finding:
bad signature, impossible geometry, device size mismatches, and the like.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         RunAnalyze,
	}
	cmd.Flags().Bool("partitions", false, "list the device's MBR partitions instead of analyzing a volume")
	cmd.Flags().Int("partition", -1, "analyze the Nth MBR partition rather than treating the device as a bare volume")
	return cmd
}

func RunAnalyze(cmd *cobra.Command, args []string) error {
	path := disk.NormalizeVolumePath(args[0])

	dev, err := disk.OpenDevice(path, false)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer dev.Close()

	if listParts, _ := cmd.Flags().GetBool("partitions"); listParts {
		return printPartitions(cmd, dev)
	}

	var target disk.BlockDevice = dev
	if idx, _ := cmd.Flags().GetInt("partition"); idx >= 0 {
		parts, err := disk.ScanPartitions(cmd.Context(), dev)
		if err != nil {
			return fmt.Errorf("scanning partitions: %w", err)
		}
		part, err := pickPartition(parts, idx)
		if err != nil {
			return err
		}
		target = disk.NewPartitionView(dev, part.Offset, part.Size)
	}

	vol, err := recover.OpenVolume(target)
	if err != nil {
		return err
	}

	l := vol.Layout
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "OEM name:\t%s\n", l.OEMName)
	fmt.Fprintf(w, "Volume label:\t%s\n", l.VolumeLabel)
	fmt.Fprintf(w, "Filesystem type:\t%s\n", l.FileSystemType)
	fmt.Fprintf(w, "FAT variant:\t%s\n", l.FATVariant())
	fmt.Fprintf(w, "Bytes per sector:\t%d\n", l.BytesPerSector)
	fmt.Fprintf(w, "Sectors per cluster:\t%d\n", l.SectorsPerCluster)
	fmt.Fprintf(w, "Bytes per cluster:\t%s\n", format.FormatBytes(int64(l.BytesPerCluster())))
	fmt.Fprintf(w, "Number of FATs:\t%d\n", l.NumFATs)
	fmt.Fprintf(w, "Sectors per FAT:\t%d\n", l.SectorsPerFAT)
	fmt.Fprintf(w, "Total clusters:\t%d\n", l.TotalClusters())
	fmt.Fprintf(w, "Total size:\t%s\n", format.FormatBytes(int64(l.TotalSectors)*int64(l.BytesPerSector)))
	fmt.Fprintf(w, "Boot signature valid:\t%t\n", l.SignatureValid)
	if err := w.Flush(); err != nil {
		return err
	}

	if diff, ok := vol.CompareFATCopies(); !ok {
		fmt.Printf("\nwarning: FAT copies disagree in %d bytes\n", diff.DiffCount)
	}

	if len(vol.Findings) == 0 {
		fmt.Println("\nno validation findings")
		return nil
	}

	fmt.Println("\nvalidation findings:")
	for _, f := range vol.Findings {
		fmt.Printf("  - %s\n", f)
	}
	return nil
}

// printPartitions lists the device's FAT-typed MBR partitions as
// Partition summaries, one row per slot.
func printPartitions(cmd *cobra.Command, dev disk.BlockDevice) error {
	discovered, err := disk.ScanPartitions(cmd.Context(), dev)
	if err != nil {
		return fmt.Errorf("scanning partitions: %w", err)
	}
	if len(discovered) == 0 {
		fmt.Println("no FAT-typed MBR partitions found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NUM\tTYPE\tOFFSET\tSIZE")
	for _, d := range discovered {
		p := disk.Partition{
			FSType:    disk.FSType(d.Type),
			Num:       d.Index,
			Offset:    uint64(d.Offset),
			Size:      uint64(d.Size),
			BlockSize: uint32(dev.SectorSize()),
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", p.Num, d.Type, p.Offset, format.FormatBytes(int64(p.Size)))
	}
	return w.Flush()
}

func pickPartition(parts []disk.DiscoveredPartition, idx int) (*disk.DiscoveredPartition, error) {
	for i := range parts {
		if parts[i].Index == idx {
			return &parts[i], nil
		}
	}
	return nil, fmt.Errorf("no FAT-typed partition with index %d (found %d)", idx, len(parts))
}
