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
	"github.com/kantai/fatrescue/internal/env"
	"github.com/kantai/fatrescue/internal/recover"
	"github.com/kantai/fatrescue/pkg/dfxml"
	"github.com/spf13/cobra"
)

func DefineScanDeletedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan-deleted <device>",
		Short: "List deleted directory entries recoverable from a FAT volume",
		Long: `The 'scan-deleted' command walks every directory in the volume looking
for 0xE5-marked deleted entries, prints each as a candidate
with its guessed short/long name, start cluster, and size, and — with
-o — writes a DFXML report suitable for 'recover-deleted'.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         RunScanDeleted,
	}
	cmd.Flags().StringP("output", "o", "", "write a DFXML report of the candidates to this path")
	return cmd
}

func RunScanDeleted(cmd *cobra.Command, args []string) error {
	path := disk.NormalizeVolumePath(args[0])

	dev, err := disk.OpenDevice(path, false)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer dev.Close()

	vol, err := recover.OpenVolume(dev)
	if err != nil {
		return err
	}

	candidates, err := vol.ScanDeleted()
	if err != nil {
		return fmt.Errorf("scanning for deleted entries: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PATH\tNAME\tSTART CLUSTER\tSIZE")
	for _, c := range candidates {
		name := c.PossiblyLFN
		if name == "" {
			name = c.ShortNameWithUnderscore
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", c.Path, name, c.StartCluster, c.Size)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	reportPath, _ := cmd.Flags().GetString("output")
	if reportPath == "" {
		return nil
	}

	reportFile, err := os.Create(reportPath)
	if err != nil {
		return err
	}
	defer reportFile.Close()

	writer := dfxml.NewDFXMLWriter(reportFile)
	defer writer.Close()

	err = writer.WriteHeader(dfxml.DFXMLHeader{
		XmlOutput: dfxml.XmlOutputVersion,
		Metadata:  dfxml.DefaultMetadata,
		Creator: dfxml.Creator{
			Package:              env.AppName,
			Version:              env.Version,
			ExecutionEnvironment: dfxml.GetExecEnv(),
		},
		Source: dfxml.Source{
			ImageFilename: path,
			SectorSize:    int(vol.Layout.BytesPerSector),
			ImageSize:     uint64(dev.Size()),
		},
	})
	if err != nil {
		return err
	}

	for _, c := range candidates {
		name := c.PossiblyLFN
		if name == "" {
			name = c.ShortNameWithUnderscore
		}
		byteOffset := uint64(vol.Layout.ClusterOffsetSectors(c.StartCluster)) * uint64(vol.Layout.BytesPerSector)
		err := writer.WriteFileObject(dfxml.FileObject{
			Filename: c.Path + "/" + name,
			FileSize: uint64(c.Size),
			ByteRuns: dfxml.ByteRuns{
				Runs: []dfxml.ByteRun{{
					Offset:    uint64(c.StartCluster), // start cluster, not a byte offset: recover-deleted reads it back as the first cluster of a contiguous run
					ImgOffset: byteOffset,
					Length:    uint64(c.Size),
				}},
			},
		})
		if err != nil {
			return err
		}
	}
	return nil
}
