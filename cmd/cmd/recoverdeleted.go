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
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kantai/fatrescue/internal/disk"
	"github.com/kantai/fatrescue/internal/fat"
	"github.com/kantai/fatrescue/internal/recover"
	"github.com/kantai/fatrescue/pkg/dfxml"
	"github.com/spf13/cobra"
)

func DefineRecoverDeletedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recover-deleted <device> <report>",
		Short: "Recover deleted files named by a scan-deleted report",
		Long: `The 'recover-deleted' command re-extracts every candidate named in a
report written by 'scan-deleted', on the assumption that the file's
clusters are still contiguous and unallocated. This is best-effort: there
is no guarantee the data wasn't fragmented or overwritten.`,
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE:         RunRecoverDeleted,
	}
	cmd.Flags().StringP("output-dir", "o", "", "directory to write recovered files to")
	return cmd
}

func RunRecoverDeleted(cmd *cobra.Command, args []string) error {
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

	reportFile, err := os.Open(args[1])
	if err != nil {
		return err
	}
	defer reportFile.Close()

	objects, err := dfxml.ReadFileObjects(bufio.NewReader(reportFile))
	if err != nil {
		return err
	}

	outDir, _ := cmd.Flags().GetString("output-dir")
	if outDir == "" {
		outDir = "recovered"
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}

	recovered := 0
	for _, obj := range objects {
		if len(obj.ByteRuns.Runs) == 0 {
			continue
		}
		run := obj.ByteRuns.Runs[0]
		candidate := fat.RecoverableCandidate{
			StartCluster: uint32(run.Offset),
			Size:         uint32(run.Length),
		}
		data, err := vol.ExtractDeleted(candidate)
		if err != nil {
			fmt.Printf("skipping %s: %v\n", obj.Filename, err)
			continue
		}
		name := filepath.Base(obj.Filename)
		if err := recover.DumpFile(outDir, name, bytes.NewReader(data)); err != nil {
			return err
		}
		recovered++
	}

	fmt.Printf("recovered %d of %d candidates\n", recovered, len(objects))
	return nil
}
