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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kantai/fatrescue/internal/disk"
	"github.com/kantai/fatrescue/internal/format"
	"github.com/kantai/fatrescue/internal/fuse"
	"github.com/kantai/fatrescue/internal/recover"
	"github.com/kantai/fatrescue/pkg/dfxml"
	"github.com/spf13/cobra"
)

func DefineMountCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mount <image_path> [report_file]",
		Short: "Mount a disk image to a specified mountpoint",
		Long: `The 'mount' command mounts a disk image or device as a read-only FUSE filesystem.

With a report_file, the mount serves the flat byte-range file list recorded by
a previous carve: 'recovered_disk.img report.xml'.

Without a report_file, the mount instead parses the image's own FAT boot
sector and serves its live directory tree, so the volume's
files can be browsed and read directly without a separate extract step.`,
		Args:         cobra.RangeArgs(1, 2),
		SilenceUsage: true,
		RunE:         RunMount,
	}

	cmd.Flags().StringP("mountpoint", "m", "", "Absolute path to the directory where the filesystem will be mounted. If not specified, a default will be generated.")
	return cmd
}

func RunMount(cmd *cobra.Command, args []string) error {
	mountpoint, _ := cmd.Flags().GetString("mountpoint")

	if len(args) == 1 {
		if mountpoint == "" {
			mountpoint = getMountpoint(args[0])
		}
		return runMountVolume(args[0], mountpoint)
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	reportFile, err := os.Open(args[1])
	if err != nil {
		return err
	}
	defer reportFile.Close()

	if mountpoint == "" {
		mountpoint = getMountpoint(reportFile.Name())
	}

	objects, err := dfxml.ReadFileObjects(bufio.NewReader(reportFile))
	if err != nil {
		return err
	}

	finfos, err := fileObjectsToFileInfo(objects)
	if err != nil {
		return err
	}
	return fuse.Mount(mountpoint, f, finfos)
}

// runMountVolume opens path as a FAT volume, builds its live directory
// tree, and mounts that tree directly — as opposed to the flat list of
// byte ranges replayed from a DFXML carve report in the two-argument
// form above.
func runMountVolume(path, mountpoint string) error {
	normalized := disk.NormalizeVolumePath(path)

	dev, err := disk.OpenDevice(normalized, false)
	if err != nil {
		return fmt.Errorf("opening %s: %w", normalized, err)
	}
	defer dev.Close()

	vol, err := recover.OpenVolume(dev)
	if err != nil {
		return err
	}

	tree, err := vol.BuildTree()
	if err != nil {
		return fmt.Errorf("walking directory tree: %w", err)
	}

	return fuse.MountVolume(mountpoint, vol.Dev, vol.Layout, vol.FAT, tree)
}

// getMountpoint generates a mountpoint name from a report file name by stripping the extension.
// If the extension is empty, "_mnt" is added.
func getMountpoint(reportFileName string) string {
	baseName := filepath.Base(reportFileName)
	ext := filepath.Ext(baseName)
	baseName = strings.TrimSuffix(baseName, ext)
	mountpoint := baseName
	if ext == "" {
		mountpoint += "_mnt"
	}
	return mountpoint
}

func fileObjectsToFileInfo(objs []dfxml.FileObject) ([]format.FileInfo, error) {
	finfos := make([]format.FileInfo, len(objs))
	for i, o := range objs {
		runs := o.ByteRuns.Runs
		if len(runs) < 1 {
			return nil, fmt.Errorf("invalid report file")
		}

		finfos[i] = format.FileInfo{
			Name:   o.Filename,
			Offset: runs[0].Offset,
			Size:   runs[0].Length,
		}
	}
	return finfos, nil
}
