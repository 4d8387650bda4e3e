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
	"log/slog"
	"math"
	"os"
	"strings"

	"github.com/kantai/fatrescue/internal/disk"
	"github.com/kantai/fatrescue/internal/recover"
	"github.com/kantai/fatrescue/pkg/util/format"
	"github.com/spf13/cobra"
)

func DefineCarveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "carve <device>",
		Short: "Carve files by signature from a raw image or device",
		Long: `The 'carve' command scans a disk image or device for known file signatures,
independent of any FAT structure. It is the fallback recovery
path for volumes whose boot sector and FAT are both unrecoverable.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         RunCarve,
	}

	cmd.Flags().StringP("dump", "d", "", "dump the found files to the specified directory")
	cmd.Flags().String("block-size", "0", "use the specified block size during scanning")
	cmd.Flags().String("scan-buffer-size", "4MB", "the size of the scan buffer")
	cmd.Flags().String("max-scan-size", "", "max number of bytes to scan")
	cmd.Flags().StringSliceP("ext", "", nil, "file extensions to carve for")
	cmd.Flags().StringP("output", "o", "", "the path of the DFXML report file")
	cmd.Flags().Bool("no-log", false, "disable logging")

	return cmd
}

func RunCarve(cmd *cobra.Command, args []string) error {
	path := disk.NormalizeVolumePath(args[0])

	dev, err := disk.OpenDevice(path, false)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer dev.Close()

	dumpDir := cmd.Flag("dump").Value.String()
	reportFile, _ := cmd.Flags().GetString("output")
	fileExt, _ := cmd.Flags().GetStringSlice("ext")
	disableLog, _ := cmd.Flags().GetBool("no-log")

	opts := recover.CarveOptions{
		DumpDir:        dumpDir,
		ReportFile:     reportFile,
		BlockSize:      int(getBytes(cmd, "block-size")),
		ScanBufferSize: int(getBytes(cmd, "scan-buffer-size")),
		MaxScanSize:    getBytes(cmd, "max-scan-size"),
		FileExt:        fileExt,
	}
	if !disableLog {
		logLevel, _ := cmd.Flags().GetString("log-level")
		opts.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseSlogLevel(logLevel)}))
	}

	result, err := recover.Carve(dev, uint64(dev.Size()), path, opts)
	if err != nil {
		return err
	}

	fmt.Printf("found %d files (%s), report written to %s in %s\n",
		result.FilesFound, format.FormatBytes(int64(result.TotalDataSize)), result.ReportPath, result.Duration)
	if result.GuessedBlockSize > 0 {
		fmt.Printf("apparent allocation block size: %s\n", format.FormatBytes(int64(result.GuessedBlockSize)))
	}
	return nil
}

func getBytes(cmd *cobra.Command, name string) uint64 {
	s, _ := cmd.Flags().GetString(name)
	if s == "" {
		return 0
	}

	v, err := format.ParseBytes(s)
	if err != nil {
		return math.MaxUint64
	}
	return v
}

func parseSlogLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
