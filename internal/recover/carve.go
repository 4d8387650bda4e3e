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
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kantai/fatrescue/internal/disk"
	"github.com/kantai/fatrescue/internal/env"
	"github.com/kantai/fatrescue/internal/fat"
	"github.com/kantai/fatrescue/internal/format"
	"github.com/kantai/fatrescue/pkg/dfxml"
	ioutil "github.com/kantai/fatrescue/pkg/util/io"
)

const defaultScanBufferSize = 4 * 1024 * 1024

// CarveOptions configures a signature-based carve over a raw byte range,
// independent of any FAT structure.
type CarveOptions struct {
	DumpDir        string
	ReportFile     string
	MaxScanSize    uint64
	ScanBufferSize int
	BlockSize      int
	FileExt        []string
	Logger         *slog.Logger
}

// CarveResult summarizes one carve run. GuessedBlockSize is the
// allocation block size implied by the alignment of the carved files'
// offsets — on a formatted volume that is usually the lost filesystem's
// cluster size. Zero when nothing was found.
type CarveResult struct {
	FilesFound       int
	TotalDataSize    uint64
	GuessedBlockSize uint64
	ReportPath       string
	Duration         time.Duration
}

// Carve scans r (size bytes, typically a disk.BlockDevice or a
// disk.PartitionView) for known file signatures, optionally dumping
// recovered files to opts.DumpDir and always writing a DFXML session
// report.
func Carve(r io.ReaderAt, size uint64, imagePath string, opts CarveOptions) (*CarveResult, error) {
	headers, err := format.FileHeaders(opts.FileExt...)
	if err != nil {
		return nil, err
	}
	registry := format.BuildFileRegistry(headers...)

	blockSize := opts.BlockSize
	if blockSize <= 0 {
		blockSize = disk.DefaultSectorSize
	}
	bufferSize := opts.ScanBufferSize
	if bufferSize <= 0 {
		bufferSize = defaultScanBufferSize
	}

	reportPath := opts.ReportFile
	if reportPath == "" {
		reportPath = fmt.Sprintf("report_%s.xml", sessionID())
	}

	reportFile, err := os.Create(reportPath)
	if err != nil {
		return nil, err
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
			ImageFilename: imagePath,
			SectorSize:    blockSize,
			ImageSize:     size,
		},
	})
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	scanSize := size
	if opts.MaxScanSize > 0 {
		scanSize = min(scanSize, opts.MaxScanSize)
	}

	if opts.DumpDir != "" {
		if err := os.MkdirAll(opts.DumpDir, 0755); err != nil {
			return nil, err
		}
	}

	sc := format.NewScanner(logger, registry, bufferSize, blockSize)

	start := time.Now()
	result := &CarveResult{ReportPath: reportPath}
	var offsets []uint64

	for finfo := range sc.Scan(r, scanSize) {
		result.FilesFound++
		result.TotalDataSize += finfo.Size
		offsets = append(offsets, finfo.Offset)

		if opts.DumpDir != "" {
			fileReader := io.NewSectionReader(r, int64(finfo.Offset), int64(finfo.Size))
			if err := DumpFile(opts.DumpDir, finfo.Name, fileReader); err != nil {
				return result, err
			}
		}

		err := writer.WriteFileObject(dfxml.FileObject{
			Filename: finfo.Name,
			FileSize: finfo.Size,
			ByteRuns: dfxml.ByteRuns{
				Runs: []dfxml.ByteRun{{
					Offset:    finfo.Offset,
					ImgOffset: finfo.Offset,
					Length:    finfo.Size,
				}},
			},
		})
		if err != nil {
			logger.Error("unable to write report entry", "err", err)
		}
	}

	if len(offsets) > 0 {
		result.GuessedBlockSize, _ = disk.GuessBlockSize(offsets)
	}

	result.Duration = time.Since(start)
	return result, nil
}

// DumpFile writes the bytes read from r to dumpDir/fileName. An existing
// file at that path is never overwritten: recovery output always lands on
// a fresh path or fails.
func DumpFile(dumpDir, fileName string, r io.Reader) error {
	path := filepath.Join(dumpDir, fileName)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", fat.ErrOutputExists, path)
	}
	return ioutil.CopyFile(path, r)
}

// RecoverFromReport re-extracts every file object named in a previously
// written DFXML report, replaying a prior carve session without
// re-scanning the image.
func RecoverFromReport(img io.ReaderAt, report io.Reader, outDir string) (int, error) {
	objects, err := dfxml.ReadFileObjects(bufio.NewReader(report))
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return 0, err
	}

	recovered := 0
	for _, obj := range objects {
		if len(obj.ByteRuns.Runs) == 0 {
			continue
		}
		run := obj.ByteRuns.Runs[0]
		r := io.NewSectionReader(img, int64(run.ImgOffset), int64(run.Length))
		if err := DumpFile(outDir, sanitizeName(obj.Filename), r); err != nil {
			return recovered, err
		}
		recovered++
	}
	return recovered, nil
}

func sanitizeName(name string) string {
	return strings.ReplaceAll(strings.ReplaceAll(name, "/", "_"), "\\", "_")
}

func sessionID() string {
	return time.Now().Format("20060102_150405")
}
