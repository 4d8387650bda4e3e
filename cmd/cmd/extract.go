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
	"path/filepath"
	"strings"

	"github.com/kantai/fatrescue/internal/disk"
	"github.com/kantai/fatrescue/internal/fat"
	"github.com/kantai/fatrescue/internal/recover"
	"github.com/spf13/cobra"
)

func DefineExtractCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <device> <path>",
		Short: "Extract a live file from a FAT volume",
		Long: `The 'extract' command walks the directory tree to <path> (slash
separated, e.g. "DOCS/REPORT.TXT") and writes its recovered contents to
stdout, or to a file named with -o.`,
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE:         RunExtract,
	}
	cmd.Flags().StringP("output", "o", "", "file to write the recovered data to (default: stdout)")
	return cmd
}

func RunExtract(cmd *cobra.Command, args []string) error {
	path := disk.NormalizeVolumePath(args[0])
	filePath := args[1]

	dev, err := disk.OpenDevice(path, false)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer dev.Close()

	vol, err := recover.OpenVolume(dev)
	if err != nil {
		return err
	}

	root, err := vol.BuildTree()
	if err != nil {
		return fmt.Errorf("walking directory tree: %w", err)
	}

	data, warning, err := vol.ExtractPath(root, filePath)
	if err != nil {
		return fmt.Errorf("extracting %s: %w", filePath, err)
	}
	if warning != "" {
		fmt.Fprintf(os.Stderr, "warning: %s\n", warning)
	}

	outPath, _ := cmd.Flags().GetString("output")
	if outPath == "" {
		_, err := os.Stdout.Write(data)
		return err
	}

	if st, err := os.Stat(outPath); err == nil && st.IsDir() {
		outPath = filepath.Join(outPath, filepath.Base(strings.ReplaceAll(filePath, "\\", "/")))
	}
	if _, err := os.Stat(outPath); err == nil {
		return fmt.Errorf("%w: %s", fat.ErrOutputExists, outPath)
	}
	return os.WriteFile(outPath, data, 0644)
}
