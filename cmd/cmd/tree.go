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
	"github.com/kantai/fatrescue/internal/fat"
	"github.com/kantai/fatrescue/internal/recover"
	"github.com/kantai/fatrescue/pkg/util/format"
	"github.com/spf13/cobra"
)

func DefineTreeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree <device>",
		Short: "Print the recovered directory tree of a FAT volume",
		Long: `The 'tree' command walks the root directory and every subdirectory it
finds, following cluster chains in the FAT, and prints the resulting
tree. Deleted entries are not shown; use 'scan-deleted'.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         RunTree,
	}
	return cmd
}

func RunTree(cmd *cobra.Command, args []string) error {
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

	root, err := vol.BuildTree()
	if err != nil {
		return fmt.Errorf("walking directory tree: %w", err)
	}

	printNode(root, "")
	return nil
}

func printNode(n *fat.DirNode, prefix string) {
	for i, c := range n.Children {
		last := i == len(n.Children)-1
		branch := "├── "
		nextPrefix := prefix + "│   "
		if last {
			branch = "└── "
			nextPrefix = prefix + "    "
		}

		if c.IsDirectory {
			fmt.Printf("%s%s%s/\n", prefix, branch, c.Name)
			printNode(c, nextPrefix)
		} else {
			fmt.Printf("%s%s%s (%s)\n", prefix, branch, c.Name, format.FormatBytes(int64(c.Size)))
		}
	}
}
