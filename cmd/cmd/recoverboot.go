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
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kantai/fatrescue/internal/disk"
	"github.com/kantai/fatrescue/internal/fat"
	"github.com/kantai/fatrescue/internal/recover"
	"github.com/spf13/cobra"
)

func DefineRecoverBootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recover-boot <device>",
		Short: "Recover a damaged FAT boot sector",
		Long: `The 'recover-boot' command searches backup BPB locations and, failing
that, brute-forces plausible BPB parameters, presents
the candidates found, and on confirmation writes the best one back to
sector 0 as a single atomic write.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         RunRecoverBoot,
	}
	cmd.Flags().Bool("yes", false, "skip the interactive confirmation prompt")
	cmd.Flags().String("variant", "", "preferred FAT variant when searching (FAT12, FAT16, FAT32)")
	cmd.Flags().String("apply-boot", "", "apply a previously saved 512-byte boot sector file instead of searching")
	cmd.Flags().String("save", "", "also save the rebuilt boot sector to this path (default: recovered_boot.bin)")
	return cmd
}

func RunRecoverBoot(cmd *cobra.Command, args []string) error {
	path := disk.NormalizeVolumePath(args[0])

	dev, err := disk.OpenDevice(path, true)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer dev.Close()

	variant := parseVariantFlag(cmd)

	var driver *recover.BootRecoveryDriver
	if applyPath, _ := cmd.Flags().GetString("apply-boot"); applyPath != "" {
		driver, err = bootDriverFromFile(dev, applyPath)
	} else {
		driver, err = recover.StartBootRecovery(context.Background(), dev, variant)
	}
	if err != nil {
		return err
	}
	if driver.Session.State == fat.StateAborted {
		return fmt.Errorf("no plausible boot sector candidate found")
	}

	for i, c := range driver.Session.Candidates {
		fmt.Printf("[%d] %s  variant=%s  oem=%q  score=%d\n",
			i, c.Source, c.Layout.FATVariant(), c.Layout.OEMName, c.Score)
	}

	auto, _ := cmd.Flags().GetBool("yes")
	idx := 0
	if !auto {
		fmt.Print("select candidate index: ")
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		idx, err = strconv.Atoi(strings.TrimSpace(line))
		if err != nil {
			return fmt.Errorf("invalid index: %w", err)
		}
	}
	if err := driver.Select(idx); err != nil {
		return err
	}

	token := "yes"
	if !auto {
		fmt.Print("write recovered boot sector to disk? [y/N]: ")
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		token = strings.TrimSpace(line)
	}
	if err := driver.Confirm(token); err != nil {
		return err
	}

	// The pre-write backup must land on the host before the device is
	// touched: without it a failed write is unrecoverable.
	backupPath := backupFileName(args[0])
	if err := writeNewFile(backupPath, driver.Session.Backup); err != nil {
		return fmt.Errorf("saving boot sector backup: %w", err)
	}
	fmt.Printf("old boot sector saved to %s\n", backupPath)

	if savePath, _ := cmd.Flags().GetString("save"); savePath != "" || !auto {
		if savePath == "" {
			savePath = "recovered_boot.bin"
		}
		if err := writeNewFile(savePath, driver.Session.PrepareWrite(driver.Session.Backup)); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not save rebuilt boot sector: %v\n", err)
		} else {
			fmt.Printf("rebuilt boot sector saved to %s\n", savePath)
		}
	}

	if err := driver.Write(); err != nil {
		return err
	}

	rollback, ok, err := driver.Verify()
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("verification failed, rolling back")
		return driver.Rollback(rollback)
	}

	fmt.Println("boot sector recovered")
	return nil
}

// bootDriverFromFile builds a single-candidate recovery session from a
// previously saved 512-byte boot sector file, bypassing discovery.
func bootDriverFromFile(dev disk.BlockDevice, path string) (*recover.BootRecoveryDriver, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	layout, err := fat.ParseBootSector(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if findings := fat.Validate(layout, dev.Size()); fat.HasFatalFindings(findings) {
		for _, f := range findings {
			fmt.Printf("  - %s\n", f)
		}
		return nil, fmt.Errorf("%s does not describe a plausible layout for this device", path)
	}
	session := fat.NewRecoverySession([]fat.Candidate{{Layout: layout, Source: "file:" + path}})
	return &recover.BootRecoveryDriver{Dev: dev, Session: session}, nil
}

// backupFileName derives the {DRIVE}_boot_backup.bin artifact name from
// the device argument as the user typed it.
func backupFileName(deviceArg string) string {
	base := filepath.Base(strings.TrimSuffix(deviceArg, ":"))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "volume"
	}
	return base + "_boot_backup.bin"
}

// writeNewFile writes data to path, refusing to overwrite.
func writeNewFile(path string, data []byte) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", fat.ErrOutputExists, path)
	}
	return os.WriteFile(path, data, 0644)
}

func parseVariantFlag(cmd *cobra.Command) fat.Variant {
	v, _ := cmd.Flags().GetString("variant")
	switch strings.ToUpper(v) {
	case "FAT12":
		return fat.FAT12
	case "FAT16":
		return fat.FAT16
	case "FAT32":
		return fat.FAT32
	default:
		return fat.FAT16
	}
}
