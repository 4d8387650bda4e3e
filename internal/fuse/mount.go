//go:build !linux
// +build !linux

package fuse

import (
	"fmt"
	"io"

	"github.com/kantai/fatrescue/internal/fat"
	"github.com/kantai/fatrescue/internal/format"
)

func Mount(mountpoint string, r io.ReaderAt, entries []format.FileInfo) error {
	return fmt.Errorf("FUSE mount is only supported on Linux")
}

func MountVolume(mountpoint string, dev io.ReaderAt, layout *fat.Layout, fatBuf []byte, root *fat.DirNode) error {
	return fmt.Errorf("FUSE mount is only supported on Linux")
}
