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
package fat

import (
	"io"
	"path"

	"github.com/boljen/go-bitmap"
	"github.com/hashicorp/go-multierror"
)

// DirNode is one node of the recovered directory tree. Leaves
// carry Size and StartCluster; directories carry Children.
type DirNode struct {
	Name         string
	IsDirectory  bool
	Size         uint32
	StartCluster uint32
	Children     []*DirNode
}

// RecoverableCandidate names a deleted directory entry found anywhere in
// the volume during a deleted-entry scan, with the path of the directory
// it was found in.
type RecoverableCandidate struct {
	Path                    string
	ShortNameWithUnderscore string
	PossiblyLFN             string
	StartCluster            uint32
	Size                    uint32
}

// TreeWalker builds a directory tree and (optionally) a deleted-entry
// scan over a single FAT volume. It owns the visited-cluster bitmap that
// makes both operations cycle-safe against corrupt `..` links or FAT
// loops.
type TreeWalker struct {
	dev     io.ReaderAt
	layout  *Layout
	fatBuf  []byte
	visited bitmap.Bitmap
}

// NewTreeWalker constructs a walker over dev using the given Layout and
// an already-read copy of the (preferred) FAT table.
func NewTreeWalker(dev io.ReaderAt, layout *Layout, fatBuf []byte) *TreeWalker {
	return &TreeWalker{
		dev:     dev,
		layout:  layout,
		fatBuf:  fatBuf,
		visited: bitmap.New(int(layout.TotalClusters()) + 2),
	}
}

// ReadRootDirectory returns the raw bytes of the root directory region:
// the fixed-size root dir for FAT12/16, or the cluster chain starting at
// Layout.RootCluster for FAT32.
func (w *TreeWalker) ReadRootDirectory() ([]byte, error) {
	if w.layout.FATVariant() == FAT32 {
		return w.readDirClusters(w.layout.RootCluster)
	}

	n := w.layout.RootDirSectors()
	buf := make([]byte, int(n)*int(w.layout.BytesPerSector))
	off := int64(w.layout.RootDirStart()) * int64(w.layout.BytesPerSector)
	if _, err := io.ReadFull(io.NewSectionReader(w.dev, off, int64(len(buf))), buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (w *TreeWalker) readDirClusters(startCluster uint32) ([]byte, error) {
	chain, err := WalkChain(w.fatBuf, startCluster, w.layout.FATVariant(), w.layout.TotalClusters(), DefaultMaxChainBytes, int(w.layout.BytesPerCluster()))
	if err != nil {
		return nil, err
	}
	r := NewClusterChainReader(w.dev, w.layout, chain, -1)
	buf := make([]byte, r.Size())
	if _, err := io.ReadFull(io.NewSectionReader(r, 0, r.Size()), buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// BuildTree walks the whole volume from the root directory and returns
// the resulting tree. Corrupt sub-trees are recorded as a multierror
// rather than aborting the whole walk, so one bad directory never hides
// the rest of the volume.
func (w *TreeWalker) BuildTree() (*DirNode, error) {
	rootBuf, err := w.ReadRootDirectory()
	if err != nil {
		return nil, err
	}

	root := &DirNode{Name: "/", IsDirectory: true, StartCluster: w.layout.RootCluster}
	var errs *multierror.Error
	w.walk(root, rootBuf, &errs)
	return root, errs.ErrorOrNil()
}

func (w *TreeWalker) walk(node *DirNode, dirBuf []byte, errs **multierror.Error) {
	entries, _, err := DecodeDirectory(dirBuf, false)
	if err != nil {
		*errs = multierror.Append(*errs, err)
		return
	}

	for _, e := range entries {
		if e.ShortName == "." || e.ShortName == ".." {
			continue
		}
		if e.Attr&AttrVolumeID != 0 {
			continue
		}

		child := &DirNode{
			Name:         e.Name,
			IsDirectory:  e.IsDirectory,
			Size:         e.Size,
			StartCluster: e.StartCluster,
		}
		node.Children = append(node.Children, child)

		if !e.IsDirectory {
			continue
		}
		if e.StartCluster == 0 {
			continue // FAT12/16 treat cluster 0 as "this is actually the root", already walked
		}
		if int(e.StartCluster) < w.visited.Len() && w.visited.Get(int(e.StartCluster)) {
			*errs = multierror.Append(*errs, &corruptChainAt{cluster: e.StartCluster})
			continue
		}
		if int(e.StartCluster) < w.visited.Len() {
			w.visited.Set(int(e.StartCluster), true)
		}

		subBuf, err := w.readDirClusters(e.StartCluster)
		if err != nil {
			*errs = multierror.Append(*errs, err)
			continue
		}
		w.walk(child, subBuf, errs)
	}
}

type corruptChainAt struct{ cluster uint32 }

func (e *corruptChainAt) Error() string {
	return "cycle detected revisiting directory at cluster " + itoa(e.cluster)
}
func (e *corruptChainAt) Unwrap() error { return ErrCorruptChain }

func itoa(n uint32) string {
	if n == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// ScanDeleted walks every directory in the volume (including the root)
// and collects every 0xE5 record as a RecoverableCandidate, alongside the
// live tree.
func (w *TreeWalker) ScanDeleted() ([]RecoverableCandidate, error) {
	rootBuf, err := w.ReadRootDirectory()
	if err != nil {
		return nil, err
	}

	var candidates []RecoverableCandidate
	var errs *multierror.Error
	w.scanDeletedDir("/", rootBuf, &candidates, &errs)
	return candidates, errs.ErrorOrNil()
}

func (w *TreeWalker) scanDeletedDir(dirPath string, dirBuf []byte, out *[]RecoverableCandidate, errs **multierror.Error) {
	entries, deleted, err := DecodeDirectory(dirBuf, true)
	if err != nil {
		*errs = multierror.Append(*errs, err)
		return
	}

	for _, d := range deleted {
		*out = append(*out, RecoverableCandidate{
			Path:                    dirPath,
			ShortNameWithUnderscore: d.ShortNameWithUnderscore,
			PossiblyLFN:             d.PossiblyLFN,
			StartCluster:            d.StartCluster,
			Size:                    d.Size,
		})
	}

	for _, e := range entries {
		if e.ShortName == "." || e.ShortName == ".." || !e.IsDirectory || e.StartCluster == 0 {
			continue
		}
		if int(e.StartCluster) < w.visited.Len() && w.visited.Get(int(e.StartCluster)) {
			continue
		}
		if int(e.StartCluster) < w.visited.Len() {
			w.visited.Set(int(e.StartCluster), true)
		}

		subBuf, err := w.readDirClusters(e.StartCluster)
		if err != nil {
			*errs = multierror.Append(*errs, err)
			continue
		}
		w.scanDeletedDir(path.Join(dirPath, e.Name), subBuf, out, errs)
	}
}
