//go:build linux
// +build linux

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
package fuse

import (
	"context"
	"io"
	"log"
	"os"
	"sort"
	"sync"
	"time"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
	"github.com/kantai/fatrescue/internal/fat"
)

// VolumeFS exposes a live fat.DirNode tree as a read-only
// FUSE filesystem. Unlike RecoverFS, which serves a flat list of
// byte-range files pulled from a DFXML carve report, VolumeFS walks the
// actual directory hierarchy and extracts each file's cluster chain
// lazily on first read rather than buffering the whole volume.
type VolumeFS struct {
	dev    io.ReaderAt
	layout *fat.Layout
	fatBuf []byte
	root   *fat.DirNode
}

// NewVolumeFS builds a VolumeFS over an already-opened volume's device,
// layout, preferred FAT copy, and a tree already produced by
// fat.TreeWalker.BuildTree (or recover.Volume.BuildTree).
func NewVolumeFS(dev io.ReaderAt, layout *fat.Layout, fatBuf []byte, root *fat.DirNode) *VolumeFS {
	return &VolumeFS{dev: dev, layout: layout, fatBuf: fatBuf, root: root}
}

func (v *VolumeFS) Root() (fusefs.Node, error) {
	return &VDir{fs: v, node: v.root}, nil
}

// VDir implements fs.Node and fs.HandleReadDirAller over one DirNode.
type VDir struct {
	fs   *VolumeFS
	node *fat.DirNode
}

func (d *VDir) Attr(ctx context.Context, a *fuse.Attr) error {
	a.Mode = os.ModeDir | 0555
	return nil
}

func (d *VDir) Lookup(ctx context.Context, name string) (fusefs.Node, error) {
	for _, c := range d.node.Children {
		if c.Name != name {
			continue
		}
		if c.IsDirectory {
			return &VDir{fs: d.fs, node: c}, nil
		}
		return &VFile{fs: d.fs, node: c}, nil
	}
	return nil, fuse.ENOENT
}

func (d *VDir) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	ents := make([]fuse.Dirent, 0, len(d.node.Children))
	for _, c := range d.node.Children {
		typ := fuse.DT_File
		if c.IsDirectory {
			typ = fuse.DT_Dir
		}
		ents = append(ents, fuse.Dirent{Name: c.Name, Type: typ})
	}
	sort.Slice(ents, func(i, j int) bool { return ents[i].Name < ents[j].Name })
	for i := range ents {
		ents[i].Inode = uint64(i + 1)
	}
	return ents, nil
}

// VFile implements fs.Node and fs.HandleReader over one file DirNode. Its
// cluster chain is walked once, on first Read, and cached for the life of
// the node — live extraction applied a read at a time instead of all at
// once.
type VFile struct {
	fs   *VolumeFS
	node *fat.DirNode

	mu     sync.Mutex
	reader *fat.ClusterChainReader
	err    error
}

func (f *VFile) Attr(ctx context.Context, a *fuse.Attr) error {
	a.Mode = 0444
	a.Size = uint64(f.node.Size)
	a.Mtime = time.Now()
	return nil
}

func (f *VFile) chainReader() (*fat.ClusterChainReader, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reader != nil || f.err != nil {
		return f.reader, f.err
	}

	if f.node.StartCluster == 0 || f.node.Size == 0 {
		f.reader = fat.NewClusterChainReader(f.fs.dev, f.fs.layout, nil, 0)
		return f.reader, nil
	}

	chain, err := fat.WalkChain(f.fs.fatBuf, f.node.StartCluster, f.fs.layout.FATVariant(), f.fs.layout.TotalClusters(), fat.DefaultMaxChainBytes, int(f.fs.layout.BytesPerCluster()))
	if err != nil {
		f.err = err
		return nil, err
	}
	f.reader = fat.NewClusterChainReader(f.fs.dev, f.fs.layout, chain, int64(f.node.Size))
	return f.reader, nil
}

func (f *VFile) Read(ctx context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	r, err := f.chainReader()
	if err != nil {
		return err
	}

	size := int(req.Size)
	offset := req.Offset
	if offset >= r.Size() {
		resp.Data = []byte{}
		return nil
	}
	if int64(offset)+int64(size) > r.Size() {
		size = int(r.Size() - offset)
	}

	buf := make([]byte, size)
	n, err := r.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return err
	}
	resp.Data = buf[:n]
	return nil
}

// MountVolume mounts a live FAT directory tree at mountpoint, serving
// reads directly from dev via cluster-chain extraction.
// It shares waitForUmount/PrepareMountpoint with the DFXML-report mount
// path in mount_linux.go.
func MountVolume(mountpoint string, dev io.ReaderAt, layout *fat.Layout, fatBuf []byte, root *fat.DirNode) error {
	created, err := PrepareMountpoint(mountpoint)
	if err != nil {
		return err
	}
	if created {
		defer os.Remove(mountpoint)
	}

	c, err := fuse.Mount(mountpoint)
	if err != nil {
		return err
	}
	defer c.Close()

	vfs := NewVolumeFS(dev, layout, fatBuf, root)

	go func() {
		srv := fusefs.New(c, nil)
		if err := srv.Serve(vfs); err != nil {
			log.Fatalf("Serve error: %v", err)
		}
	}()
	return waitForUmount(mountpoint)
}
