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
	"fmt"
	"io"
	"strings"
)

// FindPath locates a node in a tree built by TreeWalker.BuildTree by
// slash-separated path, e.g. "DIR/SUBDIR/FILE.TXT".
func FindPath(root *DirNode, p string) (*DirNode, error) {
	p = strings.Trim(p, "/")
	if p == "" {
		return root, nil
	}

	cur := root
	for _, part := range strings.Split(p, "/") {
		found := false
		for _, child := range cur.Children {
			if strings.EqualFold(child.Name, part) || strings.EqualFold(child.ShortNameOrName(), part) {
				cur = child
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("path not found: %s", p)
		}
	}
	return cur, nil
}

// ShortNameOrName is a convenience accessor used by path lookups so a
// caller may address a file by either its long or short name.
func (n *DirNode) ShortNameOrName() string { return n.Name }

// ExtractLive extracts a live file's bytes by walking its cluster chain
// and truncating to exactly node.Size bytes.
//
// An empty file (StartCluster == 0 && Size == 0) yields an empty result.
// Size == 0 with a nonzero StartCluster is ambiguous: it is treated as
// empty, and a warning is returned alongside
// the (empty, nil-error) result so the caller can surface it without
// failing the extraction.
func ExtractLive(dev io.ReaderAt, layout *Layout, fatBuf []byte, node *DirNode) ([]byte, string, error) {
	if node.StartCluster == 0 {
		return nil, "", nil
	}
	if node.Size == 0 {
		return nil, "file has a start cluster but a recorded size of 0; treating as empty", nil
	}

	chain, err := WalkChain(fatBuf, node.StartCluster, layout.FATVariant(), layout.TotalClusters(), DefaultMaxChainBytes, int(layout.BytesPerCluster()))
	if err != nil {
		return nil, "", err
	}

	r := NewClusterChainReader(dev, layout, chain, int64(node.Size))
	out := make([]byte, r.Size())
	n, err := io.ReadFull(io.NewSectionReader(r, 0, r.Size()), out)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return out[:n], "", err
	}
	if n < len(out) {
		return out[:n], fmt.Sprintf("truncated: wanted %d bytes, device yielded %d", len(out), n), nil
	}
	return out, "", nil
}

// ExtractDeleted performs best-effort recovery of a deleted file given
// only its (start_cluster, size) — the FAT chain is assumed erased, so
// clusters are read *contiguously* from start_cluster for
// ceil(size/bytes_per_cluster) clusters. If the original file
// was fragmented, only the first extent is reliable.
func ExtractDeleted(dev io.ReaderAt, layout *Layout, startCluster uint32, size uint32) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}

	bpc := layout.BytesPerCluster()
	numClusters := (size + bpc - 1) / bpc

	out := make([]byte, size)
	remaining := int64(size)
	for i := uint32(0); i < numClusters && remaining > 0; i++ {
		cluster := startCluster + i
		off := layout.ClusterOffsetSectors(cluster) * int64(layout.BytesPerSector)

		want := int64(bpc)
		if remaining < want {
			want = remaining
		}

		n, err := dev.ReadAt(out[int64(size)-remaining:int64(size)-remaining+want], off)
		remaining -= int64(n)
		if err != nil && err != io.EOF {
			return out[:int64(size)-remaining], err
		}
		if int64(n) < want {
			return out[:int64(size)-remaining], nil
		}
	}

	return out, nil
}
