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

	"github.com/boljen/go-bitmap"
)

// DefaultMaxChainBytes bounds an arbitrary chain read at 10 MiB unless
// the caller overrides it.
const DefaultMaxChainBytes = 10 * 1024 * 1024

// WalkChain follows the cluster chain starting at start, applying
// ReadEntry at each step, and returns the ordered list of cluster numbers
// actually occupied by the file or directory.
//
// Termination is the variant's EOC threshold. A chain is CorruptChain if:
// it revisits a cluster (back-edge, detected via a bitmap sized to
// total_clusters), contains the value 0 mid-chain, contains a value
// outside [2, total_clusters+1] that is not EOC/bad, or would exceed
// maxBytes/bytesPerCluster clusters.
func WalkChain(fatBuf []byte, start uint32, variant Variant, totalClusters uint32, maxBytes, bytesPerCluster int) ([]uint32, error) {
	if start < 2 {
		if start == 0 {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: start cluster %d < 2", ErrCorruptChain, start)
	}

	maxChainLen := int(totalClusters) + 1
	if bytesPerCluster > 0 && maxBytes > 0 {
		if byLen := maxBytes / bytesPerCluster; byLen < maxChainLen {
			maxChainLen = byLen
		}
	}

	visited := bitmap.New(int(totalClusters) + 2)
	chain := make([]uint32, 0, 16)

	cur := start
	eoc := variant.EOCThreshold()
	bad := variant.BadCluster()

	for {
		if cur >= eoc {
			break
		}
		if cur == bad {
			return nil, fmt.Errorf("%w: bad cluster marker at %d", ErrCorruptChain, len(chain))
		}
		if cur == 0 {
			return nil, fmt.Errorf("%w: entry 0 mid-chain after %d clusters", ErrCorruptChain, len(chain))
		}
		if cur < 2 || cur > totalClusters+1 {
			return nil, fmt.Errorf("%w: cluster %d out of range [2,%d]", ErrCorruptChain, cur, totalClusters+1)
		}
		if int(cur) < visited.Len() && visited.Get(int(cur)) {
			return nil, fmt.Errorf("%w: cluster %d revisited (cycle)", ErrCorruptChain, cur)
		}
		if int(cur) < visited.Len() {
			visited.Set(int(cur), true)
		}

		chain = append(chain, cur)
		if len(chain) > maxChainLen {
			return nil, fmt.Errorf("%w: chain exceeds %d clusters", ErrCorruptChain, maxChainLen)
		}

		cur = ReadEntry(fatBuf, cur, variant)
	}

	return chain, nil
}

// ClusterChainReader presents the (possibly non-contiguous) clusters of a
// chain as a single contiguous io.ReaderAt/io.Reader, so directory and
// file extraction code never has to think about cluster boundaries.
type ClusterChainReader struct {
	r      io.ReaderAt
	layout *Layout
	chain  []uint32
	pos    int64
	size   int64
}

// NewClusterChainReader builds a reader over the given chain's cluster
// data. size is the logical length to expose (used to truncate the final
// partial cluster); pass -1 to expose the full chain length.
func NewClusterChainReader(r io.ReaderAt, layout *Layout, chain []uint32, size int64) *ClusterChainReader {
	full := int64(len(chain)) * int64(layout.BytesPerCluster())
	if size < 0 || size > full {
		size = full
	}
	return &ClusterChainReader{r: r, layout: layout, chain: chain, size: size}
}

func (c *ClusterChainReader) Size() int64 { return c.size }

// ReadAt implements io.ReaderAt over the logical, contiguous view of the
// chain's cluster data.
func (c *ClusterChainReader) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("negative offset")
	}
	if off >= c.size {
		return 0, io.EOF
	}

	bpc := int64(c.layout.BytesPerCluster())
	total := 0
	for total < len(p) {
		curOff := off + int64(total)
		if curOff >= c.size {
			break
		}
		clusterIdx := int(curOff / bpc)
		if clusterIdx >= len(c.chain) {
			break
		}
		withinCluster := curOff % bpc
		clusterByteOff := c.layout.ClusterOffsetSectors(c.chain[clusterIdx])*int64(c.layout.BytesPerSector) + withinCluster

		want := len(p) - total
		avail := bpc - withinCluster
		if int64(c.size-curOff) < avail {
			avail = c.size - curOff
		}
		if int64(want) > avail {
			want = int(avail)
		}

		n, err := c.r.ReadAt(p[total:total+want], clusterByteOff)
		total += n
		if err != nil && err != io.EOF {
			return total, err
		}
		if n < want {
			return total, io.ErrUnexpectedEOF
		}
	}

	if total == 0 {
		return 0, io.EOF
	}
	return total, nil
}

// Read implements io.Reader, advancing an internal cursor.
func (c *ClusterChainReader) Read(p []byte) (int, error) {
	n, err := c.ReadAt(p, c.pos)
	c.pos += int64(n)
	return n, err
}
