package format_test

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/kantai/fatrescue/internal/format"
	"github.com/stretchr/testify/require"
)

func TestScanDOC_ValidHeader(t *testing.T) {
	data := append([]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, make([]byte, 1024)...)

	r := format.NewReader(bufio.NewReader(bytes.NewReader(data)))
	result, err := format.ScanDOC(r)
	require.NoError(t, err)
	require.Equal(t, uint64(len(data)), result.Size)
}

func TestScanDOC_InvalidHeader(t *testing.T) {
	data := append([]byte("not ole2"), make([]byte, 64)...)

	r := format.NewReader(bufio.NewReader(bytes.NewReader(data)))
	_, err := format.ScanDOC(r)
	require.Error(t, err)
}
