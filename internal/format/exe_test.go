package format_test

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/kantai/fatrescue/internal/format"
	"github.com/stretchr/testify/require"
)

func TestScanEXE_ValidHeader(t *testing.T) {
	data := append([]byte{'M', 'Z'}, make([]byte, 512)...)

	r := format.NewReader(bufio.NewReader(bytes.NewReader(data)))
	result, err := format.ScanEXE(r)
	require.NoError(t, err)
	require.Equal(t, uint64(len(data)), result.Size)
}

func TestScanEXE_InvalidHeader(t *testing.T) {
	data := append([]byte("ZZ"), make([]byte, 64)...)

	r := format.NewReader(bufio.NewReader(bytes.NewReader(data)))
	_, err := format.ScanEXE(r)
	require.Error(t, err)
}
