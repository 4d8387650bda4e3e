package format_test

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/kantai/fatrescue/internal/format"
	"github.com/stretchr/testify/require"
)

func TestScanText_UTF8BOM(t *testing.T) {
	body := strings.Repeat("the quick brown fox jumps over the lazy dog\n", 100)
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte(body)...)

	r := format.NewReader(bufio.NewReader(bytes.NewReader(data)))
	result, err := format.ScanText(r)
	require.NoError(t, err)
	require.Equal(t, uint64(len(data)), result.Size)
}

func TestScanText_StopsAtBinaryData(t *testing.T) {
	body := strings.Repeat("plain ascii text here\n", 500)
	binary := bytes.Repeat([]byte{0x01, 0x02, 0x03, 0xFF, 0x00, 0x05, 0x06, 0x07}, 4096)
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte(body)...)
	data = append(data, binary...)

	r := format.NewReader(bufio.NewReader(bytes.NewReader(data)))
	result, err := format.ScanText(r)
	require.NoError(t, err)
	require.Less(t, result.Size, uint64(len(data)))
}

func TestScanText_MissingBOM(t *testing.T) {
	data := []byte("no byte order mark here")

	r := format.NewReader(bufio.NewReader(bytes.NewReader(data)))
	_, err := format.ScanText(r)
	require.Error(t, err)
}
