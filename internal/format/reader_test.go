package format_test

import (
	"bufio"
	"bytes"
	"io"
	"testing"

	"github.com/kantai/fatrescue/internal/format"
	"github.com/stretchr/testify/require"
)

func TestReader_ReadAndPeek(t *testing.T) {
	testData := []byte("0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ")

	r := format.NewReader(bufio.NewReaderSize(bytes.NewReader(testData), 8))

	peeked, err := r.Peek(4)
	require.NoError(t, err)
	require.Equal(t, testData[:4], peeked)
	require.Equal(t, uint64(0), r.BytesRead())

	buf := make([]byte, 4)
	n, err := r.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, testData[:4], buf)
	require.Equal(t, uint64(4), r.BytesRead())

	b, err := r.ReadByte()
	require.NoError(t, err)
	require.Equal(t, testData[4], b)
	require.Equal(t, uint64(5), r.BytesRead())
}

func TestReader_Discard(t *testing.T) {
	testData := []byte("0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ")

	r := format.NewReader(bufio.NewReaderSize(bytes.NewReader(testData), 8))

	n, err := r.Discard(10)
	require.NoError(t, err)
	require.Equal(t, 10, n)
	require.Equal(t, uint64(10), r.BytesRead())

	buf := make([]byte, 1)
	_, err = r.Read(buf)
	require.NoError(t, err)
	require.Equal(t, testData[10], buf[0])
}

func TestReader_ReadPastEOF(t *testing.T) {
	testData := []byte("short")
	r := format.NewReader(bufio.NewReader(bytes.NewReader(testData)))

	buf := make([]byte, len(testData))
	n, err := r.Read(buf)
	require.NoError(t, err)
	require.Equal(t, len(testData), n)

	_, err = r.ReadByte()
	require.ErrorIs(t, err, io.EOF)
}
