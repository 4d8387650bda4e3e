package recover_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/kantai/fatrescue/internal/fat"
	"github.com/kantai/fatrescue/internal/recover"
	"github.com/kantai/fatrescue/pkg/dfxml"
	"github.com/stretchr/testify/require"
)

func TestDumpFile_WritesReaderContentsToNamedPath(t *testing.T) {
	dir := t.TempDir()
	content := []byte("recovered bytes")

	err := recover.DumpFile(dir, "carved_0.bin", bytes.NewReader(content))
	require.NoError(t, err)

	out, err := os.ReadFile(filepath.Join(dir, "carved_0.bin"))
	require.NoError(t, err)
	require.Equal(t, content, out)
}

func TestRecoverFromReport_ReExtractsEveryFileObject(t *testing.T) {
	img := make([]byte, 4096)
	copy(img[100:], []byte("first-file-content"))
	copy(img[2000:], []byte("second-file"))

	var reportBuf bytes.Buffer
	w := dfxml.NewDFXMLWriter(&reportBuf)
	require.NoError(t, w.WriteHeader(dfxml.DFXMLHeader{XmlOutput: dfxml.XmlOutputVersion, Metadata: dfxml.DefaultMetadata}))
	require.NoError(t, w.WriteFileObject(dfxml.FileObject{
		Filename: "first.bin",
		FileSize: 18,
		ByteRuns: dfxml.ByteRuns{Runs: []dfxml.ByteRun{{Offset: 100, ImgOffset: 100, Length: 18}}},
	}))
	require.NoError(t, w.WriteFileObject(dfxml.FileObject{
		Filename: "second.bin",
		FileSize: 11,
		ByteRuns: dfxml.ByteRuns{Runs: []dfxml.ByteRun{{Offset: 2000, ImgOffset: 2000, Length: 11}}},
	}))
	require.NoError(t, w.Close())

	outDir := t.TempDir()
	n, err := recover.RecoverFromReport(bytes.NewReader(img), &reportBuf, outDir)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	first, err := os.ReadFile(filepath.Join(outDir, "first.bin"))
	require.NoError(t, err)
	require.Equal(t, "first-file-content", string(first))

	second, err := os.ReadFile(filepath.Join(outDir, "second.bin"))
	require.NoError(t, err)
	require.Equal(t, "second-file", string(second))
}

func TestDumpFile_RefusesToOverwriteExistingPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "carved_0.bin")
	require.NoError(t, os.WriteFile(path, []byte("already here"), 0644))

	err := recover.DumpFile(dir, "carved_0.bin", bytes.NewReader([]byte("new")))
	require.ErrorIs(t, err, fat.ErrOutputExists)

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "already here", string(out))
}
