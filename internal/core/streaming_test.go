package core

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBOMSkippingReader(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "file with BOM",
			input:    append([]byte{0xEF, 0xBB, 0xBF}, []byte("_timestamp,a")...),
			expected: "_timestamp,a",
		},
		{
			name:     "file without BOM",
			input:    []byte("_timestamp,a"),
			expected: "_timestamp,a",
		},
		{
			name:     "empty file",
			input:    []byte{},
			expected: "",
		},
		{
			name:     "only BOM",
			input:    []byte{0xEF, 0xBB, 0xBF},
			expected: "",
		},
		{
			name:     "partial BOM at start",
			input:    []byte{0xEF, 0xBB, 'a', 'b', 'c'},
			expected: string([]byte{0xEF, 0xBB, 'a', 'b', 'c'}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := io.ReadAll(newBOMSkippingReader(bytes.NewReader(tt.input)))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestRecordingNames(t *testing.T) {
	tests := []struct {
		file    string
		ext     string
		message string
	}{
		{"WHEEL_SPEED.csv", ".csv", "WHEEL_SPEED"},
		{"IMU.csv.gz", ".csv.gz", "IMU"},
		{"GPS.CSV.ZST", ".csv.zst", "GPS"},
		{"notes.txt", "", "notes"},
		{"IMU.v2.csv", ".csv", "IMU"},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			assert.Equal(t, tt.ext, recordingExt(tt.file))
			assert.Equal(t, tt.message, messageName(tt.file))
		})
	}
}

func TestOpenRecording_Compressed(t *testing.T) {
	const body = "_timestamp,a\n0,1\n1000,2\n"
	dir := t.TempDir()

	gzPath := filepath.Join(dir, "a.csv.gz")
	var gzBuf bytes.Buffer
	gw := gzip.NewWriter(&gzBuf)
	_, err := gw.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	require.NoError(t, os.WriteFile(gzPath, gzBuf.Bytes(), 0o644))

	zstPath := filepath.Join(dir, "a.csv.zst")
	var zBuf bytes.Buffer
	zw, err := zstd.NewWriter(&zBuf)
	require.NoError(t, err)
	_, err = zw.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(zstPath, zBuf.Bytes(), 0o644))

	for _, path := range []string{gzPath, zstPath} {
		t.Run(filepath.Base(path), func(t *testing.T) {
			rec, err := openRecording(path)
			require.NoError(t, err)
			defer rec.Close()

			got, err := io.ReadAll(rec)
			require.NoError(t, err)
			assert.Equal(t, body, string(got))
			assert.Equal(t, int64(len(body)), rec.BytesRead)
		})
	}
}

func TestOpenRecording_CorruptGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.csv.gz")
	require.NoError(t, os.WriteFile(path, []byte("definitely not gzip"), 0o644))

	_, err := openRecording(path)
	require.Error(t, err)
}
