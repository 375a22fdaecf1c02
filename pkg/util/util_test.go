package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFile_RefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "badge.html")

	require.NoError(t, WriteFile(path, []byte("one"), false))
	err := WriteFile(path, []byte("two"), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")

	require.NoError(t, WriteFile(path, []byte("two"), true))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

func TestWriteFileAtomic_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteFileAtomic(filepath.Join(dir, "s.json"), []byte("{}"), 0o600))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "s.json", entries[0].Name())
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "-", MaskSecret(""))
	assert.Equal(t, "***", MaskSecret("abc"))
	assert.Equal(t, "***wxyz", MaskSecret("ghp_abcdwxyz"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcdefg...", Truncate("abcdefghijklmnop", 10))
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "-", OrDash(""))
	assert.Equal(t, "b", FirstOrDash("", "b", "c"))
	assert.Equal(t, "a, b", JoinOrDash("a", "b"))
	assert.Equal(t, "1.5 KB", FormatBytes(1536))
	assert.Equal(t, "-", FormatUnixMillis(0))
}
