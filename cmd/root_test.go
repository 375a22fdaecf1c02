package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintTableNoPad_TrimsTrailingSpace(t *testing.T) {
	setupStdoutCapture(t)

	PrintTableNoPad(pterm.TableData{{"Property", "Value"}, {"A much longer name", "x"}}, true)
	for _, line := range strings.Split(strings.TrimRight(outBuf.String(), "\n"), "\n") {
		assert.False(t, strings.HasSuffix(line, " "), "line %q has trailing space", line)
	}
	assert.Contains(t, outBuf.String(), "A much longer name")
}

func TestReadRecording_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"id":"r1","startTime":0,"endTime":6000,"duration":6000,"events":[],"finalValue":""}`), 0o644))

	rec, err := readRecording(path)
	require.NoError(t, err)
	assert.Equal(t, "r1", rec.ID)

	_, err = readRecording(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestEnumValue(t *testing.T) {
	v := newEnumValue("standard", "minimal", "standard", "detailed")
	assert.Equal(t, "standard", v.String())
	assert.Equal(t, "string", v.Type())

	require.NoError(t, v.Set("detailed"))
	assert.Equal(t, "detailed", v.String())

	err := v.Set("verbose")
	assert.EqualError(t, err, "must be one of minimal, standard, detailed")
	assert.Equal(t, "detailed", v.String())
}
