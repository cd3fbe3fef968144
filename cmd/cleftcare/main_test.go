package main

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "visits.csv")

	err := writeFile(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "patient_id;visit_date\n")
		return err
	})
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "patient_id;visit_date\n", string(raw))
}

func TestWriteFile_RemovesPartialOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "visits.xlsx")
	boom := errors.New("listing visits: connection reset")

	err := writeFile(path, func(w io.Writer) error {
		_, _ = io.WriteString(w, "partial")
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "partial export left on disk")
}

func TestExportCmd_RejectsUnknownFormat(t *testing.T) {
	cmd := exportCmd()
	cmd.SetArgs([]string{"--format", "pdf"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdf")
}
