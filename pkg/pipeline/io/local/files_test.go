package local_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shpitdev/seomerge/pkg/pipeline/io/local"
)

func TestFilesLoad(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.csv")
	b := filepath.Join(dir, "b.CSV")
	require.NoError(t, os.WriteFile(a, []byte("Keyword\nshoes\n"), 0o600))
	require.NoError(t, os.WriteFile(b, []byte("Keyword\nboots\n"), 0o600))

	t.Run("opens files in order", func(t *testing.T) {
		f := &local.Files{Paths: []string{a, b}, AllowedExtensions: []string{"csv"}}
		defer func() { _ = f.Close() }()

		sources, err := f.Load(context.Background())
		require.NoError(t, err)
		require.Len(t, sources, 2)
		assert.Equal(t, "a.csv", sources[0].Name)
		assert.Equal(t, "b.CSV", sources[1].Name)

		body, err := io.ReadAll(sources[1].Body)
		require.NoError(t, err)
		assert.Equal(t, "Keyword\nboots\n", string(body))
	})

	t.Run("rejects extension", func(t *testing.T) {
		txt := filepath.Join(dir, "notes.txt")
		require.NoError(t, os.WriteFile(txt, []byte("x"), 0o600))

		f := &local.Files{Paths: []string{a, txt}, AllowedExtensions: []string{"csv", "xlsx"}}
		_, err := f.Load(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "extension not allowed")
	})

	t.Run("missing file errors", func(t *testing.T) {
		f := &local.Files{Paths: []string{filepath.Join(dir, "nope.csv")}}
		_, err := f.Load(context.Background())
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestHasAllowedExtension(t *testing.T) {
	tests := []struct {
		name string
		in   string
		exts []string
		want bool
	}{
		{name: "match", in: "report.csv", exts: []string{"csv"}, want: true},
		{name: "case insensitive", in: "REPORT.XLSX", exts: []string{"csv", "xlsx"}, want: true},
		{name: "dotted allowed entry", in: "r.csv", exts: []string{".csv"}, want: true},
		{name: "no extension", in: "report", exts: []string{"csv"}, want: false},
		{name: "other extension", in: "report.tsv", exts: []string{"csv"}, want: false},
		{name: "no restriction", in: "report", exts: nil, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, local.HasAllowedExtension(tt.in, tt.exts))
		})
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.csv")

	require.NoError(t, local.WriteFile(out, func(w io.Writer) error {
		_, err := io.WriteString(w, "keyword\nshoes\n")
		return err
	}))
	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "keyword\nshoes\n", string(got))

	boom := errors.New("boom")
	err = local.WriteFile(out, func(w io.Writer) error {
		_, _ = io.WriteString(w, "partial")
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err = os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "keyword\nshoes\n", string(got), "failed write must not replace existing output")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must be cleaned up")
}
