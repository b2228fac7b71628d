package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shpitdev/seomerge/pkg/pipeline/core"
)

// Files loads local input files as pipeline sources. The caller owns the
// opened handles and must call Close once the run is finished.
type Files struct {
	Paths []string

	// AllowedExtensions restricts accepted file names (without the dot,
	// case-insensitive). Empty accepts everything.
	AllowedExtensions []string

	opened []*os.File
}

var _ core.InputAdapter[core.Source] = (*Files)(nil)

// Load opens every path in order. Nothing stays open when an error is returned.
func (f *Files) Load(ctx context.Context) ([]core.Source, error) {
	sources := make([]core.Source, 0, len(f.Paths))
	for _, p := range f.Paths {
		if err := ctx.Err(); err != nil {
			_ = f.Close()
			return nil, err
		}
		if !HasAllowedExtension(p, f.AllowedExtensions) {
			_ = f.Close()
			return nil, fmt.Errorf("file %q: extension not allowed (want one of %s)", p, strings.Join(f.AllowedExtensions, ", "))
		}
		fh, err := os.Open(p)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("open input: %w", err)
		}
		f.opened = append(f.opened, fh)
		sources = append(sources, core.Source{Name: filepath.Base(p), Body: fh})
	}
	return sources, nil
}

// Close closes every file opened by Load.
func (f *Files) Close() error {
	var errs []error
	for _, fh := range f.opened {
		if err := fh.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	f.opened = nil
	return errors.Join(errs...)
}

// HasAllowedExtension reports whether name ends in one of exts.
func HasAllowedExtension(name string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if ext == "" {
		return false
	}
	for _, allowed := range exts {
		if strings.EqualFold(strings.TrimPrefix(strings.TrimSpace(allowed), "."), ext) {
			return true
		}
	}
	return false
}

// WriteFile writes to a temporary file next to path and renames it into place
// once write succeeds, so readers never observe a partial output.
func WriteFile(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp output: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}
