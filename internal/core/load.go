package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Target describes where a consolidated dataset goes.
type Target struct {
	Format string

	// Path is the output file for file formats.
	Path string

	// DB, Table, CreateTable and Truncate apply to database formats.
	DB          DB
	Table       string
	CreateTable bool
	Truncate    bool
}

// LoadResult reports what Load wrote.
type LoadResult struct {
	Format string `json:"format"`
	Path   string `json:"path,omitempty"`
	Table  string `json:"table,omitempty"`
	Rows   int    `json:"rows"`
	Bytes  int64  `json:"bytes,omitempty"`
}

// Load writes rows through the format registered for target.Format.
//
// File formats are written to a temporary file next to target.Path and
// renamed into place only after the writer succeeds, so a failed run leaves
// any previous output untouched. Database formats are expected to write in a
// single transaction.
func Load(ctx context.Context, target Target, rows []Evaluation) (LoadResult, error) {
	def, ok := Get(target.Format)
	if !ok {
		return LoadResult{}, fmt.Errorf("%w: %q", ErrUnknownFormat, target.Format)
	}

	res := LoadResult{Format: def.Key, Rows: len(rows)}

	if def.WriteDB != nil {
		if target.DB == nil {
			return res, fmt.Errorf("format %s needs a database connection", def.Key)
		}
		res.Table = target.Table
		return res, def.WriteDB(ctx, target.DB, target, rows)
	}

	if target.Path == "" {
		return res, fmt.Errorf("format %s needs an output path", def.Key)
	}
	res.Path = target.Path

	n, err := writeAtomic(target.Path, func(w io.Writer) error {
		return def.WriteFile(ctx, w, rows)
	})
	res.Bytes = n
	return res, err
}

// writeAtomic writes via a temp file in the destination directory and
// renames it over path on success.
func writeAtomic(path string, write func(io.Writer) error) (n int64, err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	cw := &countingWriter{w: tmp}
	if err = write(cw); err != nil {
		return 0, err
	}
	if err = tmp.Sync(); err != nil {
		return 0, err
	}
	if err = tmp.Close(); err != nil {
		return 0, err
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return 0, err
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return 0, err
	}
	return cw.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
