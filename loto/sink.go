package loto

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Sink persists an assembled corpus. Persist replaces whatever the sink held before.
type Sink interface {
	Persist(ctx context.Context, c *Corpus) error
}

// CSVSink writes the corpus as a UTF-8, comma separated file with a header row.
type CSVSink struct {
	Path string
}

// Persist writes to a temporary file next to Path and moves it over Path once complete.
func (s *CSVSink) Persist(ctx context.Context, c *Corpus) error {
	if err := c.Validate(); err != nil {
		return err
	}
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.Path)+"-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	writeErr := WriteCSV(ctx, tmp, c)
	closeErr := tmp.Close()
	if writeErr != nil {
		_ = os.Remove(tmpPath)
		return writeErr
	}
	if closeErr != nil {
		_ = os.Remove(tmpPath)
		return closeErr
	}
	if err := replaceFile(tmpPath, s.Path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// WriteCSV renders the corpus columns in order, one line per draw.
func WriteCSV(ctx context.Context, w io.Writer, c *Corpus) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(c.Columns); err != nil {
		return err
	}
	rec := make([]string, len(c.Columns))
	for i, d := range c.Draws {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		for j, col := range c.Columns {
			rec[j] = d.Value(col)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// replaceFile moves src over dst. Rename is tried first; across devices the content is copied.
func replaceFile(src string, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	_, copyErr := io.Copy(out, in)
	closeErr := out.Close()
	if copyErr != nil {
		return copyErr
	}
	if closeErr != nil {
		return closeErr
	}
	return os.Remove(src)
}

// MultiSink persists to every sink in order and stops at the first failure.
type MultiSink []Sink

func (m MultiSink) Persist(ctx context.Context, c *Corpus) error {
	for _, s := range m {
		if err := s.Persist(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// OutputSinks orders the run outputs: the SQLite store first, then the CSV file, so a failed store
// write leaves the previous CSV in place. store may be nil.
func OutputSinks(store *Store, csv *CSVSink) MultiSink {
	var out MultiSink
	if store != nil {
		out = append(out, store)
	}
	return append(out, csv)
}
