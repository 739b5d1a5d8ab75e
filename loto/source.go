package loto

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Batch is one retrieved archive, not yet merged or normalized.
type Batch struct {
	// SourceFile is the provenance identifier: the name of the CSV inside the archive.
	SourceFile string
	Location   string
	// Digest is the hex SHA-256 of the downloaded bytes.
	Digest string
	Table  *Table
}

// Source discovers and retrieves raw batches.
type Source interface {
	// Discover returns deduplicated archive locations in a stable order.
	Discover(ctx context.Context) ([]string, error)
	// Fetch retrieves and unpacks one archive. Failures are *RetrievalError.
	Fetch(ctx context.Context, location string) (*Batch, error)
}

var zipMagic = []byte("PK\x03\x04")

// maxArchiveBytes caps both the downloaded payload and the unpacked CSV.
var maxArchiveBytes = 64 << 20

// readArchive unpacks a downloaded payload: a zip whose first file is the CSV, or a bare CSV.
// When datasetDir is set the CSV is also written there under its own name.
func readArchive(data []byte, location string, datasetDir string) (*Batch, error) {
	b := &Batch{Location: location, Digest: HashContent(data)}

	csvBytes := data
	name := path.Base(strings.ReplaceAll(location, "\\", "/"))
	if bytes.HasPrefix(data, zipMagic) {
		zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return nil, fmt.Errorf("open zip: %w", err)
		}
		var entry *zip.File
		for _, f := range zr.File {
			if !f.FileInfo().IsDir() {
				entry = f
				break
			}
		}
		if entry == nil {
			return nil, errors.New("zip archive has no file")
		}
		rc, err := entry.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", entry.Name, err)
		}
		csvBytes, err = io.ReadAll(io.LimitReader(rc, int64(maxArchiveBytes)+1))
		_ = rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name, err)
		}
		if len(csvBytes) > maxArchiveBytes {
			return nil, fmt.Errorf("%s unpacks to more than %d bytes", entry.Name, maxArchiveBytes)
		}
		name = path.Base(entry.Name)
	}
	if name == "" || name == "." || name == "/" {
		return nil, fmt.Errorf("cannot derive a file name from %q", location)
	}
	b.SourceFile = name

	if strings.TrimSpace(datasetDir) != "" {
		if err := os.MkdirAll(datasetDir, 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(filepath.Join(datasetDir, name), csvBytes, 0o644); err != nil {
			return nil, err
		}
	}

	t, err := ParseCSV(bytes.NewReader(csvBytes))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	b.Table = t
	return b, nil
}

// ParseCSV reads a ';' separated archive file. Files that are not valid UTF-8 are decoded as
// Windows-1252, the encoding of the older archives. Empty header cells are named "Unnamed: <i>".
func ParseCSV(r io.Reader) (*Table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	var rd io.Reader = bytes.NewReader(raw)
	if !utf8.Valid(raw) {
		rd = transform.NewReader(rd, charmap.Windows1252.NewDecoder())
	}

	cr := csv.NewReader(rd)
	cr.Comma = ';'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty file")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	t := &Table{}
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		if seen[h] {
			h = h + "." + strconv.Itoa(i)
		}
		seen[h] = true
		t.Columns = append(t.Columns, h)
	}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(t.Rows)+1, err)
		}
		t.AddRow(rec...)
	}
	return t, nil
}

// HashContent returns the hex SHA-256 of b.
func HashContent(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
