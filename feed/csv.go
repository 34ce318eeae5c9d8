package feed

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// CSVDir reads feeds from delimited files below a directory.
type CSVDir struct {
	Dir       string
	Files     map[string]string // feed name -> path override, relative to Dir
	Delimiter rune
}

// NewCSVDir creates a CSV source rooted at dir.
func NewCSVDir(dir string, files map[string]string) *CSVDir {
	return &CSVDir{Dir: dir, Files: files, Delimiter: ','}
}

// Path returns the file a feed is read from.
func (s *CSVDir) Path(f Feed) string {
	name := f.File
	if override, ok := s.Files[f.Name]; ok && override != "" {
		name = override
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.Dir, name)
}

// Read loads the whole file for f. Ragged rows, an empty file or an
// undecodable file fail the feed.
func (s *CSVDir) Read(ctx context.Context, f Feed) (*RowSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := s.Path(f)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	decoded, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	rs, err := parseDelimited(decoded, s.Delimiter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	rs.Feed = f.Name
	return rs, nil
}

func parseDelimited(data []byte, delimiter rune) (*RowSet, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	if delimiter != 0 {
		reader.Comma = delimiter
	}
	// Every row must have as many fields as the header.
	reader.FieldsPerRecord = 0
	reader.TrimLeadingSpace = false

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty file: no header row found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}

	rs := &RowSet{Header: header}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("malformed row: %w", err)
		}
		rs.Rows = append(rs.Rows, row)
	}
	return rs, nil
}

// decode converts the feed bytes to UTF-8. A BOM selects UTF-8 or UTF-16;
// without one, invalid UTF-8 is read as Latin-1.
func decode(data []byte) ([]byte, error) {
	if hasBOM(data) {
		out, _, err := transform.Bytes(unicode.BOMOverride(transform.Nop), data)
		return out, err
	}
	if utf8.Valid(data) {
		return data, nil
	}
	return charmap.ISO8859_1.NewDecoder().Bytes(data)
}

func hasBOM(data []byte) bool {
	return bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) ||
		bytes.HasPrefix(data, []byte{0xFF, 0xFE}) ||
		bytes.HasPrefix(data, []byte{0xFE, 0xFF})
}
