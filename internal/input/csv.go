// Package input reads the URL list for a run.
package input

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// URLColumn is the required header column.
const URLColumn = "url"

// ErrMissingURLColumn is returned when the header has no url column.
var ErrMissingURLColumn = errors.New("csv header has no url column")

// ReadURLFile reads URLs from the CSV file at path.
func ReadURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open url file: %w", err)
	}
	defer f.Close()

	urls, err := ReadURLs(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return urls, nil
}

// ReadURLs parses comma-delimited CSV with a header row and returns the url
// column in file order. Blank lines and blank url cells are skipped.
func ReadURLs(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.Comma = ','
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	col := -1
	for i, name := range header {
		name = strings.TrimPrefix(name, "\ufeff")
		if strings.EqualFold(strings.TrimSpace(name), URLColumn) {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, ErrMissingURLColumn
	}

	urls := []string{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if col >= len(record) {
			continue
		}
		if u := strings.TrimSpace(record[col]); u != "" {
			urls = append(urls, u)
		}
	}
	return urls, nil
}
