// Package csvinput reads import entries from a delimited file whose header
// row names exactly the entry fields.
package csvinput

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bcnelson/guacamole-csv-importer/internal/domain"
	"github.com/bcnelson/guacamole-csv-importer/internal/validation"
)

const utf8BOM = "\ufeff"

// ReadFile parses the entries of the CSV file at path.
func ReadFile(path string) ([]domain.Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening import file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Parse(f)
}

// Parse reads entries from r. All row problems are collected and returned
// together as validation.ValidationErrors; no entries are returned then.
func Parse(r io.Reader) ([]domain.Entry, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: import file is empty", domain.ErrInvalidInput)
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], utf8BOM))
	}
	if !validation.ValidateHeaders(header) {
		return nil, fmt.Errorf("%w: header must be exactly %s, got %s", domain.ErrInvalidInput,
			strings.Join(domain.EntryFields, ","), strings.Join(header, ","))
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[h] = i
	}

	var entries []domain.Entry
	var errs validation.ValidationErrors
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading import file: %w", err)
		}
		line, _ := reader.FieldPos(0)
		if isBlank(rec) {
			continue
		}

		entry, rowErr := processRow(line, rec, index)
		if rowErr != nil {
			var verrs validation.ValidationErrors
			if errors.As(rowErr, &verrs) {
				errs = append(errs, verrs...)
				continue
			}
			return nil, rowErr
		}
		entries = append(entries, entry)
	}

	if errs.HasErrors() {
		return nil, errs
	}
	return entries, nil
}

func processRow(line int, rec []string, index map[string]int) (domain.Entry, error) {
	get := func(name string) string {
		i, ok := index[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	entry := domain.Entry{
		Line:       line,
		Site:       get("site"),
		DeviceName: get("device_name"),
		Hostname:   get("hostname"),
		Protocol:   domain.Protocol(get("protocol")),
		Port:       get("port"),
		Username:   get("username"),
		Password:   get("password"),
	}
	if err := validation.ValidateEntry(entry); err != nil {
		return domain.Entry{}, err
	}
	return entry, nil
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
