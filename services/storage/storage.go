package storage

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"sjsage522/pricetracker/logger"
	apperrors "sjsage522/pricetracker/pkg/errors"
)

// Storage is the persistence collaborator. Every operation fails fast with a
// StorageError and is never retried.
type Storage interface {
	MakeDir(path string) error
	WriteJSON(path string, v any) error
	ReadJSON(path string, v any) error
	WriteCSV(path string, table CSVTable) error
	WriteText(path, text string) error
	Exists(path string) bool
}

// CSVTable is a header plus rows. Columns listed in QuotedColumns are always
// double-quoted; other fields are quoted only when they need to be.
type CSVTable struct {
	Header        []string
	Rows          [][]string
	QuotedColumns []int
}

// FileStorage implements Storage on the local filesystem
type FileStorage struct {
	log *logger.Logger
}

// NewFileStorage creates a filesystem storage
func NewFileStorage() *FileStorage {
	return &FileStorage{log: logger.ForComponent("storage")}
}

// MakeDir creates path and any missing parents
func (s *FileStorage) MakeDir(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return apperrors.NewStorage(path, "could not create directory", err)
	}
	return nil
}

// WriteJSON writes v as indented JSON
func (s *FileStorage) WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return apperrors.NewStorage(path, "could not encode JSON", err)
	}
	return s.write(path, append(data, '\n'))
}

// ReadJSON decodes the JSON file at path into v
func (s *FileStorage) ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return apperrors.NewStorage(path, "could not read file", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return apperrors.NewStorage(path, "could not decode JSON", err)
	}
	return nil
}

// WriteCSV writes table as comma separated rows ending in "\n"
func (s *FileStorage) WriteCSV(path string, table CSVTable) error {
	quoted := make(map[int]bool, len(table.QuotedColumns))
	for _, c := range table.QuotedColumns {
		quoted[c] = true
	}

	var sb strings.Builder
	writeCSVRow(&sb, table.Header, nil)
	for _, row := range table.Rows {
		writeCSVRow(&sb, row, quoted)
	}
	return s.write(path, []byte(sb.String()))
}

// WriteText writes text as-is
func (s *FileStorage) WriteText(path, text string) error {
	return s.write(path, []byte(text))
}

// Exists reports whether path exists
func (s *FileStorage) Exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}

func (s *FileStorage) write(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.NewStorage(path, "could not create parent directory", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return apperrors.NewStorage(path, "could not write file", err)
	}
	s.log.Debug().Str("path", path).Int("bytes", len(data)).Msg("Wrote file")
	return nil
}

func writeCSVRow(sb *strings.Builder, fields []string, quoted map[int]bool) {
	for i, field := range fields {
		if i > 0 {
			sb.WriteByte(',')
		}
		if quoted[i] || strings.ContainsAny(field, ",\"\r\n") || strings.HasPrefix(field, " ") {
			sb.WriteString(`"` + strings.ReplaceAll(field, `"`, `""`) + `"`)
			continue
		}
		sb.WriteString(field)
	}
	sb.WriteByte('\n')
}
