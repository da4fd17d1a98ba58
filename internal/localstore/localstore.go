// Package localstore reads and writes the on-disk fallback files: CSV
// mirrors of the client table and history ledger, JSON files for catalogs
// and users. A missing file is not an error condition for callers that
// treat local data as a fallback; they get apperr.KindNotFound and decide.
package localstore

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"

	"crm-backend/internal/apperr"
)

type Store struct {
	dir string
}

// New creates the data directory when absent.
func New(dir string) (*Store, error) {
	if dir == "" {
		dir = "data"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

// Dir returns the data directory path.
func (s *Store) Dir() string { return s.dir }

// Path returns the absolute path of a file inside the data directory.
func (s *Store) Path(name string) string { return filepath.Join(s.dir, name) }

// LoadCSV reads a CSV file as header plus rows.
func (s *Store) LoadCSV(name string) (header []string, rows [][]string, err error) {
	f, err := os.Open(s.Path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, apperr.NotFound(err)
		}
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // tolerate ragged rows
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, apperr.MalformedData(err)
	}
	if len(records) == 0 {
		return nil, nil, nil
	}
	return records[0], records[1:], nil
}

// SaveCSV writes header plus rows atomically (temp file + rename).
func (s *Store) SaveCSV(name string, header []string, rows [][]string) error {
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		tmp.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.Path(name))
}

// LoadJSON decodes a JSON file into v.
func (s *Store) LoadJSON(name string, v any) error {
	b, err := os.ReadFile(s.Path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return apperr.NotFound(err)
		}
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return apperr.MalformedData(err)
	}
	return nil
}

// SaveJSON writes v as indented JSON.
func (s *Store) SaveJSON(name string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.Path(name), b, 0o644)
}
