// Package recordstore implements a durable table abstraction over delimited
// files. Each table is one CSV file (RFC 4180 quoting, header row naming the
// columns) in the data directory. Mutations take a per-table lock and commit
// through an atomic temp-file rename, so readers only ever observe a fully
// written table.
package recordstore

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/zeebo/blake3"

	"annuaire/internal/constants"
)

// Schema declares a table: its name and its fixed column set.
type Schema struct {
	Name    string
	Columns []string
}

// Filename returns the file name backing this table.
func (s Schema) Filename() string {
	return s.Name + constants.TableFileExt
}

// Store provides access to all tables under one data directory.
type Store struct {
	dataDir string

	mu         sync.Mutex
	tableLocks map[string]*sync.Mutex
}

// NewStore creates a store rooted at dataDir. The directory must exist.
func NewStore(dataDir string) *Store {
	return &Store{
		dataDir:    dataDir,
		tableLocks: make(map[string]*sync.Mutex),
	}
}

// DataDir returns the directory holding the table files.
func (s *Store) DataDir() string {
	return s.dataDir
}

// TablePath returns the full path of the file backing a table.
func (s *Store) TablePath(schema Schema) string {
	return filepath.Join(s.dataDir, schema.Filename())
}

// lockFor returns the exclusive lock for one table, creating it on first use.
// Locks are per table name; operations on different tables never contend.
func (s *Store) lockFor(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.tableLocks[name]
	if !ok {
		lock = &sync.Mutex{}
		s.tableLocks[name] = lock
	}
	return lock
}

// Load reads all rows of a table, excluding the header. A missing file is an
// empty table, not an error. Runs without the table lock: the atomic rename in
// save guarantees a reader sees either the previous or the new committed state.
func (s *Store) Load(schema Schema) ([][]string, error) {
	path := s.TablePath(schema)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, newStorageError(IOFailure, path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = len(schema.Columns)

	header, err := reader.Read()
	if err == io.EOF {
		// Zero-byte file: treat as empty table
		return nil, nil
	}
	if err != nil {
		return nil, classifyReadError(path, err)
	}
	if !columnsMatch(header, schema.Columns) {
		return nil, newStorageError(SchemaMismatch, path,
			fmt.Errorf("header %v does not match schema %v", header, schema.Columns))
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, classifyReadError(path, err)
		}
		rows = append(rows, record)
	}

	return rows, nil
}

// Save replaces the full table content atomically under the table lock.
func (s *Store) Save(schema Schema, rows [][]string) error {
	lock := s.lockFor(schema.Name)
	lock.Lock()
	defer lock.Unlock()

	return s.saveLocked(schema, rows)
}

// Append adds one row to the table. Logically load+append+save, executed as a
// single read-modify-write cycle under the table lock.
func (s *Store) Append(schema Schema, row []string) error {
	if len(row) != len(schema.Columns) {
		return newStorageError(SchemaMismatch, s.TablePath(schema),
			fmt.Errorf("row has %d fields, schema has %d columns", len(row), len(schema.Columns)))
	}
	return s.Update(schema, func(rows [][]string) ([][]string, error) {
		return append(rows, row), nil
	})
}

// Update runs fn on the current rows and persists its result, all under the
// table lock. If fn returns an error the table is left untouched and the lock
// is released; this is the hook services use for validate-then-commit cycles.
func (s *Store) Update(schema Schema, fn func(rows [][]string) ([][]string, error)) error {
	lock := s.lockFor(schema.Name)
	lock.Lock()
	defer lock.Unlock()

	rows, err := s.Load(schema)
	if err != nil {
		return err
	}

	updated, err := fn(rows)
	if err != nil {
		return err
	}

	return s.saveLocked(schema, updated)
}

// Create writes an empty table (header only) if the file does not exist yet.
func (s *Store) Create(schema Schema) error {
	lock := s.lockFor(schema.Name)
	lock.Lock()
	defer lock.Unlock()

	if info, err := os.Stat(s.TablePath(schema)); err == nil {
		if info.IsDir() {
			return newStorageError(IOFailure, s.TablePath(schema), fmt.Errorf("path is a directory"))
		}
		return nil
	} else if !os.IsNotExist(err) {
		return newStorageError(IOFailure, s.TablePath(schema), err)
	}

	return s.saveLocked(schema, nil)
}

// Drop removes the table file. Dropping an absent table is not an error.
func (s *Store) Drop(schema Schema) error {
	lock := s.lockFor(schema.Name)
	lock.Lock()
	defer lock.Unlock()

	err := os.Remove(s.TablePath(schema))
	if err != nil && !os.IsNotExist(err) {
		return newStorageError(IOFailure, s.TablePath(schema), err)
	}
	return nil
}

// Exists reports whether the table file is present on disk.
func (s *Store) Exists(schema Schema) (bool, error) {
	_, err := os.Stat(s.TablePath(schema))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, newStorageError(IOFailure, s.TablePath(schema), err)
}

// Fingerprint computes the BLAKE3 hex digest of the table file bytes.
// Returns "" for a missing file. Streams the file to bound memory use.
func (s *Store) Fingerprint(schema Schema) (string, error) {
	path := s.TablePath(schema)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", newStorageError(IOFailure, path, err)
	}
	defer f.Close()

	hasher := blake3.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", newStorageError(IOFailure, path, err)
	}

	return fmt.Sprintf("%x", hasher.Sum(nil)), nil
}

// saveLocked writes header+rows to a temp file in the same directory, syncs,
// and renames it over the table file. Caller must hold the table lock.
func (s *Store) saveLocked(schema Schema, rows [][]string) error {
	path := s.TablePath(schema)

	tmp, err := os.CreateTemp(s.dataDir, "."+schema.Filename()+".tmp-*")
	if err != nil {
		return newStorageError(IOFailure, path, err)
	}
	tmpPath := tmp.Name()
	// Remove the temp file on any failure path; harmless after a successful rename.
	defer os.Remove(tmpPath)

	writer := csv.NewWriter(tmp)
	if err := writer.Write(schema.Columns); err != nil {
		tmp.Close()
		return newStorageError(EncodingError, path, err)
	}
	for _, row := range rows {
		if len(row) != len(schema.Columns) {
			tmp.Close()
			return newStorageError(SchemaMismatch, path,
				fmt.Errorf("row has %d fields, schema has %d columns", len(row), len(schema.Columns)))
		}
		if err := writer.Write(row); err != nil {
			tmp.Close()
			return newStorageError(EncodingError, path, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		tmp.Close()
		return newStorageError(EncodingError, path, err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return newStorageError(IOFailure, path, err)
	}
	if err := tmp.Close(); err != nil {
		return newStorageError(IOFailure, path, err)
	}
	if err := os.Chmod(tmpPath, constants.FilePermissions); err != nil {
		return newStorageError(IOFailure, path, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return newStorageError(IOFailure, path, err)
	}
	return nil
}

// classifyReadError maps csv reader errors onto StorageError kinds. A wrong
// field count is a schema violation; any other parse error is bad encoding.
func classifyReadError(path string, err error) *StorageError {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		if errors.Is(parseErr.Err, csv.ErrFieldCount) {
			return newStorageError(SchemaMismatch, path, err)
		}
		return newStorageError(EncodingError, path, err)
	}
	return newStorageError(IOFailure, path, err)
}

func columnsMatch(header, columns []string) bool {
	if len(header) != len(columns) {
		return false
	}
	for i := range header {
		if header[i] != columns[i] {
			return false
		}
	}
	return true
}
