package duckdb

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrInMemoryStore is returned by SnapshotTo when the store has no backing file.
var ErrInMemoryStore = errors.New("duckdb: in-memory store cannot be snapshotted")

// DBPath returns the database file path, or "" for an in-memory store.
func (s *Store) DBPath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dbPath
}

// SnapshotTo writes a consistent copy of the state database to dstPath.
// The copy is checked to open read-only with a kv_state table before it replaces dstPath.
func (s *Store) SnapshotTo(dstPath string) error {
	dir := filepath.Dir(dstPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("duckdb: backup dir: %w", err)
	}

	// CHECKPOINT folds the WAL into the main file; writers wait only for that.
	s.mu.Lock()
	src := s.dbPath
	if src == "" {
		s.mu.Unlock()
		return ErrInMemoryStore
	}
	_, err := s.db.Exec("CHECKPOINT")
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("duckdb: checkpoint: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(dstPath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("duckdb: backup temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if err := copyInto(tmp, src); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("duckdb: copy %s: %w", src, err)
	}
	if err := verifySnapshot(tmpPath); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dstPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("duckdb: publish backup: %w", err)
	}
	return nil
}

// copyInto copies srcPath into dst, syncs and closes dst.
func copyInto(dst *os.File, srcPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		dst.Close()
		return err
	}
	defer src.Close()

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	if err := dst.Sync(); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

func verifySnapshot(path string) error {
	db, err := sql.Open("duckdb", path+"?access_mode=read_only")
	if err != nil {
		return fmt.Errorf("duckdb: open backup: %w", err)
	}
	defer db.Close()

	var keys int
	if err := db.QueryRow("SELECT count(*) FROM kv_state").Scan(&keys); err != nil {
		return fmt.Errorf("duckdb: backup unreadable: %w", err)
	}
	return nil
}
