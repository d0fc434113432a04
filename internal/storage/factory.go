package storage

import (
	"fmt"
	"path/filepath"
)

const SQLiteFileName = "laughlin.db"

// NewStore builds a backend by name. File and sqlite backends live under dir.
func NewStore(kind, dir string) (Store, error) {
	switch kind {
	case "", "file":
		return NewFileStore(dir), nil
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(filepath.Join(dir, SQLiteFileName)), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
