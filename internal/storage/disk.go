package storage

import (
	"os"
)

// DatabaseSizeBytes returns the on-disk size of a SQLite database including its WAL and
// shared-memory files. Missing files count as zero; in-memory databases report 0.
func DatabaseSizeBytes(dbPath string) (int64, error) {
	if dbPath == "" || dbPath == ":memory:" {
		return 0, nil
	}
	var total int64
	for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, err
		}
		if !info.IsDir() {
			total += info.Size()
		}
	}
	return total, nil
}

// SizeBytes returns the on-disk size of the database.
func (s *SQLiteStorage) SizeBytes() (int64, error) {
	return DatabaseSizeBytes(s.path)
}
