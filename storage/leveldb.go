package storage

import (
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	lvlstorage "github.com/syndtr/goleveldb/leveldb/storage"
)

// LevelDB persists state with goleveldb. Batches are written with fsync.
type LevelDB struct {
	db *leveldb.DB
}

// NewLevelDB opens the database under path, creating it when missing.
func NewLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	return &LevelDB{db: db}, nil
}

// NewMemLevelDB opens goleveldb over its in-memory storage.
func NewMemLevelDB() (*LevelDB, error) {
	db, err := leveldb.Open(lvlstorage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}
	return &LevelDB{db: db}, nil
}

func (l *LevelDB) Put(key []byte, value []byte) error {
	return l.db.Put(key, value, nil)
}

func (l *LevelDB) Get(key []byte) ([]byte, error) {
	value, err := l.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	return value, err
}

func (l *LevelDB) Delete(key []byte) error {
	return l.db.Delete(key, nil)
}

func (l *LevelDB) Write(batch *Batch) error {
	if batch.Len() == 0 {
		return nil
	}
	var lb leveldb.Batch
	batch.replay(lb.Put, lb.Delete)
	return l.db.Write(&lb, &opt.WriteOptions{Sync: true})
}

func (l *LevelDB) Close() {
	_ = l.db.Close()
}
