package runner

import (
	"github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// DiskStore persists analyzer results in a badger database under the
// repository's cache directory. Every internal failure (I/O, codec,
// schema drift) degrades to a miss; the store never surfaces errors to
// the runner.
type DiskStore struct {
	db *badger.DB
}

// OpenDiskStore opens (or creates) the cache database at dir.
func OpenDiskStore(dir string) (*DiskStore, error) {
	opts := badger.DefaultOptions(dir).
		WithLogger(nil).
		WithNumVersionsToKeep(1)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &DiskStore{db: db}, nil
}

func (s *DiskStore) Get(key string) (*Entry, bool) {
	var e Entry
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return msgpack.Unmarshal(val, &e)
		})
	})
	if err != nil || e.SchemaVersion != EntrySchemaVersion {
		return nil, false
	}
	return &e, true
}

func (s *DiskStore) Put(key string, e *Entry) {
	val, err := msgpack.Marshal(e)
	if err != nil {
		return
	}
	_ = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), val)
	})
}

// Stats reports entry count and on-disk size.
func (s *DiskStore) Stats() (entries int, sizeBytes int64) {
	_ = s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			entries++
		}
		return nil
	})
	lsm, vlog := s.db.Size()
	return entries, lsm + vlog
}

// Clear drops every cached entry.
func (s *DiskStore) Clear() error {
	return s.db.DropAll()
}

func (s *DiskStore) Close() error {
	return s.db.Close()
}
