// Package kvstore is a narrow transactional KV abstraction: begin
// (implicit in Update/View), commit/abort (implicit in the closure's
// return), get, put (with an optional no-overwrite mode), cursor, and a
// per-namespace id allocator. It is backed by
// github.com/dgraph-io/badger/v4.
package kvstore

import (
	"errors"
	"fmt"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// ErrKeyExists is returned by Txn.Put when NoOverwrite is requested and
// the key is already present.
var ErrKeyExists = errors.New("kvstore: key exists")

// DB is a handle to the on-disk KV engine backing one repository.
type DB struct {
	bdb *badger.DB
	log *zap.SugaredLogger

	mu   sync.Mutex
	seqs map[Tag]*badger.Sequence
}

// Open opens (creating if absent) a badger database rooted at path.
func Open(path string, log *zap.SugaredLogger) (*DB, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	opts := badger.DefaultOptions(path).WithLogger(nil)
	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("kvstore: open %s: %w", path, err)
	}
	return &DB{bdb: bdb, log: log, seqs: make(map[Tag]*badger.Sequence)}, nil
}

// Close releases the underlying database handle and any outstanding id
// sequences.
func (db *DB) Close() error {
	if db == nil || db.bdb == nil {
		return nil
	}
	db.mu.Lock()
	for _, seq := range db.seqs {
		seq.Release()
	}
	db.mu.Unlock()
	return db.bdb.Close()
}

// Txn wraps a single badger transaction, exposing only the operations
// the core needs.
type Txn struct {
	txn *badger.Txn
	db  *DB
}

// Update runs fn inside a single read-write transaction. If fn returns an
// error the transaction is discarded (aborted) rather than committed;
// otherwise it is committed. This is the only supported way to obtain a
// read-write Txn, so begin/commit/abort collapse into one call.
func (db *DB) Update(fn func(txn *Txn) error) error {
	return db.bdb.Update(func(bt *badger.Txn) error {
		return fn(&Txn{txn: bt, db: db})
	})
}

// View runs fn inside a single read-only transaction.
func (db *DB) View(fn func(txn *Txn) error) error {
	return db.bdb.View(func(bt *badger.Txn) error {
		return fn(&Txn{txn: bt, db: db})
	})
}

// Get reads the value stored at key, returning (nil, false, nil) if absent.
func (t *Txn) Get(key []byte) ([]byte, bool, error) {
	item, err := t.txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var val []byte
	err = item.Value(func(v []byte) error {
		val = append(val, v...)
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Put writes key=value. If noOverwrite is true and key already exists,
// Put leaves the store untouched and returns ErrKeyExists; the caller is
// expected to fall back to Get to recover the existing value (the
// collided-insert dedup path).
func (t *Txn) Put(key, value []byte, noOverwrite bool) error {
	if noOverwrite {
		if _, found, err := t.Get(key); err != nil {
			return err
		} else if found {
			return ErrKeyExists
		}
	}
	return t.txn.Set(key, value)
}

// Cursor iterates all keys with the given prefix in ascending order,
// invoking fn(key, value) for each. Iteration stops early if fn returns
// false or a non-nil error.
func (t *Txn) Cursor(prefix []byte, fn func(key, value []byte) (bool, error)) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := t.txn.NewIterator(opts)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		key := item.KeyCopy(nil)
		var val []byte
		if err := item.Value(func(v []byte) error {
			val = append(val, v...)
			return nil
		}); err != nil {
			return err
		}
		cont, err := fn(key, val)
		if err != nil {
			return err
		}
		if !cont {
			break
		}
	}
	return nil
}

// CursorReverse iterates all keys with the given prefix in descending
// order, used to seek to the most recently inserted entries first.
func (t *Txn) CursorReverse(prefix []byte, fn func(key, value []byte) (bool, error)) error {
	opts := badger.DefaultIteratorOptions
	opts.Reverse = true
	opts.Prefix = prefix
	// badger's reverse iteration seeks from the key just past the prefix.
	seek := append(append([]byte{}, prefix...), 0xff)
	it := t.txn.NewIterator(opts)
	defer it.Close()
	for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		key := item.KeyCopy(nil)
		var val []byte
		if err := item.Value(func(v []byte) error {
			val = append(val, v...)
			return nil
		}); err != nil {
			return err
		}
		cont, err := fn(key, val)
		if err != nil {
			return err
		}
		if !cont {
			break
		}
	}
	return nil
}

// NextID allocates the next id from tag's monotonic counter, backed by a
// badger.Sequence cached per DB and leased lazily on first use. tag
// namespaces the counter, so e.g. file ids and user ids are allocated
// independently. IDs start at 1: a badger.Sequence's first Next() call
// returns 0, which several callers reserve as a "nothing allocated yet"
// sentinel, so 0 is drawn and discarded the first time a tag is used.
func (db *DB) NextID(tag Tag) (uint64, error) {
	db.mu.Lock()
	seq, ok := db.seqs[tag]
	if !ok {
		var err error
		seqKey := append([]byte("seq:"), byte(tag))
		seq, err = db.bdb.GetSequence(seqKey, 100)
		if err != nil {
			db.mu.Unlock()
			return 0, fmt.Errorf("kvstore: sequence for tag %d: %w", tag, err)
		}
		db.seqs[tag] = seq
		if _, err := seq.Next(); err != nil {
			db.mu.Unlock()
			return 0, fmt.Errorf("kvstore: sequence for tag %d: discard zero id: %w", tag, err)
		}
	}
	db.mu.Unlock()
	return seq.Next()
}
