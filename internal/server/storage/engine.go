package storage

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/dmitrijs2005/registadb/internal/common"
	"github.com/dmitrijs2005/registadb/internal/filex"
	"github.com/gofrs/flock"
	"go.etcd.io/bbolt"
)

// Namespace is a logically isolated keyspace inside the engine.
type Namespace string

const (
	NamespaceDefault Namespace = "default"
	NamespaceIndex   Namespace = "index"
	NamespaceData    Namespace = "data"
)

var namespaces = []Namespace{NamespaceDefault, NamespaceIndex, NamespaceData}

const (
	dbFileName   = "registadb.db"
	lockFileName = "LOCK"
)

// OpKind is the kind of a batch operation.
type OpKind int

const (
	OpPut OpKind = iota
	OpDelete
)

// Op is one element of an atomic batch.
type Op struct {
	Kind      OpKind
	Namespace Namespace
	Key       []byte
	Value     []byte
}

// Put returns a Put operation.
func Put(ns Namespace, key, value []byte) Op {
	return Op{Kind: OpPut, Namespace: ns, Key: key, Value: value}
}

// Delete returns a Delete operation.
func Delete(ns Namespace, key []byte) Op {
	return Op{Kind: OpDelete, Namespace: ns, Key: key}
}

// Options tune Open.
type Options struct {
	// Statistics marks the engine as exporting its counters to a metrics bridge.
	Statistics bool
	// OpenTimeout bounds the wait for the engine's file lock. Zero means one second.
	OpenTimeout time.Duration
	// NoSync skips fsync on commit. Only for tests.
	NoSync bool
}

// Engine owns the bbolt handle, the directory lock and the identifier
// generator recovered from the index namespace. It is safe for concurrent use.
type Engine struct {
	dir        string
	db         *bbolt.DB
	lock       *flock.Flock
	ids        *IDGenerator
	statistics bool

	closeOnce sync.Once
	closeErr  error
}

// Open opens or creates the storage directory at dir. It fails with
// common.ErrStorageUnavailable when the directory cannot be created or
// opened, or when another process holds it.
func Open(dir string, opts Options) (*Engine, error) {
	dir, err := filex.EnsureDir(dir, 0o750)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
	}

	lock := flock.New(filepath.Join(dir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("%w: lock %s: %v", common.ErrStorageUnavailable, dir, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s is locked by another process", common.ErrStorageUnavailable, dir)
	}

	timeout := opts.OpenTimeout
	if timeout == 0 {
		timeout = time.Second
	}

	db, err := bbolt.Open(filepath.Join(dir, dbFileName), 0o600, &bbolt.Options{Timeout: timeout, NoSync: opts.NoSync})
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("%w: open %s: %v", common.ErrStorageUnavailable, dir, err)
	}

	e := &Engine{dir: dir, db: db, lock: lock, statistics: opts.Statistics}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, ns := range namespaces {
			if _, err := tx.CreateBucketIfNotExists([]byte(ns)); err != nil {
				return fmt.Errorf("create namespace %s: %w", ns, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = e.Close()
		return nil, fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
	}

	seed, err := e.recoverLastID()
	if err != nil {
		_ = e.Close()
		return nil, fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
	}
	e.ids = NewIDGenerator(seed)

	return e, nil
}

// recoverLastID reads the first index key. Index keys are inverted, so it
// belongs to the largest id ever stored; an empty index yields 0.
func (e *Engine) recoverLastID() (uint64, error) {
	var last uint64
	err := e.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(NamespaceIndex))
		if b == nil {
			return fmt.Errorf("namespace %s missing", NamespaceIndex)
		}
		k, _ := b.Cursor().First()
		if k == nil {
			return nil
		}
		if len(k) != IndexKeyLen {
			return fmt.Errorf("index key of %d bytes", len(k))
		}
		last = DecodeIndexKey(k)
		return nil
	})
	return last, err
}

// Dir returns the storage directory.
func (e *Engine) Dir() string {
	return e.dir
}

// IDs returns the identifier generator seeded at Open.
func (e *Engine) IDs() *IDGenerator {
	return e.ids
}

// StatisticsEnabled reports whether Open was asked to export statistics.
func (e *Engine) StatisticsEnabled() bool {
	return e.statistics
}

// AtomicBatch commits ops as one unit: all of them or none.
func (e *Engine) AtomicBatch(ops []Op) error {
	return e.Update(func(tx *Txn) error {
		for _, op := range ops {
			var err error
			switch op.Kind {
			case OpPut:
				err = tx.Put(op.Namespace, op.Key, op.Value)
			case OpDelete:
				err = tx.Delete(op.Namespace, op.Key)
			default:
				err = fmt.Errorf("unknown batch op %d", op.Kind)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Update runs fn inside one read-write transaction. Reads made through tx see
// the batch's own writes; the whole batch commits when fn returns nil and is
// discarded otherwise.
func (e *Engine) Update(fn func(tx *Txn) error) error {
	err := e.db.Update(func(btx *bbolt.Tx) error {
		return fn(&Txn{tx: btx})
	})
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrStorageWrite, err)
	}
	return nil
}

// View runs fn inside one read-only transaction, so several reads observe
// the same committed state. Writes through tx fail.
func (e *Engine) View(fn func(tx *Txn) error) error {
	var fnErr error
	err := e.db.View(func(btx *bbolt.Tx) error {
		fnErr = fn(&Txn{tx: btx})
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrStorageRead, err)
	}
	return fnErr
}

// Get returns a copy of the value stored under key, or common.ErrorNotFound.
func (e *Engine) Get(ns Namespace, key []byte) ([]byte, error) {
	var value []byte
	err := e.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(ns))
		if b == nil {
			return fmt.Errorf("namespace %s missing", ns)
		}
		if v := b.Get(key); v != nil {
			value = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorageRead, err)
	}
	if value == nil {
		return nil, common.ErrorNotFound
	}
	return value, nil
}

// Iterate walks ns in byte-lexicographic order. fn receives copies and
// returns false to stop early.
func (e *Engine) Iterate(ns Namespace, fn func(k, v []byte) (bool, error)) error {
	return e.IterateFrom(ns, nil, fn)
}

// IterateFrom is Iterate starting at the first key >= start.
func (e *Engine) IterateFrom(ns Namespace, start []byte, fn func(k, v []byte) (bool, error)) error {
	var fnErr error
	err := e.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(ns))
		if b == nil {
			return fmt.Errorf("namespace %s missing", ns)
		}
		c := b.Cursor()
		var k, v []byte
		if start == nil {
			k, v = c.First()
		} else {
			k, v = c.Seek(start)
		}
		for ; k != nil; k, v = c.Next() {
			more, err := fn(append([]byte{}, k...), append([]byte{}, v...))
			if err != nil {
				fnErr = err
				return nil
			}
			if !more {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrStorageRead, err)
	}
	return fnErr
}

// Len returns the number of keys in ns.
func (e *Engine) Len(ns Namespace) (int, error) {
	var n int
	err := e.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(ns))
		if b == nil {
			return fmt.Errorf("namespace %s missing", ns)
		}
		n = b.Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrStorageRead, err)
	}
	return n, nil
}

// Snapshot writes a consistent copy of the database file to w while readers
// and writers keep running.
func (e *Engine) Snapshot(w io.Writer) (int64, error) {
	var n int64
	err := e.db.View(func(tx *bbolt.Tx) error {
		var err error
		n, err = tx.WriteTo(w)
		return err
	})
	if err != nil {
		return n, fmt.Errorf("%w: snapshot: %v", common.ErrStorageRead, err)
	}
	return n, nil
}

// Close closes the engine handle and then releases the directory lock.
// Calling it again returns the first result.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		dbErr := e.db.Close()
		lockErr := e.lock.Unlock()
		e.closeErr = errors.Join(dbErr, lockErr)
	})
	return e.closeErr
}

// Txn is the view of an open transaction handed to Update or View.
type Txn struct {
	tx *bbolt.Tx
}

// Get returns a copy of the value under key, or nil if absent.
func (t *Txn) Get(ns Namespace, key []byte) ([]byte, error) {
	b := t.tx.Bucket([]byte(ns))
	if b == nil {
		return nil, fmt.Errorf("namespace %s missing", ns)
	}
	v := b.Get(key)
	if v == nil {
		return nil, nil
	}
	return append([]byte{}, v...), nil
}

func (t *Txn) Put(ns Namespace, key, value []byte) error {
	b := t.tx.Bucket([]byte(ns))
	if b == nil {
		return fmt.Errorf("namespace %s missing", ns)
	}
	return b.Put(key, value)
}

func (t *Txn) Delete(ns Namespace, key []byte) error {
	b := t.tx.Bucket([]byte(ns))
	if b == nil {
		return fmt.Errorf("namespace %s missing", ns)
	}
	return b.Delete(key)
}
