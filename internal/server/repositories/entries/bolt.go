// Package entries maps entries onto the storage engine's two namespaces: the
// data record keyed by (created_at, id) and the index record keyed by id
// alone, whose value is the data record's key.
package entries

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/registadb/internal/common"
	"github.com/dmitrijs2005/registadb/internal/server/models"
	"github.com/dmitrijs2005/registadb/internal/server/storage"
	"github.com/dmitrijs2005/registadb/internal/wire"
)

// BoltRepository implements Repository over a storage.Engine.
type BoltRepository struct {
	engine *storage.Engine
}

// NewBoltRepository constructs a repository bound to the given engine.
func NewBoltRepository(engine *storage.Engine) *BoltRepository {
	return &BoltRepository{engine: engine}
}

// Store writes entry under its (CreatedAt, ID) primary key and points the
// index at it, in one atomic batch. The caller fills ID and CreatedAt.
//
// If the index already points at a different primary key (the same id
// stored again with another CreatedAt) the superseded data record is
// deleted in the same batch, so no orphan is left behind.
func (r *BoltRepository) Store(ctx context.Context, entry *models.Entry) error {
	if entry == nil {
		return fmt.Errorf("%w: nil entry", common.ErrInvalidArgument)
	}
	if entry.ID == 0 {
		return fmt.Errorf("%w: entry id is not assigned", common.ErrInvalidArgument)
	}
	if entry.CreatedAt.IsZero() || entry.CreatedAt.UnixMicro() < 0 {
		return fmt.Errorf("%w: entry %d has no valid created_at", common.ErrInvalidArgument, entry.ID)
	}

	data, err := wire.MarshalEntry(entry)
	if err != nil {
		return fmt.Errorf("%w: entry %d: %v", common.ErrInvalidArgument, entry.ID, err)
	}

	primary := storage.EncodePrimaryKey(uint64(entry.CreatedAt.UnixMicro()), entry.ID)
	index := storage.EncodeIndexKey(entry.ID)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("store entry %d: %w", entry.ID, err)
	}
	return r.engine.Update(func(tx *storage.Txn) error {
		prev, err := tx.Get(storage.NamespaceIndex, index)
		if err != nil {
			return err
		}
		if prev != nil && !bytes.Equal(prev, primary) {
			if err := tx.Delete(storage.NamespaceData, prev); err != nil {
				return err
			}
		}
		if err := tx.Put(storage.NamespaceIndex, index, primary); err != nil {
			return err
		}
		return tx.Put(storage.NamespaceData, primary, data)
	})
}

// FetchByID resolves id through the index and reads the data record. Both
// reads happen in one read transaction. A missing index record is
// common.ErrorNotFound; an index record without its data record is a
// consistency fault reported as common.ErrStorageRead.
func (r *BoltRepository) FetchByID(ctx context.Context, id uint64) (*models.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("fetch entry %d: %w", id, err)
	}

	var raw []byte
	err := r.engine.View(func(tx *storage.Txn) error {
		primary, err := tx.Get(storage.NamespaceIndex, storage.EncodeIndexKey(id))
		if err != nil {
			return fmt.Errorf("%w: index lookup: %v", common.ErrStorageRead, err)
		}
		if primary == nil {
			return common.ErrorNotFound
		}
		raw, err = tx.Get(storage.NamespaceData, primary)
		if err != nil {
			return fmt.Errorf("%w: data lookup: %v", common.ErrStorageRead, err)
		}
		if raw == nil {
			return fmt.Errorf("entry %d: %w: %w", id, common.ErrStorageRead, common.ErrConsistency)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	entry, err := wire.UnmarshalEntry(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: entry %d: %v", common.ErrStorageRead, id, err)
	}
	return entry, nil
}

// DeleteByID removes the index and data records of id in one atomic batch.
// A missing index record is common.ErrorNotFound and changes nothing.
func (r *BoltRepository) DeleteByID(ctx context.Context, id uint64) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete entry %d: %w", id, err)
	}

	index := storage.EncodeIndexKey(id)
	found := false

	err := r.engine.Update(func(tx *storage.Txn) error {
		primary, err := tx.Get(storage.NamespaceIndex, index)
		if err != nil || primary == nil {
			return err
		}
		found = true
		if err := tx.Delete(storage.NamespaceIndex, index); err != nil {
			return err
		}
		return tx.Delete(storage.NamespaceData, primary)
	})
	if err != nil {
		return err
	}
	if !found {
		return common.ErrorNotFound
	}
	return nil
}

var errPageFull = errors.New("page full")

// List returns up to limit entries newest first, starting at cursor (nil
// for the first page). Pass Page.Next back as cursor to continue.
func (r *BoltRepository) List(ctx context.Context, cursor []byte, limit int) (*Page, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", common.ErrInvalidArgument)
	}
	if cursor != nil && len(cursor) != storage.PrimaryKeyLen+1 {
		return nil, fmt.Errorf("%w: malformed cursor", common.ErrInvalidArgument)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	page := &Page{}
	var lastKey []byte

	err := r.engine.IterateFrom(storage.NamespaceData, cursor, func(k, v []byte) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if len(page.Entries) == limit {
			// one more record exists beyond the page
			return false, errPageFull
		}
		e, err := wire.UnmarshalEntry(v)
		if err != nil {
			return false, fmt.Errorf("%w: record %x: %v", common.ErrStorageRead, k, err)
		}
		page.Entries = append(page.Entries, e)
		lastKey = k
		return true, nil
	})
	switch {
	case errors.Is(err, errPageFull):
		// Keys are fixed width, so lastKey+0x00 sorts after lastKey and
		// before every later key.
		page.Next = append(lastKey, 0)
	case err != nil:
		return nil, err
	}
	return page, nil
}
