package entries

import (
	"context"

	"github.com/dmitrijs2005/registadb/internal/server/models"
)

// Repository is the entry-level storage contract used by the executor.
type Repository interface {
	Store(ctx context.Context, entry *models.Entry) error
	FetchByID(ctx context.Context, id uint64) (*models.Entry, error)
	DeleteByID(ctx context.Context, id uint64) error
	List(ctx context.Context, cursor []byte, limit int) (*Page, error)
}

// Page is one slice of a newest-first scan. Next is nil on the last page.
type Page struct {
	Entries []*models.Entry
	Next    []byte
}
