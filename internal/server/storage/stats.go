package storage

import (
	"time"

	"github.com/dmitrijs2005/registadb/internal/common"
)

// Stats is a point-in-time copy of the engine counters. Tx* fields are
// cumulative since Open.
type Stats struct {
	FreePages     int
	PendingPages  int
	FreeAlloc     int
	FreelistInuse int
	ReadTxTotal   int
	OpenReadTx    int

	TxPageCount   int64
	TxPageAlloc   int64
	TxCursorCount int64
	TxNodeCount   int64
	TxRebalance   int64
	TxSplit       int64
	TxSpill       int64
	TxWrite       int64
	TxWriteTime   time.Duration
	TxSpillTime   time.Duration

	IndexKeys int
	DataKeys  int
}

// Stats collects engine counters and namespace sizes. It fails with
// common.ErrStatisticsDisabled unless the engine was opened with
// Options.Statistics.
func (e *Engine) Stats() (Stats, error) {
	if !e.statistics {
		return Stats{}, common.ErrStatisticsDisabled
	}

	s := e.db.Stats()
	out := Stats{
		FreePages:     s.FreePageN,
		PendingPages:  s.PendingPageN,
		FreeAlloc:     s.FreeAlloc,
		FreelistInuse: s.FreelistInuse,
		ReadTxTotal:   s.TxN,
		OpenReadTx:    s.OpenTxN,
		TxPageCount:   s.TxStats.GetPageCount(),
		TxPageAlloc:   s.TxStats.GetPageAlloc(),
		TxCursorCount: s.TxStats.GetCursorCount(),
		TxNodeCount:   s.TxStats.GetNodeCount(),
		TxRebalance:   s.TxStats.GetRebalance(),
		TxSplit:       s.TxStats.GetSplit(),
		TxSpill:       s.TxStats.GetSpill(),
		TxWrite:       s.TxStats.GetWrite(),
		TxWriteTime:   s.TxStats.GetWriteTime(),
		TxSpillTime:   s.TxStats.GetSpillTime(),
	}

	var err error
	if out.IndexKeys, err = e.Len(NamespaceIndex); err != nil {
		return out, err
	}
	if out.DataKeys, err = e.Len(NamespaceData); err != nil {
		return out, err
	}
	return out, nil
}
