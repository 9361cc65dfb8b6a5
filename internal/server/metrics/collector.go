// Package metrics bridges engine statistics to Prometheus. Everything is
// read at scrape time; nothing is cached between scrapes.
package metrics

import (
	"context"

	"github.com/dmitrijs2005/registadb/internal/logging"
	"github.com/dmitrijs2005/registadb/internal/server/storage"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "registadb"

// StatsSource is implemented by *storage.Engine.
type StatsSource interface {
	Stats() (storage.Stats, error)
}

// IDSource is implemented by *storage.IDGenerator.
type IDSource interface {
	Last() uint64
}

// IngestCounters is implemented by *ingest.IngestServer.
type IngestCounters interface {
	Accepted() uint64
	Dropped() uint64
}

type metric struct {
	desc  *prometheus.Desc
	kind  prometheus.ValueType
	value func(storage.Stats) float64
}

// Collector exports one storage.Stats snapshot per scrape plus the optional
// identifier and ingest counters.
type Collector struct {
	src    StatsSource
	ids    IDSource
	ingest IngestCounters
	logger logging.Logger

	engine         []metric
	lastID         *prometheus.Desc
	ingestAccepted *prometheus.Desc
	ingestDropped  *prometheus.Desc
	scrapeErrors   prometheus.Counter
}

// NewCollector builds a collector over src. ids and ingest may be nil.
func NewCollector(src StatsSource, ids IDSource, ingest IngestCounters, l logging.Logger) *Collector {
	gauge := func(name, help string, f func(storage.Stats) float64) metric {
		return metric{prometheus.NewDesc(prometheus.BuildFQName(namespace, "engine", name), help, nil, nil), prometheus.GaugeValue, f}
	}
	counter := func(name, help string, f func(storage.Stats) float64) metric {
		return metric{prometheus.NewDesc(prometheus.BuildFQName(namespace, "engine", name), help, nil, nil), prometheus.CounterValue, f}
	}

	return &Collector{
		src:    src,
		ids:    ids,
		ingest: ingest,
		logger: l.With("module", "metrics"),
		engine: []metric{
			gauge("free_pages", "Free pages on the freelist.", func(s storage.Stats) float64 { return float64(s.FreePages) }),
			gauge("pending_pages", "Pages pending release on the freelist.", func(s storage.Stats) float64 { return float64(s.PendingPages) }),
			gauge("free_alloc_bytes", "Bytes allocated in free pages.", func(s storage.Stats) float64 { return float64(s.FreeAlloc) }),
			gauge("freelist_inuse_bytes", "Bytes used by the freelist.", func(s storage.Stats) float64 { return float64(s.FreelistInuse) }),
			gauge("open_read_transactions", "Currently open read transactions.", func(s storage.Stats) float64 { return float64(s.OpenReadTx) }),
			counter("read_transactions_total", "Read transactions started.", func(s storage.Stats) float64 { return float64(s.ReadTxTotal) }),
			counter("page_allocations_total", "Page allocations.", func(s storage.Stats) float64 { return float64(s.TxPageCount) }),
			counter("page_alloc_bytes_total", "Bytes allocated for pages.", func(s storage.Stats) float64 { return float64(s.TxPageAlloc) }),
			counter("cursors_total", "Cursors created.", func(s storage.Stats) float64 { return float64(s.TxCursorCount) }),
			counter("node_allocations_total", "Node allocations.", func(s storage.Stats) float64 { return float64(s.TxNodeCount) }),
			counter("rebalances_total", "Node rebalances.", func(s storage.Stats) float64 { return float64(s.TxRebalance) }),
			counter("splits_total", "Node splits.", func(s storage.Stats) float64 { return float64(s.TxSplit) }),
			counter("spills_total", "Node spills.", func(s storage.Stats) float64 { return float64(s.TxSpill) }),
			counter("writes_total", "Page writes.", func(s storage.Stats) float64 { return float64(s.TxWrite) }),
			counter("write_seconds_total", "Time spent writing to disk.", func(s storage.Stats) float64 { return s.TxWriteTime.Seconds() }),
			counter("spill_seconds_total", "Time spent spilling.", func(s storage.Stats) float64 { return s.TxSpillTime.Seconds() }),
			gauge("index_keys", "Records in the index namespace.", func(s storage.Stats) float64 { return float64(s.IndexKeys) }),
			gauge("data_keys", "Records in the data namespace.", func(s storage.Stats) float64 { return float64(s.DataKeys) }),
		},
		lastID:         prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "last_id"), "Highest identifier allocated or observed.", nil, nil),
		ingestAccepted: prometheus.NewDesc(prometheus.BuildFQName(namespace, "ingest", "accepted_total"), "Ingest frames stored.", nil, nil),
		ingestDropped:  prometheus.NewDesc(prometheus.BuildFQName(namespace, "ingest", "dropped_total"), "Ingest frames dropped.", nil, nil),
		scrapeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "stats_errors_total",
			Help:      "Failed attempts to read engine statistics.",
		}),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.engine {
		ch <- m.desc
	}
	if c.ids != nil {
		ch <- c.lastID
	}
	if c.ingest != nil {
		ch <- c.ingestAccepted
		ch <- c.ingestDropped
	}
	c.scrapeErrors.Describe(ch)
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	stats, err := c.src.Stats()
	if err != nil {
		c.scrapeErrors.Inc()
		c.logger.Warn(context.Background(), "engine stats unavailable", "error", err)
	} else {
		for _, m := range c.engine {
			ch <- prometheus.MustNewConstMetric(m.desc, m.kind, m.value(stats))
		}
	}

	if c.ids != nil {
		ch <- prometheus.MustNewConstMetric(c.lastID, prometheus.GaugeValue, float64(c.ids.Last()))
	}
	if c.ingest != nil {
		ch <- prometheus.MustNewConstMetric(c.ingestAccepted, prometheus.CounterValue, float64(c.ingest.Accepted()))
		ch <- prometheus.MustNewConstMetric(c.ingestDropped, prometheus.CounterValue, float64(c.ingest.Dropped()))
	}
	c.scrapeErrors.Collect(ch)
}
