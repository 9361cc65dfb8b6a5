// Package storage is the on-disk layer of RegistaDB: the sortable key codec,
// the identifier generator and the adapter over the embedded bbolt engine.
//
// The engine is opened over three buckets ("namespaces"): an unused
// "default" bucket kept for layout compatibility, the "index" bucket mapping
// an inverted id to the entry's primary key, and the "data" bucket mapping a
// primary key (inverted timestamp, id) to the serialized entry. Every write
// that touches both index and data goes through a single bbolt read-write
// transaction, so observers see both records or neither.
package storage
