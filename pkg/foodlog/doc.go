// Package foodlog provides the shared data model and Redis persistence
// layer for the platewise nutrition pipeline. Confirmed log entries are
// stored as Redis hashes with a per-day sorted-set index, and every
// successful write publishes a ChangeEvent to a Pub/Sub channel that
// live sessions subscribe to.
//
// All keys and channels are namespaced by session name so multiple
// sessions can safely share a single Redis server.
package foodlog
