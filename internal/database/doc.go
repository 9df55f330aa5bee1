// Package database is the SQLite clip record store.
//
// It holds clips and their owners. The thumbnail pipeline only ever reads a
// clip, reads its owner and sets thumbnail_path through a single
// conditional UPDATE, so a clip deleted mid-run is never recreated.
//
// The database uses WAL mode for concurrent reads while uploads commit, and
// applies schema migrations on open.
package database
