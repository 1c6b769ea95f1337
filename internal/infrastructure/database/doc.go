// Package database manages the local SQLite store for Homedeck Core.
//
// SQLite holds everything the dashboard persists between restarts: the
// bounded temperature history, the activity/motion log, and draggable UI
// element positions. The schema is applied via embedded, versioned
// migrations (see the migrations package), which also serves as the
// version tag for the persisted data layout.
//
// # Usage
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil { ... }
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil { ... }
//
// The pool is limited to a single connection because SQLite allows one
// writer; WAL mode keeps API reads from blocking poll-task writes.
package database
