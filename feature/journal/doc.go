// Package journal persists reconciliation events to a database.
//
// Every event of a repair session is stored as one row tagged with a session
// UUID, the world and the dimension. The journal is an optional
// reconcile.EventSink: write failures are logged and counted, never returned,
// so a broken database cannot interrupt a repair.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err := journal.Migrate(db); err != nil { ... }
//	rec := journal.NewRecorder(db, world, "overworld", log)
//	sink := reconcile.MultiSink{reconcile.NewLogSink(log), rec}
package journal
