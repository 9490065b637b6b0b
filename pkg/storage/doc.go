// Package storage provides pluggable persistence backends for the billing
// engine's records.
//
// # Overview
//
// Store composes the four domain store interfaces (subscription records,
// invoices, payment methods, transactions) into the one surface the engine
// wires up. Two backends implement it: MemoryStore for tests and single-node
// runs, and postgres.Store for production.
//
// Every operation is user-scoped: a lookup with the wrong user is a NotFound,
// not a permission error, so records of one user are invisible to another at
// the lowest layer.
//
// # Usage Example
//
//	store := storage.NewMemoryStore()
//
//	// or, in production
//	pg, err := postgres.Open(postgres.Config{URL: cfg.PostgresURL})
//	if err != nil {
//		return err
//	}
//	if err := pg.Migrate(ctx); err != nil {
//		return err
//	}
//
// # Related Packages
//
//   - pkg/storage/postgres: the PostgreSQL backend
//   - pkg/usage: counter stores, kept separate from record storage
package storage
