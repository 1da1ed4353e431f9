// Package repository defines the data access interfaces for archsketch.
//
// The only persisted state is the artifact ledger: one row per rendered
// image, recording where the file lives, when it was made and the
// fingerprint of the specification behind it. Specifications themselves are
// never stored. The ledger drives HTTP caching (the fingerprint is the ETag)
// and the reaper that deletes images older than the configured TTL.
//
// # SQLite Implementation
//
// The sqlite subpackage implements the ledger on modernc.org/sqlite, a
// pure-Go driver. The default DSN is an in-memory database, so the ledger
// lives exactly as long as the process and its images.
//
// # Testing
//
// The sqlite ledger is tested against in-memory databases.
package repository
