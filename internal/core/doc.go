// Package core provides the business logic of the employee record service.
//
// It contains all domain logic independent of the transport layer and can be
// used by web handlers, the CLI or tests without modification.
//
// # Ingestion pipeline
//
// A spreadsheet upload moves through fixed phases (see [Phase]):
//
//  1. received: raw bytes and file name
//  2. decoded: rows keyed by header, via a [Decoder]
//  3. normalized: rows mapped onto record fields ([Normalize])
//  4. validated: candidates partitioned into accepted and rejected ([ValidateBatch])
//  5. persisted: accepted records stored with one InsertMany call
//
// Any phase can end in failed. Persistence is detached from request
// cancellation so a client disconnect cannot leave a half-written batch.
//
// # Error Handling
//
// Errors leaving this package carry a [Kind] (ErrDecode, ErrEmptyBatch,
// ErrStorage, ErrNotFound, ErrValidation, ErrTooManyUploads). [MapError]
// turns any error into a user-facing message with a support code.
package core
