// Package audit provides the append-only command history for Tint
// Core.
//
// Every control invocation writes exactly one entry, whatever the
// outcome and however many panels it touched. Entries are never
// mutated or deleted; retention is an operational concern outside this
// package.
//
// # Data model
//
// An Entry records who commanded what: timestamp, actor (bearer-token
// subject or "api"), target type and id, the requested level, the
// panels actually applied, and a free-text result. The applied list is
// stored as a JSON array in a single column; corrupt or legacy
// payloads degrade to an empty list on read rather than failing the
// whole fetch.
//
// # Reads
//
// List returns entries newest first with pagination and optional
// filters: time window, target type, target/applied-to substring, and
// result substring. WriteCSV exports a filtered set as a flat table,
// oldest first, for compliance tooling.
//
// # Durability
//
// Audit writes are not on the control path: an append failure is
// logged by the caller and never fails the command, since the physical
// action may already be irreversible by then.
package audit
