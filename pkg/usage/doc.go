// Package usage computes a tenant's current consumption of metered
// resources: bytes stored and gallery count.
//
// A Snapshot is always recomputed from the resource tables owned by the
// tenant and is valid for exactly one enforcement decision. Two Postgres
// implementations exist: PGAccountant sums real byte sizes persisted at
// upload time, and EstimatingAccountant approximates storage from row counts
// for legacy data without size tracking.
package usage
