// Package store defines the persistence contracts for users, tasks, task
// roles and share grants, the sentinel errors implementations return, and
// the transaction helper services use to group store calls.
//
// The Postgres implementations live in internal/platform/postgres.
package store
