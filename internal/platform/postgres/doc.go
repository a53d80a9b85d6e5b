// Package postgres provides the PostgreSQL implementations of the store
// interfaces, built on database/sql with the pgx driver, plus the embedded
// goose migrations that define the schema they expect.
package postgres
