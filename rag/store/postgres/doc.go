// Package postgres stores collections in PostgreSQL through a pgx connection pool.
// The storage location is a postgres:// connection string.
package postgres
