// Package pg provides the PostgreSQL connection pool used by the durable
// notification store: pooled connect with retry, healthcheck, embedded
// goose migrations and pg error classification helpers.
package pg
