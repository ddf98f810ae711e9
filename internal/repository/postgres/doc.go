// Package postgres implements the service repository interfaces against
// PostgreSQL using database/sql and lib/pq. Schema lives in
// migrations/; all queries are owner-scoped.
package postgres
