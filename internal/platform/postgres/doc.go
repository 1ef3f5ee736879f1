// Package postgres implements the store and task persistence interfaces on
// PostgreSQL through the pgx database/sql driver. It also owns the embedded
// goose migrations that create the generations, canvases, media_items and
// tasks tables, and maps driver errors onto the store error sentinels.
package postgres
