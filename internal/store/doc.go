// Package store declares the persistence contracts for generations,
// canvases and media. The Postgres implementations are in
// internal/platform/postgres.
package store
