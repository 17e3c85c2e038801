// Package journal keeps a SQLite history of executed organize runs so users
// can see what moved where after the fact. Dry runs are never recorded.
package journal
