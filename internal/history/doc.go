// Package history keeps a SQLite index of organize and undo runs.
//
// The database lives next to the transaction logs (organization_logs/history.db)
// and is purely informational: transaction logs remain the source of truth for
// undo, so a missing or disabled history never blocks an operation. Schema
// changes ship as embedded migrations applied in order on Open.
package history
