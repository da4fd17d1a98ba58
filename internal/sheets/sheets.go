// Package sheets is the adapter for the remote tabular store: named sheets
// of string rows with a fixed header row. Failures are classified so
// callers can fall back to cached or local data explicitly.
package sheets

import "context"

// Sheet is one named tab of the remote store. Rows are plain strings;
// row 0 is the header.
type Sheet interface {
	Name() string

	// Header returns the header row, empty when the sheet has none yet.
	Header(ctx context.Context) ([]string, error)

	// EnsureHeader writes the header row when it is missing or differs.
	EnsureHeader(ctx context.Context, header []string) error

	// Rows returns all data rows in order, header excluded.
	Rows(ctx context.Context) ([][]string, error)

	// ReplaceAll clears the sheet and writes header plus rows.
	ReplaceAll(ctx context.Context, header []string, rows [][]string) error

	// Append adds rows after the last data row.
	Append(ctx context.Context, rows [][]string) error

	// UpdateRow overwrites the cells of the data row at index (0-based,
	// header excluded).
	UpdateRow(ctx context.Context, index int, cells []string) error

	// DeleteRowsWhere removes every data row whose cell in column col
	// equals value. Returns the number of rows removed.
	DeleteRowsWhere(ctx context.Context, col int, value string) (int, error)

	// Clear removes every row including the header.
	Clear(ctx context.Context) error
}

// Store opens named sheets, creating them on first use.
type Store interface {
	Sheet(ctx context.Context, name string) (Sheet, error)
}
